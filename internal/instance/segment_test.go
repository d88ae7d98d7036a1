package instance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasminspect-go/wasminspect/internal/value"
)

func TestElementDropMakesRegionEmpty(t *testing.T) {
	el := &Element{Refs: []value.Ref{value.NullRef(value.FuncRef)}}
	require.Nil(t, el.ValidateRegion(0, 1))

	el.Drop()
	require.NotNil(t, el.ValidateRegion(0, 1))
	require.Nil(t, el.ValidateRegion(0, 0))

	_, trp := el.Get(0)
	require.NotNil(t, trp)
}

func TestDataDropMakesRawNilAndRegionEmpty(t *testing.T) {
	d := &Data{Bytes: []byte{1, 2, 3}}
	require.Equal(t, []byte{1, 2, 3}, d.Raw())

	d.Drop()
	require.Nil(t, d.Raw())
	require.Nil(t, d.ValidateRegion(0, 0))
	require.NotNil(t, d.ValidateRegion(0, 1))
}
