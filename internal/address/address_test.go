package address

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressConstructorsSetFields(t *testing.T) {
	require.Equal(t, FuncAddr{Module: 1, Index: 2}, NewFuncAddr(1, 2))
	require.Equal(t, MemoryAddr{Module: 1, Index: 2}, NewMemoryAddr(1, 2))
	require.Equal(t, TableAddr{Module: 1, Index: 2}, NewTableAddr(1, 2))
	require.Equal(t, GlobalAddr{Module: 1, Index: 2}, NewGlobalAddr(1, 2))
	require.Equal(t, ElemAddr{Module: 1, Index: 2}, NewElemAddr(1, 2))
	require.Equal(t, DataAddr{Module: 1, Index: 2}, NewDataAddr(1, 2))
}

func TestAddressKindsAreNominallyDistinct(t *testing.T) {
	// FuncAddr and MemoryAddr share structural shape but are different Go
	// types, so the two addresses below are never assignable to one another
	// -- this test exists to document that guarantee, not exercise logic.
	f := NewFuncAddr(0, 5)
	m := NewMemoryAddr(0, 5)
	require.Equal(t, f.Index, m.Index)
}
