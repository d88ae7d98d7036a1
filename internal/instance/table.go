package instance

import (
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

// Table is a vector of reference values sharing one declared element type.
// Every stored entry is either a NullRef of ElemType or a concrete ref
// compatible with it.
type Table struct {
	Elems    []value.Ref
	ElemType value.Type
	Max      *uint32
}

func NewTable(elemType value.Type, min uint32, max *uint32) *Table {
	elems := make([]value.Ref, min)
	for i := range elems {
		elems[i] = value.NullRef(elemType)
	}
	return &Table{Elems: elems, ElemType: elemType, Max: max}
}

func (t *Table) Len() int { return len(t.Elems) }

func (t *Table) ValidateRegion(offset, length int) *trap.Trap {
	end := offset + length
	if offset < 0 || length < 0 || end < offset || end > len(t.Elems) {
		return trap.New(trap.UndefinedElement)
	}
	return nil
}

func (t *Table) Get(i int) (value.Ref, *trap.Trap) {
	if i < 0 || i >= len(t.Elems) {
		return value.Ref{}, trap.New(trap.UndefinedElement)
	}
	return t.Elems[i], nil
}

func (t *Table) Set(i int, v value.Ref) *trap.Trap {
	if i < 0 || i >= len(t.Elems) {
		return trap.New(trap.UndefinedElement)
	}
	t.Elems[i] = v
	return nil
}

// Grow attempts to append n elements filled with fillVal, returning false if
// the result would exceed Max.
func (t *Table) Grow(n int, fillVal value.Ref) bool {
	next := len(t.Elems) + n
	if t.Max != nil && uint32(next) > *t.Max {
		return false
	}
	for i := 0; i < n; i++ {
		t.Elems = append(t.Elems, fillVal)
	}
	return true
}
