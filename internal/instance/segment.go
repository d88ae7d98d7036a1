package instance

import (
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
)

// Element is a passive or (pre-drop) active element segment: a vector of
// reference values usable by table.init until dropped, after which it
// behaves as empty.
type Element struct {
	Refs    []value.Ref
	Dropped bool
}

func (e *Element) ValidateRegion(offset, length int) *trap.Trap {
	if e.Dropped {
		if length == 0 {
			return nil
		}
		return trap.New(trap.OutOfBoundsMemoryAccess)
	}
	end := offset + length
	if offset < 0 || length < 0 || end < offset || end > len(e.Refs) {
		return trap.New(trap.OutOfBoundsMemoryAccess)
	}
	return nil
}

func (e *Element) Get(i int) (value.Ref, *trap.Trap) {
	if err := e.ValidateRegion(i, 1); err != nil {
		return value.Ref{}, err
	}
	return e.Refs[i], nil
}

func (e *Element) Drop() { e.Dropped = true }

// Data is a passive or (pre-drop) active data segment: a byte blob usable by
// memory.init until dropped, after which it behaves as empty.
type Data struct {
	Bytes   []byte
	Dropped bool
}

func (d *Data) ValidateRegion(offset, length int) *trap.Trap {
	if d.Dropped {
		if length == 0 {
			return nil
		}
		return trap.New(trap.OutOfBoundsMemoryAccess)
	}
	end := offset + length
	if offset < 0 || length < 0 || end < offset || end > len(d.Bytes) {
		return trap.New(trap.OutOfBoundsMemoryAccess)
	}
	return nil
}

func (d *Data) Raw() []byte {
	if d.Dropped {
		return nil
	}
	return d.Bytes
}

func (d *Data) Drop() { d.Dropped = true }
