// Package instance holds the live, mutable state a Store owns: growable
// memories and tables, global cells, and the passive segments instructions
// can copy out of. Instances are mutated during execution while the Store
// holds other references to them; callers are expected to serialize access
// at execute_step boundaries (see package executor), so no instance here
// takes its own lock.
package instance

import "github.com/wasminspect-go/wasminspect/internal/trap"

const PageSize = 65536

// Memory is a growable linear memory buffer. Invariant: len(Bytes) stays a
// multiple of PageSize and PageCount() never exceeds Max when Max is set.
type Memory struct {
	Bytes    []byte
	Max      *uint32 // page count, nil means unbounded (subject to the 4GiB address space)
	Memory64 bool
}

func NewMemory(minPages uint32, max *uint32, memory64 bool) *Memory {
	return &Memory{Bytes: make([]byte, uint64(minPages)*PageSize), Max: max, Memory64: memory64}
}

func (m *Memory) PageCount() uint32 { return uint32(len(m.Bytes) / PageSize) }

// Grow attempts to add delta pages, returning an error (never a trap) if
// the result would exceed Max or the implementation's address-space limit.
func (m *Memory) Grow(delta uint32) error {
	cur := m.PageCount()
	next := cur + delta
	if next < cur {
		return errOverflow
	}
	if m.Max != nil && next > *m.Max {
		return errLimitExceeded
	}
	const hardMax = 65536 // 4GiB / 64KiB, the 32-bit address space ceiling
	if !m.Memory64 && next > hardMax {
		return errLimitExceeded
	}
	m.Bytes = append(m.Bytes, make([]byte, uint64(delta)*PageSize)...)
	return nil
}

var (
	errOverflow      = errGrow("page count overflow")
	errLimitExceeded = errGrow("grow would exceed declared maximum")
)

type errGrow string

func (e errGrow) Error() string { return string(e) }

// ValidateRegion checks that [offset, offset+length) lies within the current
// buffer without any of the arithmetic overflowing, returning a trap
// otherwise. Callers must validate before reading or writing so bulk ops
// never perform a partial, visible mutation.
func (m *Memory) ValidateRegion(offset, length uint64) *trap.Trap {
	end := offset + length
	if end < offset || end > uint64(len(m.Bytes)) {
		return trap.New(trap.OutOfBoundsMemoryAccess)
	}
	return nil
}

func (m *Memory) Store(offset uint64, data []byte) *trap.Trap {
	if err := m.ValidateRegion(offset, uint64(len(data))); err != nil {
		return err
	}
	copy(m.Bytes[offset:], data)
	return nil
}

func (m *Memory) Load(offset uint64, length uint64) ([]byte, *trap.Trap) {
	if err := m.ValidateRegion(offset, length); err != nil {
		return nil, err
	}
	return m.Bytes[offset : offset+length], nil
}
