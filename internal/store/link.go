package store

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/inst"
	"github.com/wasminspect-go/wasminspect/internal/instance"
	"github.com/wasminspect-go/wasminspect/internal/trap"
	"github.com/wasminspect-go/wasminspect/internal/value"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

// LinkError reports one import this Store could not resolve or type-check.
// LoadModule aggregates every LinkError it finds via go-multierror so a caller
// sees all of a module's unresolved imports at once, not just the first.
type LinkError struct {
	ImportIndex int
	Module, Name string
	Reason      string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("import %d (%s.%s): %s", e.ImportIndex, e.Module, e.Name, e.Reason)
}

// Invoker calls a function by address, used only to run a module's start
// function. Package store never imports package executor (the dependency
// runs the other way); callers of LoadModule that want start functions
// executed supply their own executor-backed Invoker.
type Invoker func(addr address.FuncAddr, args []value.Value) ([]value.Value, *trap.Trap)

// LoadModule allocates, links, and initializes a module instance: resolving
// its imports against already-registered modules, evaluating global and
// segment initializers, applying active segments, and finally invoking the
// start function (if any) through invoke. A trap raised by the start
// function fails the entire load; no partially-initialized instance is
// registered under name.
func (s *Store) LoadModule(name string, m *wasm.Module, invoke Invoker) (address.ModuleIndex, error) {
	mi, idx := s.allocModule(name, m)

	if err := s.resolveImports(mi, m); err != nil {
		s.deallocFailed(idx)
		return 0, err
	}

	s.allocDefinedMemories(mi, m)
	s.allocDefinedTables(mi, m)

	// Function addresses are complete before any init expression runs:
	// ref.func in a global initializer may name a module-defined function.
	for i := range m.Functions {
		localIdx := uint32(len(s.funcs[idx]))
		fn := &instance.Function{Defined: &instance.DefinedFunction{
			Module:     idx,
			Type:       m.GetType(m.Functions[i].TypeIndex),
			LocalTypes: append(append([]value.Type{}, m.GetType(m.Functions[i].TypeIndex).Params...), m.Functions[i].Locals...),
			Body:       m.Functions[i].Body,
			Name:       m.FuncName(uint32(len(mi.FuncAddrs))),
		}}
		s.funcs[idx] = append(s.funcs[idx], fn)
		mi.FuncAddrs = append(mi.FuncAddrs, address.NewFuncAddr(idx, localIdx))
	}

	if err := s.allocDefinedGlobals(mi, m); err != nil {
		s.deallocFailed(idx)
		return 0, err
	}

	s.buildExports(mi, m)

	elemSegs, err := s.instantiateElements(mi, m)
	if err != nil {
		s.deallocFailed(idx)
		return 0, err
	}
	dataSegs, err := s.instantiateData(mi, m)
	if err != nil {
		s.deallocFailed(idx)
		return 0, err
	}
	s.elements[idx] = elemSegs
	s.datas[idx] = dataSegs
	for i := range elemSegs {
		mi.ElemAddrs = append(mi.ElemAddrs, address.NewElemAddr(idx, uint32(i)))
	}
	for i := range dataSegs {
		mi.DataAddrs = append(mi.DataAddrs, address.NewDataAddr(idx, uint32(i)))
	}

	s.log.WithFields(logrus.Fields{"module": name, "index": idx}).Debug("module instantiated")
	s.byName[name] = idx

	if m.StartFunc != nil && invoke != nil {
		startAddr := mi.FuncAddrs[*m.StartFunc]
		if _, trp := invoke(startAddr, nil); trp != nil {
			delete(s.byName, name)
			return 0, errors.Wrapf(trp, "start function trapped")
		}
	}
	return idx, nil
}

func (s *Store) deallocFailed(idx address.ModuleIndex) {
	// Instances are append-only slots; a failed load at the tail leaves an
	// inert, unreferenced ModuleInstance rather than compacting indices that
	// earlier-resolved addresses may already have captured.
	s.modules[idx] = nil
}

func (s *Store) resolveImports(mi *ModuleInstance, m *wasm.Module) error {
	var errs *multierror.Error
	for i, imp := range m.Imports {
		srcMi, srcIdx, ok := s.ModuleByName(imp.Module)
		if !ok {
			errs = multierror.Append(errs, &LinkError{i, imp.Module, imp.Name, "module not registered"})
			continue
		}
		exp, ok := srcMi.Exports[imp.Name]
		if !ok {
			errs = multierror.Append(errs, &LinkError{i, imp.Module, imp.Name, "export not found"})
			continue
		}
		if exp.Kind != imp.Kind {
			errs = multierror.Append(errs, &LinkError{i, imp.Module, imp.Name,
				fmt.Sprintf("kind mismatch: want %s, got %s", imp.Kind, exp.Kind)})
			continue
		}
		switch imp.Kind {
		case wasm.ExternKindFunc:
			addr := srcMi.FuncAddrs[exp.Index]
			wantType := m.GetType(imp.FuncTypeIndex)
			if gotType := s.Function(addr).Type(); !wantType.Equal(gotType) {
				errs = multierror.Append(errs, &LinkError{i, imp.Module, imp.Name, "function signature mismatch"})
				continue
			}
			mi.FuncAddrs = append(mi.FuncAddrs, addr)
		case wasm.ExternKindTable:
			addr := srcMi.TableAddrs[exp.Index]
			tbl := s.Table(addr)
			if tbl.ElemType != imp.Table.ElemType {
				errs = multierror.Append(errs, &LinkError{i, imp.Module, imp.Name, "table element type mismatch"})
				continue
			}
			if !limitsCompatible(imp.Table.Limits, uint32(tbl.Len()), tbl.Max) {
				errs = multierror.Append(errs, &LinkError{i, imp.Module, imp.Name, "table limits incompatible"})
				continue
			}
			mi.TableAddrs = append(mi.TableAddrs, addr)
		case wasm.ExternKindMemory:
			addr := srcMi.MemoryAddrs[exp.Index]
			mem := s.Memory(addr)
			if !limitsCompatible(imp.Memory.Limits, mem.PageCount(), mem.Max) {
				errs = multierror.Append(errs, &LinkError{i, imp.Module, imp.Name, "memory limits incompatible"})
				continue
			}
			mi.MemoryAddrs = append(mi.MemoryAddrs, addr)
		case wasm.ExternKindGlobal:
			addr := srcMi.GlobalAddrs[exp.Index]
			g := s.Global(addr)
			if g.Value.Type != imp.Global.ValType || g.Mutable != imp.Global.Mutable {
				errs = multierror.Append(errs, &LinkError{i, imp.Module, imp.Name, "global type or mutability mismatch"})
				continue
			}
			mi.GlobalAddrs = append(mi.GlobalAddrs, addr)
		}
	}
	return errs.ErrorOrNil()
}

// limitsCompatible implements the import matching rule: the actual item
// must be at least as large as declared and, if the importer bounds it, no
// larger than that bound.
func limitsCompatible(want wasm.Limits, actualMin uint32, actualMax *uint32) bool {
	if actualMin < want.Min {
		return false
	}
	if want.Max == nil {
		return true
	}
	return actualMax != nil && *actualMax <= *want.Max
}

func (s *Store) allocDefinedMemories(mi *ModuleInstance, m *wasm.Module) {
	idx := s.indexOf(mi)
	for _, mt := range m.Memories {
		localIdx := uint32(len(s.memories[idx]))
		s.memories[idx] = append(s.memories[idx], instance.NewMemory(mt.Min, mt.Max, mt.Memory64))
		mi.MemoryAddrs = append(mi.MemoryAddrs, address.NewMemoryAddr(idx, localIdx))
	}
}

func (s *Store) allocDefinedTables(mi *ModuleInstance, m *wasm.Module) {
	idx := s.indexOf(mi)
	for _, tt := range m.Tables {
		localIdx := uint32(len(s.tables[idx]))
		s.tables[idx] = append(s.tables[idx], instance.NewTable(tt.ElemType, tt.Limits.Min, tt.Limits.Max))
		mi.TableAddrs = append(mi.TableAddrs, address.NewTableAddr(idx, localIdx))
	}
}

func (s *Store) allocDefinedGlobals(mi *ModuleInstance, m *wasm.Module) error {
	idx := s.indexOf(mi)
	for i, gt := range m.Globals {
		v, trp := s.evalConstExpr(mi, m.GlobalInit[i])
		if trp != nil {
			return errors.Wrapf(trp, "global %d initializer", i)
		}
		localIdx := uint32(len(s.globals[idx]))
		s.globals[idx] = append(s.globals[idx], instance.NewGlobal(v, gt.Mutable))
		mi.GlobalAddrs = append(mi.GlobalAddrs, address.NewGlobalAddr(idx, localIdx))
	}
	return nil
}

// evalConstExpr evaluates a restricted init expression. global.get reads
// whichever global mi.GlobalAddrs holds at that index: an imported global or
// a module-defined global already allocated. Whether that global is an
// import, or immutable, is not checked.
func (s *Store) evalConstExpr(mi *ModuleInstance, ce wasm.ConstExpr) (value.Value, *trap.Trap) {
	switch ce.Opcode {
	case inst.OpI32Const:
		return value.I32Val(ce.I32), nil
	case inst.OpI64Const:
		return value.I64Val(ce.I64), nil
	case inst.OpF32Const:
		return value.F32Bits(ce.F32), nil
	case inst.OpF64Const:
		return value.F64Bits(ce.F64), nil
	case inst.OpGlobalGet:
		return s.Global(mi.GlobalAddrs[ce.Index]).Value, nil
	case inst.OpRefNull:
		return value.Null(ce.RefTy), nil
	case inst.OpRefFunc:
		return value.RefVal(value.FuncRefVal(mi.FuncAddrs[ce.Index])), nil
	default:
		return value.Value{}, trap.Newf(trap.TypeMismatch, "invalid init expression opcode %v", ce.Opcode)
	}
}

func (s *Store) buildExports(mi *ModuleInstance, m *wasm.Module) {
	for _, exp := range m.Exports {
		mi.Exports[exp.Name] = exp
	}
}

func (s *Store) instantiateElements(mi *ModuleInstance, m *wasm.Module) ([]*instance.Element, error) {
	out := make([]*instance.Element, len(m.Elements))
	for i, seg := range m.Elements {
		refs := make([]value.Ref, len(seg.Init))
		for j, ce := range seg.Init {
			v, trp := s.evalConstExpr(mi, ce)
			if trp != nil {
				return nil, errors.Wrapf(trp, "element segment %d init %d", i, j)
			}
			refs[j] = v.Ref
		}
		el := &instance.Element{Refs: refs}
		if seg.Mode == wasm.SegmentModeActive {
			offVal, trp := s.evalConstExpr(mi, seg.Offset)
			if trp != nil {
				return nil, errors.Wrapf(trp, "element segment %d offset", i)
			}
			tbl := s.Table(mi.TableAddrs[seg.TableIdx])
			offset := int(offVal.I32())
			if trp := tbl.ValidateRegion(offset, len(refs)); trp != nil {
				return nil, errors.Wrapf(trp, "element segment %d", i)
			}
			for j, r := range refs {
				tbl.Set(offset+j, r)
			}
			el.Dropped = true // active segments are spent immediately after instantiation
		}
		out[i] = el
	}
	return out, nil
}

func (s *Store) instantiateData(mi *ModuleInstance, m *wasm.Module) ([]*instance.Data, error) {
	out := make([]*instance.Data, len(m.Data))
	for i, seg := range m.Data {
		d := &instance.Data{Bytes: seg.Init}
		if seg.Mode == wasm.SegmentModeActive {
			offVal, trp := s.evalConstExpr(mi, seg.Offset)
			if trp != nil {
				return nil, errors.Wrapf(trp, "data segment %d offset", i)
			}
			mem := s.Memory(mi.MemoryAddrs[seg.MemIdx])
			offset := uint64(uint32(offVal.I32()))
			if trp := mem.Store(offset, seg.Init); trp != nil {
				return nil, errors.Wrapf(trp, "data segment %d", i)
			}
			d.Dropped = true
		}
		out[i] = d
	}
	return out, nil
}

// indexOf finds mi's ModuleIndex. Called only during LoadModule, where mi is
// always the most recently allocated instance; a linear scan from the tail
// keeps the ModuleInstance struct itself free of a self-referential field.
func (s *Store) indexOf(mi *ModuleInstance) address.ModuleIndex {
	for i := len(s.modules) - 1; i >= 0; i-- {
		if s.modules[i] == mi {
			return address.ModuleIndex(i)
		}
	}
	panic("store: unregistered ModuleInstance")
}
