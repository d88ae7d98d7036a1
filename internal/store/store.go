// Package store implements the process-wide owner of every module instance:
// the Linker's target and the single place function/memory/table/global
// addresses are dereferenced from. Package executor drives instructions
// against a Store; package instance defines what a Store holds.
package store

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wasminspect-go/wasminspect/internal/address"
	"github.com/wasminspect-go/wasminspect/internal/instance"
	"github.com/wasminspect-go/wasminspect/internal/interceptor"
	"github.com/wasminspect-go/wasminspect/internal/value"
	"github.com/wasminspect-go/wasminspect/internal/wasm"
)

// ModuleInstance is the instantiated, runnable form of one wasm.Module: its
// combined (imports-first) index spaces resolved to store-global addresses,
// plus the names it makes visible to later imports.
type ModuleInstance struct {
	Name string
	Mod  *wasm.Module

	FuncAddrs   []address.FuncAddr
	TableAddrs  []address.TableAddr
	MemoryAddrs []address.MemoryAddr
	GlobalAddrs []address.GlobalAddr
	ElemAddrs   []address.ElemAddr
	DataAddrs   []address.DataAddr

	Exports map[string]wasm.Export
}

// Store owns every live instance, keyed first by the ModuleIndex that
// allocated it, then by that module's local slot index. A FuncAddr (or any
// other address kind) dereferences by indexing these two levels; it never
// carries a pointer directly, so the Store remains the sole owner.
type Store struct {
	log  *logrus.Logger
	hook interceptor.Interceptor

	modules []*ModuleInstance
	byName  map[string]address.ModuleIndex

	funcs    [][]*instance.Function
	memories [][]*instance.Memory
	tables   [][]*instance.Table
	globals  [][]*instance.Global
	elements [][]*instance.Element
	datas    [][]*instance.Data
}

func New(log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{log: log, hook: interceptor.NoOp{}, byName: map[string]address.ModuleIndex{}}
}

// SetInterceptor installs the debugger's hook set; passing nil restores the
// no-op default.
func (s *Store) SetInterceptor(h interceptor.Interceptor) {
	if h == nil {
		h = interceptor.NoOp{}
	}
	s.hook = h
}

func (s *Store) Interceptor() interceptor.Interceptor { return s.hook }

func (s *Store) Module(idx address.ModuleIndex) *ModuleInstance { return s.modules[idx] }

func (s *Store) ModuleByName(name string) (*ModuleInstance, address.ModuleIndex, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return nil, 0, false
	}
	return s.modules[idx], idx, true
}

func (s *Store) Function(addr address.FuncAddr) *instance.Function {
	return s.funcs[addr.Module][addr.Index]
}

func (s *Store) Memory(addr address.MemoryAddr) *instance.Memory {
	return s.memories[addr.Module][addr.Index]
}

func (s *Store) Table(addr address.TableAddr) *instance.Table {
	return s.tables[addr.Module][addr.Index]
}

func (s *Store) Global(addr address.GlobalAddr) *instance.Global {
	return s.globals[addr.Module][addr.Index]
}

func (s *Store) Element(addr address.ElemAddr) *instance.Element {
	return s.elements[addr.Module][addr.Index]
}

func (s *Store) Data(addr address.DataAddr) *instance.Data {
	return s.datas[addr.Module][addr.Index]
}

// MemoryAt and GlobalAt implement instance.HostContext, letting host
// functions reach their caller's state through the combined index space
// without package instance importing package store.
func (s *Store) MemoryAt(m address.ModuleIndex, localIdx uint32) *instance.Memory {
	mi := s.modules[m]
	return s.Memory(mi.MemoryAddrs[localIdx])
}

func (s *Store) GlobalAt(m address.ModuleIndex, localIdx uint32) *instance.Global {
	mi := s.modules[m]
	return s.Global(mi.GlobalAddrs[localIdx])
}

// allocModule reserves the next ModuleIndex and its six backing slices.
// Name is not registered in byName here; callers decide whether/when a
// module becomes addressable by name (the spec's Store permits multiple
// anonymous instances of the same binary).
func (s *Store) allocModule(name string, mod *wasm.Module) (*ModuleInstance, address.ModuleIndex) {
	idx := address.ModuleIndex(len(s.modules))
	mi := &ModuleInstance{Name: name, Mod: mod, Exports: map[string]wasm.Export{}}
	s.modules = append(s.modules, mi)
	s.funcs = append(s.funcs, nil)
	s.memories = append(s.memories, nil)
	s.tables = append(s.tables, nil)
	s.globals = append(s.globals, nil)
	s.elements = append(s.elements, nil)
	s.datas = append(s.datas, nil)
	s.log.WithFields(logrus.Fields{"module": name, "index": idx}).Debug("allocated module instance")
	return mi, idx
}

// HostModule is a named bundle of host-implemented imports, registered once
// and then resolved like any other module's exports.
type HostModule struct {
	Name      string
	Funcs     map[string]*instance.HostFunction
	Memories  map[string]*instance.Memory
	Tables    map[string]*instance.Table
	Globals   map[string]*instance.Global
}

// RegisterHostModule allocates a synthetic ModuleInstance backing hm, so
// that later LoadModule calls can import from it exactly like any wasm
// module's exports.
func (s *Store) RegisterHostModule(hm *HostModule) (address.ModuleIndex, error) {
	if _, exists := s.byName[hm.Name]; exists {
		return 0, fmt.Errorf("host module %q already registered", hm.Name)
	}
	mi, idx := s.allocModule(hm.Name, nil)

	for name, f := range hm.Funcs {
		localIdx := uint32(len(s.funcs[idx]))
		s.funcs[idx] = append(s.funcs[idx], &instance.Function{Host: f})
		mi.FuncAddrs = append(mi.FuncAddrs, address.NewFuncAddr(idx, localIdx))
		mi.Exports[name] = wasm.Export{Name: name, Kind: wasm.ExternKindFunc, Index: localIdx}
	}
	for name, m := range hm.Memories {
		localIdx := uint32(len(s.memories[idx]))
		s.memories[idx] = append(s.memories[idx], m)
		mi.MemoryAddrs = append(mi.MemoryAddrs, address.NewMemoryAddr(idx, localIdx))
		mi.Exports[name] = wasm.Export{Name: name, Kind: wasm.ExternKindMemory, Index: localIdx}
	}
	for name, t := range hm.Tables {
		localIdx := uint32(len(s.tables[idx]))
		s.tables[idx] = append(s.tables[idx], t)
		mi.TableAddrs = append(mi.TableAddrs, address.NewTableAddr(idx, localIdx))
		mi.Exports[name] = wasm.Export{Name: name, Kind: wasm.ExternKindTable, Index: localIdx}
	}
	for name, g := range hm.Globals {
		localIdx := uint32(len(s.globals[idx]))
		s.globals[idx] = append(s.globals[idx], g)
		mi.GlobalAddrs = append(mi.GlobalAddrs, address.NewGlobalAddr(idx, localIdx))
		mi.Exports[name] = wasm.Export{Name: name, Kind: wasm.ExternKindGlobal, Index: localIdx}
	}

	s.byName[hm.Name] = idx
	return idx, nil
}

// ExportedFunction looks up a function exported by name from a registered
// module, the entry point the debugger's lookup_func uses.
func (s *Store) ExportedFunction(moduleName, field string) (address.FuncAddr, bool) {
	mi, idx, ok := s.ModuleByName(moduleName)
	if !ok {
		return address.FuncAddr{}, false
	}
	exp, ok := mi.Exports[field]
	if !ok || exp.Kind != wasm.ExternKindFunc {
		return address.FuncAddr{}, false
	}
	return mi.FuncAddrs[exp.Index], true
}

// GlobalValue reads a global's current value by module-local index, used by
// the debugger's globals() view.
func (s *Store) GlobalValue(m address.ModuleIndex, localIdx uint32) value.Value {
	return s.GlobalAt(m, localIdx).Value
}
