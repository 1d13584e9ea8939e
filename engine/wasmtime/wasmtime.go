// Package wasmtime adapts github.com/bytecodealliance/wasmtime-go to the
// guest.Engine/Module/RawInstance contract. It is the sole production
// engine: wasmtime-go is the only engine in the retrieved corpus whose
// bindings expose real fuel metering.
package wasmtime

import (
	"fmt"

	wt "github.com/bytecodealliance/wasmtime-go/v25"

	"github.com/wasmstation/kernel/guest"
)

const (
	fnInit = "init"
	fnStep = "step"
	memExportName = "memory"
)

type engine struct {
	wt *wt.Engine
}

// New returns a guest.Engine backed by wasmtime, configured for fuel
// consumption.
func New() guest.Engine {
	cfg := wt.NewConfig()
	cfg.SetConsumeFuel(true)
	return &engine{wt: wt.NewEngineWithConfig(cfg)}
}

func (e *engine) Name() string { return "wasmtime" }

func (e *engine) Compile(code []byte) (guest.Module, error) {
	mod, err := wt.NewModule(e.wt, code)
	if err != nil {
		return nil, fmt.Errorf("compiling guest module: %w", err)
	}
	return &module{engine: e.wt, mod: mod}, nil
}

type module struct {
	engine *wt.Engine
	mod    *wt.Module
}

func (m *module) Close() error { return nil }

// NewRawInstance instantiates the module, linking the full ABI stub
// table (portable wasi_snapshot_preview1 subset + env namespace,
// ) against hooks.
func (m *module) NewRawInstance(hooks guest.ABIHooks) (guest.RawInstance, error) {
	store := wt.NewStore(m.engine)
	if err := store.SetFuel(^uint64(0)); err != nil {
		return nil, fmt.Errorf("enabling fuel: %w", err)
	}

	linker := wt.NewLinker(m.engine)
	if err := linkEnv(linker, store, hooks); err != nil {
		return nil, err
	}
	if err := linkWASI(linker, store, hooks); err != nil {
		return nil, err
	}

	inst, err := linker.Instantiate(store, m.mod)
	if err != nil {
		return nil, fmt.Errorf("instantiating guest module: %w", err)
	}

	memExport := inst.GetExport(store, memExportName)
	if memExport == nil || memExport.Memory() == nil {
		return nil, fmt.Errorf("guest module does not export %q", memExportName)
	}
	mem := memExport.Memory()

	stepFn := inst.GetFunc(store, fnStep)
	if stepFn == nil {
		return nil, fmt.Errorf("guest module does not export %q", fnStep)
	}

	return &rawInstance{
		store:  store,
		inst:   inst,
		mem:    mem,
		stepFn: stepFn,
		initFn: inst.GetFunc(store, fnInit), // optional
	}, nil
}

type rawInstance struct {
	store  *wt.Store
	inst   *wt.Instance
	mem    *wt.Memory
	stepFn *wt.Func
	initFn *wt.Func
}

func (r *rawInstance) Memory() guest.Memory {
	return memoryView{mem: r.mem, store: r.store}
}

func (r *rawInstance) CallInit() error {
	if r.initFn == nil {
		return nil // init export is optional
	}
	_, err := r.initFn.Call(r.store)
	return err
}

func (r *rawInstance) CallStep() error {
	_, err := r.stepFn.Call(r.store)
	return err
}

func (r *rawInstance) SetFuel(n uint64) error {
	return r.store.SetFuel(n)
}

func (r *rawInstance) FuelConsumed() (uint64, bool) {
	return r.store.FuelConsumed()
}

func (r *rawInstance) Close() error {
	return nil // wasmtime instances are reclaimed with their Store by the GC.
}

// memoryView adapts *wasmtime.Memory to guest.Memory.
type memoryView struct {
	mem   *wt.Memory
	store *wt.Store
}

func (v memoryView) Size() uint32 {
	return uint32(v.mem.DataSize(v.store))
}

func (v memoryView) Data() []byte {
	return v.mem.UnsafeData(v.store)
}

// trapf builds a wasmtime trap from a formatted message. guarded uses it
// for recovered ABI-stub panics (guest.FaultError or any other guest
// fault), so a bridge bounds violation surfaces to the guest as a
// genuine WASM trap rather than crashing the host process.
func trapf(format string, args ...any) *wt.Trap {
	return wt.NewTrap(fmt.Sprintf(format, args...))
}

// guarded wraps a host function body so that a panic raised while
// servicing an ABI stub (e.g. a bridge bounds error) is reported to the
// engine as a trap instead of unwinding through wasmtime's C call
// stack. A *guest.InvariantError (e.g. a missing Step Context) is a
// host bug, not a guest fault, and is re-raised rather than trapped.
func guarded(fn func(caller *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap)) func(*wt.Caller, []wt.Val) ([]wt.Val, *wt.Trap) {
	return func(caller *wt.Caller, args []wt.Val) (results []wt.Val, trap *wt.Trap) {
		defer func() {
			if r := recover(); r != nil {
				if inv, ok := r.(*guest.InvariantError); ok {
					panic(inv)
				}
				results = nil
				trap = trapf("%v", r)
			}
		}()
		return fn(caller, args)
	}
}
