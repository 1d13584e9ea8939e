// Package fake is a pure-Go, no-cgo stand-in for guest.Engine. It lets
// guest's own tests exercise the ABI/Step-Context/bridge logic against
// a scripted guest behavior instead of a real compiled WASM binary,
// mirroring the named-fixture-per-engine pattern wapc-go's own
// engine_test.go uses (its testGuests/lang map, driving each
// registered engine through the same guest fixtures by name).
package fake

import (
	"fmt"
	"sync"

	"github.com/wasmstation/kernel/guest"
)

// Script is a named scripted guest: instead of compiled WASM bytes, a
// test registers a Script under a name and compiles it by passing that
// name as the "code" to Engine.Compile.
type Script struct {
	// MemSize is the linear memory size presented to the host, in bytes.
	MemSize uint32
	// Init runs once, mirroring a guest's optional init export.
	Init func(hooks guest.ABIHooks, mem []byte) error
	// Step runs on every Instance.Step call, mirroring the guest's step
	// export. Mem is the instance's own backing linear memory; Step may
	// read and write it directly, exactly as compiled guest code would
	// through its own memory space.
	Step func(hooks guest.ABIHooks, mem []byte) error
	// Fuel is the amount FuelConsumed reports was spent by one Step
	// call, simulating the engine's real metering.
	Fuel uint64
}

var (
	mu       sync.Mutex
	registry = map[string]Script{}
)

// Register makes a Script available under name for Engine.Compile.
func Register(name string, s Script) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = s
}

type engine struct{}

// New returns a guest.Engine backed by scripts registered via Register.
func New() guest.Engine { return engine{} }

func (engine) Name() string { return "fake" }

func (engine) Compile(code []byte) (guest.Module, error) {
	name := string(code)
	mu.Lock()
	s, ok := registry[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fake: no script registered under %q", name)
	}
	return module{script: s}, nil
}

type module struct{ script Script }

func (module) Close() error { return nil }

func (m module) NewRawInstance(hooks guest.ABIHooks) (guest.RawInstance, error) {
	memSize := m.script.MemSize
	if memSize == 0 {
		memSize = 64 * 1024
	}
	r := &rawInstance{
		script: m.script,
		hooks:  hooks,
		mem:    make([]byte, memSize),
	}
	return r, nil
}

// rawInstance implements guest.RawInstance by running the Script's
// Init/Step closures directly against an in-process byte slice, with no
// real fuel budget enforcement: fuel accounting is simulated, since a
// scripted guest cannot be interrupted mid-instruction the way a real
// WASM trap would be.
type rawInstance struct {
	script   Script
	hooks    guest.ABIHooks
	mem      []byte
	fuelSet  uint64
	consumed uint64
	closed   bool
}

func (r *rawInstance) Memory() guest.Memory { return memoryView{r} }

func (r *rawInstance) CallInit() error {
	if r.script.Init == nil {
		return nil
	}
	return r.script.Init(r.hooks, r.mem)
}

func (r *rawInstance) CallStep() error {
	r.consumed = r.script.Fuel
	if r.script.Step == nil {
		return nil
	}
	return r.script.Step(r.hooks, r.mem)
}

func (r *rawInstance) SetFuel(n uint64) error {
	r.fuelSet = n
	r.consumed = 0
	return nil
}

func (r *rawInstance) FuelConsumed() (uint64, bool) {
	return r.consumed, true
}

func (r *rawInstance) Close() error {
	r.closed = true
	return nil
}

type memoryView struct{ r *rawInstance }

func (v memoryView) Size() uint32 { return uint32(len(v.r.mem)) }
func (v memoryView) Data() []byte { return v.r.mem }
