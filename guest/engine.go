package guest

// Engine compiles guest module bytes. It is the same narrow contract
// wapc-go exposes as its own Engine interface, generalized from waPC's
// request/response model to this spec's init/step model: one compiled
// Module per guest binary, instantiated once per open window.
type Engine interface {
	Name() string
	Compile(code []byte) (Module, error)
}

// Module is a compiled, not-yet-instantiated guest binary.
type Module interface {
	// NewRawInstance instantiates the module, linking the ABI stub
	// table against hooks so that guest calls into env/
	// wasi_snapshot_preview1 reach back into the owning Instance.
	NewRawInstance(hooks ABIHooks) (RawInstance, error)
	Close() error
}

// RawInstance is the engine-specific half of a Guest Instance: the
// compiled module's execution store, its linear memory, and fuel
// accounting. Instance (this package) wraps a RawInstance with the
// engine-agnostic ABI/Step-Context/bridge logic described in .
type RawInstance interface {
	// Memory returns a view over the instance's current linear memory.
	Memory() Memory
	// CallInit invokes the guest's nullary init export, if present.
	CallInit() error
	// CallStep invokes the guest's nullary step export under the
	// current fuel budget. A non-nil error is a guest trap.
	CallStep() error
	// SetFuel resets the fuel counter to n before a step.
	SetFuel(n uint64) error
	// FuelConsumed returns the fuel consumed since the last SetFuel and
	// whether metering is enabled, mirroring wasmtime.Store.FuelConsumed.
	FuelConsumed() (consumed uint64, ok bool)
	Close() error
}
