package guest

import "github.com/wasmstation/kernel/internal/wire"

// StepContext is the ephemeral, single-step borrow bundle described in
// and §4.3: a mutable reference to shared kernel services, an
// immutable input snapshot, the window rectangle, and a mutable
// per-step timings map. It is created before calling the guest's
// exported step function and cleared unconditionally after it returns.
//
// The context slot on Instance is non-empty exactly when guest code is
// on the host call stack - this is the central soundness argument of
// the runtime.
type StepContext struct {
	Services *Services
	Input    wire.InputState
	WinRect  wire.WindowRect
	Timings  map[string]uint64
}

// withContext installs ctx for the duration of fn and clears it on
// every exit path, including panics propagating out of fn (e.g. a trap
// raised by the engine while the guest's step export runs).
func (g *Instance) withContext(svc *Services, input wire.InputState, rect wire.WindowRect, fn func()) {
	g.stepCtx = &StepContext{
		Services: svc,
		Input:    input,
		WinRect:  rect,
		Timings:  make(map[string]uint64),
	}
	defer func() { g.stepCtx = nil }()
	fn()
}

// withStepContext grants an ABI stub callback access to the installed
// StepContext. It panics - a host bug, not a guest bug - if called
// while no context is installed, which is only possible if a stub is
// invoked outside of withContext.
func (g *Instance) withStepContext(fn func(*StepContext)) {
	if g.stepCtx == nil {
		panic(&InvariantError{Message: "ABI stub invoked with no Step Context installed"})
	}
	fn(g.stepCtx)
}
