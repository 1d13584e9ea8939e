package guest

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wasmstation/kernel/internal/wire"
)

// Instance is one long-lived WASM module instance: one Guest Instance
// per open window. It holds the compiled module's raw
// execution handle, the guest's declared framebuffer region (nil until
// registered), the Socket Registry, the captured console stream,
// per-step network byte counters, and the current Step Context slot
// (nil between steps).
type Instance struct {
	// ID is a random identifier assigned to this guest at construction.
	// Log fields and the scheduler's stats are keyed by Name, not ID.
	ID   uuid.UUID
	Name string

	raw    RawInstance
	bridge *Bridge
	logger logrus.FieldLogger

	fbRegion *FramebufferRegion
	sockets  *SocketRegistry
	console  *Console

	netRecv int
	netSent int

	stepCtx *StepContext
}

// NewInstance wraps a freshly-instantiated RawInstance with the
// engine-agnostic ABI/bridge/registry state every Guest Instance
// carries, and runs the guest's init export, if present.
func NewInstance(name string, raw RawInstance, logger logrus.FieldLogger) (*Instance, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	g := &Instance{
		ID:      uuid.New(),
		Name:    name,
		raw:     raw,
		bridge:  NewBridge(raw.Memory()),
		logger:  logger,
		sockets: NewSocketRegistry(),
		console: NewConsole(),
	}
	if err := raw.CallInit(); err != nil {
		return nil, &TrapError{Guest: name, Cause: err}
	}
	return g, nil
}

// MemorySize returns the guest's current linear-memory size in bytes.
func (g *Instance) MemorySize() uint32 {
	return g.raw.Memory().Size()
}

// Console returns the guest's captured stdout/host_log stream.
func (g *Instance) Console() *Console {
	return g.console
}

// Sockets returns the guest's socket registry (exposed for tests that
// assert handle isolation across guests).
func (g *Instance) Sockets() *SocketRegistry {
	return g.sockets
}

// Step runs one tick for this guest: resets the per-step net counters,
// installs a fresh Step Context bounded by STEP_FUEL, invokes the
// guest's step export unless paused, and returns a StatsPoint. A trap is reported as a *TrapError; the guest
// remains instantiatable on the next call.
func (g *Instance) Step(svc *Services, input wire.InputState, rect wire.WindowRect, stepFuel uint64, paused bool) (StatsPoint, error) {
	g.netRecv = 0
	g.netSent = 0

	if err := g.raw.SetFuel(stepFuel); err != nil {
		return StatsPoint{}, err
	}

	t0 := svc.Clock.Now()

	var stepErr error
	var timings map[string]uint64
	g.withContext(svc, input, rect, func() {
		if !paused {
			stepErr = g.raw.CallStep()
		}
		timings = g.stepCtx.Timings
	})

	t1 := svc.Clock.Now()

	consumed, _ := g.raw.FuelConsumed()

	point := StatsPoint{
		Fuel:        consumed,
		FrameTime:   time.Duration((t1 - t0) * float64(time.Second)),
		MemoryBytes: g.MemorySize(),
		BytesRecv:   g.netRecv,
		BytesSent:   g.netSent,
		Timings:     timings,
	}

	if stepErr != nil {
		point.Errored = true
		return point, &TrapError{Guest: g.Name, Cause: stepErr}
	}
	return point, nil
}

// Close releases the underlying raw instance.
func (g *Instance) Close() error {
	return g.raw.Close()
}
