// Package scheduler advances all open guests once per compositor frame
//. It owns registration order, the
// foreground/paused gating WasmApp::step performs,
// and per-guest Stats Points; it knows nothing about WASM, memory
// bridging, or the ABI - that all lives in package guest.
package scheduler

import (
	"github.com/sirupsen/logrus"

	"github.com/wasmstation/kernel/guest"
	"github.com/wasmstation/kernel/internal/wire"
)

// Window is a scheduled guest's on-screen placement and scheduling
// state, supplied by the compositor each tick.
type Window struct {
	Rect       wire.WindowRect
	Foreground bool
	Paused     bool
}

// entry pairs one registered guest with its stats slot and last known
// window placement.
type entry struct {
	name     string
	instance *guest.Instance
	stats    *guest.Stats
	win      Window
}

// Scheduler round-robin steps its registered guests in registration
// order every tick.
type Scheduler struct {
	services *guest.Services
	stepFuel uint64
	logger   logrus.FieldLogger

	order   []string
	guests  map[string]*entry
}

// New returns an empty scheduler. services is shared across every
// guest's Step Context for the lifetime of the scheduler; stepFuel is
// the STEP_FUEL budget granted per guest per tick.
func New(services *guest.Services, stepFuel uint64, logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		services: services,
		stepFuel: stepFuel,
		logger:   logger,
		guests:   make(map[string]*entry),
	}
}

// Register adds inst under name, appended to registration order. name
// must be unique; re-registering the same name replaces the prior
// entry's instance while keeping its position and stats slot.
func (s *Scheduler) Register(name string, inst *guest.Instance, win Window) {
	if e, ok := s.guests[name]; ok {
		e.instance = inst
		e.win = win
		return
	}
	s.guests[name] = &entry{name: name, instance: inst, stats: guest.NewStats(), win: win}
	s.order = append(s.order, name)
}

// SetWindow updates the placement/foreground/paused state the next
// tick will use for name, e.g. after the compositor moves or focuses a
// window.
func (s *Scheduler) SetWindow(name string, win Window) {
	if e, ok := s.guests[name]; ok {
		e.win = win
	}
}

// Unregister drops name from the schedule and closes its instance.
func (s *Scheduler) Unregister(name string) error {
	e, ok := s.guests[name]
	if !ok {
		return nil
	}
	delete(s.guests, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return e.instance.Close()
}

// Instance returns the registered guest.Instance for name, so a
// compositor collaborator can blit its framebuffer after a tick
// without the scheduler needing to know anything about pixels.
func (s *Scheduler) Instance(name string) (*guest.Instance, bool) {
	e, ok := s.guests[name]
	if !ok {
		return nil, false
	}
	return e.instance, true
}

// Stats returns the most recently recorded Stats Point for name.
func (s *Scheduler) Stats(name string) (guest.StatsPoint, bool) {
	e, ok := s.guests[name]
	if !ok {
		return guest.StatsPoint{}, false
	}
	return e.stats.Get(), true
}

// Tick advances every registered guest once, in registration order
//. global is the compositor's full-screen input
// snapshot for this frame. Per-guest traps are logged and do not
// interrupt the rest of the tick.
func (s *Scheduler) Tick(global wire.InputState) {
	for _, name := range s.order {
		e := s.guests[name]
		local := windowLocalInput(global, e.win)

		point, err := e.instance.Step(s.services, local, e.win.Rect, s.stepFuel, e.win.Paused)
		e.stats.Set(point)
		if err != nil {
			s.logger.WithField("guest", name).WithError(err).Warn("guest trapped")
		}
	}
}

// windowLocalInput builds the per-guest input snapshot: events are
// dropped entirely for background guests (pointer state only), and
// pointer coordinates are translated into window-local space for every
// guest.
func windowLocalInput(global wire.InputState, win Window) wire.InputState {
	ox, oy := win.Rect.Origin()

	local := wire.InputState{
		PointerX: global.PointerX - int32(ox),
		PointerY: global.PointerY - int32(oy),
		Clicked:  global.Clicked,
	}
	if !win.Foreground {
		return local
	}

	local.Events = make([]wire.Event, len(global.Events))
	for i, ev := range global.Events {
		local.Events[i] = wire.Event{
			Kind: ev.Kind,
			Code: ev.Code,
			X:    ev.X - int32(ox),
			Y:    ev.Y - int32(oy),
		}
	}
	return local
}
