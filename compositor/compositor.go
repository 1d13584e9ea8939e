// Package compositor is the peripheral collaborator that owns window
// placement, the display tick, and zero-copy blit of each guest's
// framebuffer. It
// drives package scheduler but never touches WASM or ABI details
// directly.
package compositor

import (
	"github.com/sirupsen/logrus"

	"github.com/wasmstation/kernel/guest"
	"github.com/wasmstation/kernel/internal/wire"
	"github.com/wasmstation/kernel/scheduler"
)

// Surface is one window's placement and drag state, as seen by the
// compositor. The scheduler only needs Rect/Foreground/Paused; drag
// bookkeeping lives here instead,
// since it is a compositor concern, not a core scheduling one
//.
type Surface struct {
	Name       string
	Rect       wire.WindowRect
	Foreground bool
	Paused     bool

	dragging bool
	grabDX   int64
	grabDY   int64
}

// WindowManager is the interface a real compositor backend (input
// device, window chrome, launcher) drives the core through. BeginDrag/
// EndDrag model grab_pos-based window dragging; the
// core itself never computes drag physics (peripheral, per // component table).
type WindowManager interface {
	BeginDrag(name string, pointerX, pointerY int64)
	EndDrag(name string)
	Focus(name string)
}

// Compositor owns a Scheduler and the window placement the scheduler's
// per-tick input translation depends on.
type Compositor struct {
	sched    *scheduler.Scheduler
	surfaces map[string]*Surface
	order    []string
	logger   logrus.FieldLogger
}

// New wires a Compositor on top of sched.
func New(sched *scheduler.Scheduler, logger logrus.FieldLogger) *Compositor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Compositor{sched: sched, surfaces: make(map[string]*Surface), logger: logger}
}

// Open registers a new guest instance as a window with the given
// initial rectangle, and adds it to the scheduler.
func (c *Compositor) Open(name string, inst *guest.Instance, rect wire.WindowRect, foreground bool) {
	s := &Surface{Name: name, Rect: rect, Foreground: foreground}
	c.surfaces[name] = s
	c.order = append(c.order, name)
	c.sched.Register(name, inst, toWindow(s))
}

// Close removes name from the compositor and the scheduler, closing
// its guest instance.
func (c *Compositor) Close(name string) error {
	delete(c.surfaces, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return c.sched.Unregister(name)
}

// Rect returns name's current window rectangle.
func (c *Compositor) Rect(name string) (wire.WindowRect, bool) {
	s, ok := c.surfaces[name]
	if !ok {
		return wire.WindowRect{}, false
	}
	return s.Rect, true
}

// Focus makes name the sole foreground window, demoting every other
// open window to background.
func (c *Compositor) Focus(name string) {
	for n, s := range c.surfaces {
		s.Foreground = n == name
		c.sched.SetWindow(n, toWindow(s))
	}
}

// BeginDrag starts moving name's window, recording the pointer offset
// from its origin so Tick can keep the window under the pointer.
func (c *Compositor) BeginDrag(name string, pointerX, pointerY int64) {
	s, ok := c.surfaces[name]
	if !ok {
		return
	}
	s.dragging = true
	s.grabDX = pointerX - s.Rect.X
	s.grabDY = pointerY - s.Rect.Y
}

// EndDrag stops moving name's window.
func (c *Compositor) EndDrag(name string) {
	if s, ok := c.surfaces[name]; ok {
		s.dragging = false
	}
}

// SetPaused pauses or resumes name without removing it from the
// schedule.
func (c *Compositor) SetPaused(name string, paused bool) {
	if s, ok := c.surfaces[name]; ok {
		s.Paused = paused
		c.sched.SetWindow(name, toWindow(s))
	}
}

// Tick applies pending drags against the global pointer position, then
// steps every guest once, then blits each guest's framebuffer region
// into the returned map. Surfaces whose framebuffer region is currently
// out of bounds are simply absent from the result for this tick.
func (c *Compositor) Tick(global wire.InputState) map[string][]byte {
	for _, name := range c.order {
		s := c.surfaces[name]
		if !s.dragging {
			continue
		}
		s.Rect.X = int64(global.PointerX) - s.grabDX
		s.Rect.Y = int64(global.PointerY) - s.grabDY
		c.sched.SetWindow(name, toWindow(s))
	}

	c.sched.Tick(global)

	blits := make(map[string][]byte, len(c.order))
	for _, name := range c.order {
		inst, ok := c.instance(name)
		if !ok {
			continue
		}
		px, ok := inst.Framebuffer()
		if !ok {
			continue
		}
		blits[name] = px
	}
	return blits
}

// instance is a small seam kept for testability: the scheduler owns
// guest.Instance values, not Compositor, so blitting asks the
// scheduler for the same instance it just stepped.
func (c *Compositor) instance(name string) (*guest.Instance, bool) {
	return c.sched.Instance(name)
}

func toWindow(s *Surface) scheduler.Window {
	return scheduler.Window{Rect: s.Rect, Foreground: s.Foreground, Paused: s.Paused}
}

var _ WindowManager = (*Compositor)(nil)
