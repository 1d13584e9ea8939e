package guest_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmstation/kernel/engine/fake"
	"github.com/wasmstation/kernel/guest"
	"github.com/wasmstation/kernel/internal/wire"
)

type fixedClock struct{ t float64 }

func (c fixedClock) Now() float64 { return c.t }

type zeroRNG struct{}

func (zeroRNG) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

type fixedStylesheet struct{ s wire.StyleSheet }

func (f fixedStylesheet) Stylesheet() wire.StyleSheet { return f.s }

type noopTCP struct{}

func (noopTCP) Connect(ip [4]byte, port uint16) (guest.SocketHandle, error) { return "sock", nil }
func (noopTCP) MaySend(guest.SocketHandle) bool                            { return true }
func (noopTCP) MayRecv(guest.SocketHandle) bool                            { return false }
func (noopTCP) Write(guest.SocketHandle, []byte) (int, error)              { return 0, nil }
func (noopTCP) Read(guest.SocketHandle, []byte) (int, error)               { return 0, nil }
func (noopTCP) Close(guest.SocketHandle) error                             { return nil }

func testServices() *guest.Services {
	return &guest.Services{
		Clock:      fixedClock{t: 1.5},
		RNG:        zeroRNG{},
		Stylesheet: fixedStylesheet{},
		TCP:        noopTCP{},
	}
}

// newGuest wires a fresh Instance over a fake.Script, following the same
// two-phase construction the wasmtime engine adapter performs: compile,
// then instantiate against the owning Instance's own ABIHooks.
func newGuest(t *testing.T, name string, script fake.Script) *guest.Instance {
	t.Helper()
	fake.Register(name, script)
	eng := fake.New()
	mod, err := eng.Compile([]byte(name))
	require.NoError(t, err)

	var inst *guest.Instance
	raw, err := mod.NewRawInstance(hooksProxy{get: func() guest.ABIHooks { return inst }})
	require.NoError(t, err)

	inst, err = guest.NewInstance(name, raw, nil)
	require.NoError(t, err)
	return inst
}

// hooksProxy defers resolving the real ABIHooks implementation (the
// Instance under construction) until first use, breaking the
// construction cycle: NewRawInstance needs hooks before Instance exists.
type hooksProxy struct {
	get func() guest.ABIHooks
}

func (p hooksProxy) ClockTimeGet(addr uint32) int32              { return p.get().ClockTimeGet(addr) }
func (p hooksProxy) RandomGet(addr, length uint32) int32         { return p.get().RandomGet(addr, length) }
func (p hooksProxy) EnvironSizesGet(a, b uint32) int32           { return p.get().EnvironSizesGet(a, b) }
func (p hooksProxy) EnvironGet(a, b uint32) int32                { return p.get().EnvironGet(a, b) }
func (p hooksProxy) ArgsSizesGet(a, b uint32) int32              { return p.get().ArgsSizesGet(a, b) }
func (p hooksProxy) FdWrite(fd int32, a, b, c uint32) int32      { return p.get().FdWrite(fd, a, b, c) }
func (p hooksProxy) HostLog(addr, length uint32, level int32)    { p.get().HostLog(addr, length, level) }
func (p hooksProxy) HostGetInputState(addr uint32)               { p.get().HostGetInputState(addr) }
func (p hooksProxy) HostGetWinRect(addr uint32)                  { p.get().HostGetWinRect(addr) }
func (p hooksProxy) HostSetFramebuffer(addr, w, h uint32)        { p.get().HostSetFramebuffer(addr, w, h) }
func (p hooksProxy) HostGetStylesheet(addr uint32)               { p.get().HostGetStylesheet(addr) }
func (p hooksProxy) HostGetTime(addr uint32)                     { p.get().HostGetTime(addr) }
func (p hooksProxy) HostGetConsumedFuel(addr uint32)             { p.get().HostGetConsumedFuel(addr) }
func (p hooksProxy) HostSaveTiming(a, b, c uint32)               { p.get().HostSaveTiming(a, b, c) }
func (p hooksProxy) HostQemuDump(addr, length uint32)            { p.get().HostQemuDump(addr, length) }
func (p hooksProxy) HostTCPConnect(ip uint32, port int32) int32  { return p.get().HostTCPConnect(ip, port) }
func (p hooksProxy) HostTCPMaySend(id int32) int32               { return p.get().HostTCPMaySend(id) }
func (p hooksProxy) HostTCPMayRecv(id int32) int32               { return p.get().HostTCPMayRecv(id) }
func (p hooksProxy) HostTCPWrite(a, b uint32, id int32) int32    { return p.get().HostTCPWrite(a, b, id) }
func (p hooksProxy) HostTCPRead(a, b uint32, id int32) int32     { return p.get().HostTCPRead(a, b, id) }
func (p hooksProxy) HostTCPClose(id int32)                       { p.get().HostTCPClose(id) }

func TestFuelAccounting(t *testing.T) {
	g := newGuest(t, "fuel", fake.Script{
		Fuel: 4200,
		Step: func(hooks guest.ABIHooks, mem []byte) error { return nil },
	})
	defer g.Close()

	point, err := g.Step(testServices(), wire.InputState{}, wire.WindowRect{W: 100, H: 100}, 10_000, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(4200), point.Fuel)
}

func TestConsoleMonotonicity(t *testing.T) {
	g := newGuest(t, "console", fake.Script{
		Step: func(hooks guest.ABIHooks, mem []byte) error {
			binWrite(mem, 0, "hello")
			hooks.HostLog(0, 5, 3)
			binWrite(mem, 0, "world")
			hooks.HostLog(0, 5, 3)
			return nil
		},
	})
	defer g.Close()

	_, err := g.Step(testServices(), wire.InputState{}, wire.WindowRect{}, 1000, false)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), g.Console().Version())
	assert.Contains(t, g.Console().Text(), "hello")
	assert.Contains(t, g.Console().Text(), "world")
}

func TestSocketHandleIsolationAcrossGuests(t *testing.T) {
	script := fake.Script{
		Step: func(hooks guest.ABIHooks, mem []byte) error {
			id := hooks.HostTCPConnect(0, 80)
			if id != 0 {
				return errors.New("expected first socket id to be 0")
			}
			return nil
		},
	}
	a := newGuest(t, "socket-a", script)
	b := newGuest(t, "socket-b", script)
	defer a.Close()
	defer b.Close()

	_, err := a.Step(testServices(), wire.InputState{}, wire.WindowRect{}, 1000, false)
	require.NoError(t, err)
	_, err = b.Step(testServices(), wire.InputState{}, wire.WindowRect{}, 1000, false)
	require.NoError(t, err)

	assert.Equal(t, 1, registrySize(a.Sockets()))
	assert.Equal(t, 1, registrySize(b.Sockets()))
}

func registrySize(r *guest.SocketRegistry) int {
	n := 0
	for id := int32(0); ; id++ {
		if _, ok := r.Get(id); !ok {
			break
		}
		n++
	}
	return n
}

func TestFramebufferZeroCopy(t *testing.T) {
	const w, h = 2, 2
	g := newGuest(t, "framebuffer", fake.Script{
		MemSize: 1 << 16,
		Step: func(hooks guest.ABIHooks, mem []byte) error {
			hooks.HostSetFramebuffer(0, w, h)
			for i := range mem[:4*w*h] {
				mem[i] = 0xAA
			}
			return nil
		},
	})
	defer g.Close()

	_, err := g.Step(testServices(), wire.InputState{}, wire.WindowRect{}, 1000, false)
	require.NoError(t, err)

	px, ok := g.Framebuffer()
	require.True(t, ok)
	assert.Len(t, px, 4*w*h)
	for _, b := range px {
		assert.Equal(t, byte(0xAA), b)
	}
}

func TestTrapIsRecoverable(t *testing.T) {
	calls := 0
	g := newGuest(t, "trap", fake.Script{
		Step: func(hooks guest.ABIHooks, mem []byte) error {
			calls++
			if calls == 1 {
				return errors.New("simulated trap")
			}
			return nil
		},
	})
	defer g.Close()

	_, err := g.Step(testServices(), wire.InputState{}, wire.WindowRect{}, 1000, false)
	require.Error(t, err)
	var trapErr *guest.TrapError
	require.ErrorAs(t, err, &trapErr)

	point, err := g.Step(testServices(), wire.InputState{}, wire.WindowRect{}, 1000, false)
	require.NoError(t, err)
	assert.False(t, point.Errored)
}

func TestPausedGuestSkipsStep(t *testing.T) {
	ran := false
	g := newGuest(t, "paused", fake.Script{
		Step: func(hooks guest.ABIHooks, mem []byte) error {
			ran = true
			return nil
		},
	})
	defer g.Close()

	_, err := g.Step(testServices(), wire.InputState{}, wire.WindowRect{}, 1000, true)
	require.NoError(t, err)
	assert.False(t, ran)
}

func binWrite(mem []byte, offset uint32, s string) {
	copy(mem[offset:], s)
}
