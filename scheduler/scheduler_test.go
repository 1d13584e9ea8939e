package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmstation/kernel/engine/fake"
	"github.com/wasmstation/kernel/guest"
	"github.com/wasmstation/kernel/internal/wire"
	"github.com/wasmstation/kernel/scheduler"
)

type stubClock struct{}

func (stubClock) Now() float64 { return 0 }

type stubRNG struct{}

func (stubRNG) Read(p []byte) (int, error) { return len(p), nil }

type stubStylesheet struct{}

func (stubStylesheet) Stylesheet() wire.StyleSheet { return wire.StyleSheet{} }

type stubTCP struct{}

func (stubTCP) Connect(ip [4]byte, port uint16) (guest.SocketHandle, error) { return nil, nil }
func (stubTCP) MaySend(guest.SocketHandle) bool                            { return false }
func (stubTCP) MayRecv(guest.SocketHandle) bool                            { return false }
func (stubTCP) Write(guest.SocketHandle, []byte) (int, error)              { return 0, nil }
func (stubTCP) Read(guest.SocketHandle, []byte) (int, error)               { return 0, nil }
func (stubTCP) Close(guest.SocketHandle) error                             { return nil }

func newInstance(t *testing.T, name string, recordedInput *wire.InputState) *guest.Instance {
	t.Helper()
	fake.Register(name, fake.Script{
		Step: func(hooks guest.ABIHooks, mem []byte) error {
			hooks.HostGetInputState(0)
			s := wire.InputState{
				PointerX: int32(le32(mem[0:4])),
				PointerY: int32(le32(mem[4:8])),
				Clicked:  mem[8] != 0,
			}
			count := le32(mem[12:16])
			for i := uint32(0); i < count; i++ {
				off := 16 + i*16
				s.Events = append(s.Events, wire.Event{
					Kind: le32(mem[off : off+4]),
					Code: le32(mem[off+4 : off+8]),
					X:    int32(le32(mem[off+8 : off+12])),
					Y:    int32(le32(mem[off+12 : off+16])),
				})
			}
			*recordedInput = s
			return nil
		},
	})
	eng := fake.New()
	mod, err := eng.Compile([]byte(name))
	require.NoError(t, err)

	var inst *guest.Instance
	raw, err := mod.NewRawInstance(proxy{func() guest.ABIHooks { return inst }})
	require.NoError(t, err)
	inst, err = guest.NewInstance(name, raw, nil)
	require.NoError(t, err)
	return inst
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

type proxy struct{ get func() guest.ABIHooks }

func (p proxy) ClockTimeGet(a uint32) int32                 { return p.get().ClockTimeGet(a) }
func (p proxy) RandomGet(a, b uint32) int32                 { return p.get().RandomGet(a, b) }
func (p proxy) EnvironSizesGet(a, b uint32) int32           { return p.get().EnvironSizesGet(a, b) }
func (p proxy) EnvironGet(a, b uint32) int32                { return p.get().EnvironGet(a, b) }
func (p proxy) ArgsSizesGet(a, b uint32) int32               { return p.get().ArgsSizesGet(a, b) }
func (p proxy) FdWrite(fd int32, a, b, c uint32) int32       { return p.get().FdWrite(fd, a, b, c) }
func (p proxy) HostLog(a, b uint32, l int32)                 { p.get().HostLog(a, b, l) }
func (p proxy) HostGetInputState(a uint32)                   { p.get().HostGetInputState(a) }
func (p proxy) HostGetWinRect(a uint32)                      { p.get().HostGetWinRect(a) }
func (p proxy) HostSetFramebuffer(a, w, h uint32)            { p.get().HostSetFramebuffer(a, w, h) }
func (p proxy) HostGetStylesheet(a uint32)                   { p.get().HostGetStylesheet(a) }
func (p proxy) HostGetTime(a uint32)                         { p.get().HostGetTime(a) }
func (p proxy) HostGetConsumedFuel(a uint32)                 { p.get().HostGetConsumedFuel(a) }
func (p proxy) HostSaveTiming(a, b, c uint32)                { p.get().HostSaveTiming(a, b, c) }
func (p proxy) HostQemuDump(a, b uint32)                     { p.get().HostQemuDump(a, b) }
func (p proxy) HostTCPConnect(ip uint32, port int32) int32   { return p.get().HostTCPConnect(ip, port) }
func (p proxy) HostTCPMaySend(id int32) int32                { return p.get().HostTCPMaySend(id) }
func (p proxy) HostTCPMayRecv(id int32) int32                { return p.get().HostTCPMayRecv(id) }
func (p proxy) HostTCPWrite(a, b uint32, id int32) int32      { return p.get().HostTCPWrite(a, b, id) }
func (p proxy) HostTCPRead(a, b uint32, id int32) int32       { return p.get().HostTCPRead(a, b, id) }
func (p proxy) HostTCPClose(id int32)                         { p.get().HostTCPClose(id) }

func services() *guest.Services {
	return &guest.Services{Clock: stubClock{}, RNG: stubRNG{}, Stylesheet: stubStylesheet{}, TCP: stubTCP{}}
}

func TestInputLocalityForegroundVsBackground(t *testing.T) {
	var fgSeen, bgSeen wire.InputState
	fg := newInstance(t, "fg", &fgSeen)
	bg := newInstance(t, "bg", &bgSeen)

	sch := scheduler.New(services(), 10_000, nil)
	sch.Register("fg", fg, scheduler.Window{
		Rect:       wire.WindowRect{X: 10, Y: 20, W: 100, H: 100},
		Foreground: true,
	})
	sch.Register("bg", bg, scheduler.Window{
		Rect:       wire.WindowRect{X: 0, Y: 0, W: 100, H: 100},
		Foreground: false,
	})

	global := wire.InputState{
		PointerX: 50,
		PointerY: 60,
		Clicked:  true,
		Events: []wire.Event{
			{Kind: 1, Code: 0, X: 50, Y: 60},
		},
	}
	sch.Tick(global)

	assert.Len(t, fgSeen.Events, 1)
	assert.Equal(t, int32(40), fgSeen.PointerX) // 50 - origin.X(10)
	assert.Equal(t, int32(40), fgSeen.PointerY) // 60 - origin.Y(20)
	assert.Equal(t, int32(40), fgSeen.Events[0].X)
	assert.Equal(t, int32(40), fgSeen.Events[0].Y)

	assert.Empty(t, bgSeen.Events)
	assert.Equal(t, int32(50), bgSeen.PointerX)
	assert.Equal(t, int32(60), bgSeen.PointerY)
	assert.True(t, bgSeen.Clicked)
}

func TestRegistrationOrderAndStats(t *testing.T) {
	var lastSeen wire.InputState
	a := newInstance(t, "a", &lastSeen)
	b := newInstance(t, "b", &lastSeen)

	sch := scheduler.New(services(), 5_000, nil)
	sch.Register("a", a, scheduler.Window{Rect: wire.WindowRect{W: 10, H: 10}, Foreground: true})
	sch.Register("b", b, scheduler.Window{Rect: wire.WindowRect{X: 5, W: 10, H: 10}, Foreground: true})

	sch.Tick(wire.InputState{})

	// Both guests record into lastSeen; "b" was registered second, so its
	// window-local pointer (0 - origin.X(5)) is what remains.
	assert.Equal(t, int32(-5), lastSeen.PointerX)

	_, ok := sch.Stats("a")
	assert.True(t, ok)
	_, ok = sch.Stats("b")
	assert.True(t, ok)
	_, ok = sch.Stats("nonexistent")
	assert.False(t, ok)
}

func TestPausedGuestStatsStillRecorded(t *testing.T) {
	var unused wire.InputState
	inst := newInstance(t, "paused", &unused)

	sch := scheduler.New(services(), 1_000, nil)
	sch.Register("paused", inst, scheduler.Window{Rect: wire.WindowRect{W: 10, H: 10}, Paused: true})
	sch.Tick(wire.InputState{})

	point, ok := sch.Stats("paused")
	require.True(t, ok)
	assert.False(t, point.Errored)
}
