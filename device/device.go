// Package device models the paravirtualized-device boundary (GPU,
// input, network) deliberately thin: real VirtIO/PCI/UEFI access has
// no meaning inside a hosted Go process, so this package only defines
// small interfaces matching the shape of non-blocking
// try_recv/try_send device drivers, plus software-backed
// implementations enough to drive cmd/kernel and tests end-to-end.
package device

import "github.com/wasmstation/kernel/internal/wire"

// MaxPacketSize is virtio-net's own MTU ceiling.
const MaxPacketSize = 1514

// NetworkDevice is the non-blocking packet interface a VirtIO network
// device exposes: try_recv/try_send, never blocking the single
// cooperative thread.
type NetworkDevice interface {
	TryRecv() (packet []byte, ok bool)
	TrySend(packet []byte) bool
	MACAddress() [6]byte
}

// GPU is the display surface a VirtIO GPU device exposes: present a
// full frame of packed RGBA pixels at the given resolution.
type GPU interface {
	Present(pixels []byte, w, h uint32) error
	Resolution() (w, h uint32)
}

// InputDevice delivers queued raw input events since the last Poll,
// mirroring the VirtIO input device's event queue.
type InputDevice interface {
	Poll() wire.InputState
}

// LoopbackNetwork is a software-backed NetworkDevice: packets sent are
// immediately available to receive, the same simplification package
// net makes for TCP sockets. It exists so cmd/kernel and tests can
// exercise the device.NetworkDevice seam without real VirtIO hardware.
type LoopbackNetwork struct {
	mac   [6]byte
	queue [][]byte
}

// NewLoopbackNetwork returns a LoopbackNetwork with the given MAC.
func NewLoopbackNetwork(mac [6]byte) *LoopbackNetwork {
	return &LoopbackNetwork{mac: mac}
}

func (n *LoopbackNetwork) MACAddress() [6]byte { return n.mac }

func (n *LoopbackNetwork) TrySend(packet []byte) bool {
	if len(packet) > MaxPacketSize {
		return false
	}
	n.queue = append(n.queue, append([]byte(nil), packet...))
	return true
}

func (n *LoopbackNetwork) TryRecv() ([]byte, bool) {
	if len(n.queue) == 0 {
		return nil, false
	}
	pkt := n.queue[0]
	n.queue = n.queue[1:]
	return pkt, true
}

// NullGPU discards presented frames; it exists so code that needs a
// GPU collaborator can run headless (e.g. in tests or a non-graphical
// demo mode).
type NullGPU struct {
	W, H uint32
}

func (g NullGPU) Present(pixels []byte, w, h uint32) error { return nil }
func (g NullGPU) Resolution() (uint32, uint32)             { return g.W, g.H }

// StaticInput replays a fixed sequence of input snapshots, one per
// Poll call, then repeats the last one - useful for deterministic
// tests and scripted demos.
type StaticInput struct {
	frames []wire.InputState
	idx    int
}

// NewStaticInput returns an InputDevice that replays frames in order.
func NewStaticInput(frames ...wire.InputState) *StaticInput {
	return &StaticInput{frames: frames}
}

func (s *StaticInput) Poll() wire.InputState {
	if len(s.frames) == 0 {
		return wire.InputState{}
	}
	f := s.frames[s.idx]
	if s.idx < len(s.frames)-1 {
		s.idx++
	}
	return f
}

var (
	_ NetworkDevice = (*LoopbackNetwork)(nil)
	_ GPU           = NullGPU{}
	_ InputDevice   = (*StaticInput)(nil)
)
