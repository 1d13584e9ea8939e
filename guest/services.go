package guest

import "github.com/wasmstation/kernel/internal/wire"

// SocketHandle is an opaque kernel socket identity. The TCP stack
// collaborator defines the concrete type; the Socket Registry and ABI
// stubs only ever pass it back to the same TCPStack that produced it.
type SocketHandle any

// Clock is the deterministic time side-channel surfaced to guests via
// clock_time_get and host_get_time.
type Clock interface {
	// Now returns the current time in fractional seconds.
	Now() float64
}

// RNG is the deterministic-per-process randomness side-channel
// surfaced to guests via random_get.
type RNG interface {
	Read(p []byte) (int, error)
}

// StylesheetProvider supplies the active UI style record surfaced to
// guests via host_get_stylesheet.
type StylesheetProvider interface {
	Stylesheet() wire.StyleSheet
}

// TCPStack is the in-kernel userspace TCP stack shared across all
// guests. Socket identities it returns are wrapped by the
// Socket Registry so no guest can forge another guest's handle; the
// stack itself has no notion of which guest owns a given handle.
//
// All operations are non-blocking: MaySend/MayRecv are level-triggered
// probes, and Write/Read transfer at most as many bytes as currently
// fit/are available, returning a short count rather than blocking
//.
type TCPStack interface {
	Connect(ip [4]byte, port uint16) (SocketHandle, error)
	MaySend(h SocketHandle) bool
	MayRecv(h SocketHandle) bool
	Write(h SocketHandle, buf []byte) (int, error)
	Read(h SocketHandle, buf []byte) (int, error)
	Close(h SocketHandle) error
}

// Services bundles the mutable kernel services a Step Context lends to
// ABI stubs for the duration of one step.
type Services struct {
	Clock      Clock
	RNG        RNG
	Stylesheet StylesheetProvider
	TCP        TCPStack
}
