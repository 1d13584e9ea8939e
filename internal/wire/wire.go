// Package wire defines the little-endian, packed layouts exchanged across
// the guest/host linear-memory boundary.
package wire

import (
	"encoding/binary"
	"math"
)

// InputState is the window-local input snapshot written by
// host_get_input_state. Layout: pointer x/y as int32, clicked as a
// one-byte bool, 3 bytes padding, then a variable-length event count
// followed by packed Event records.
type InputState struct {
	PointerX int32
	PointerY int32
	Clicked  bool
	Events   []Event
}

// Event is a single input event (key press or pointer click) delivered to
// a guest. Foreground guests see the full list; background guests see
// none.
type Event struct {
	Kind  uint32 // 0 = key, 1 = pointerDown, 2 = pointerUp
	Code  uint32 // key code or button index
	X, Y  int32  // window-local coordinates at time of event
}

const eventSize = 16 // Kind(4) + Code(4) + X(4) + Y(4)

// Marshal packs the InputState using the fixed, platform-independent
// layout guests expect: x,y int32 LE; clicked as 1 byte; 3 bytes pad;
// event count uint32 LE; then that many Event records.
func (s InputState) Marshal() []byte {
	buf := make([]byte, 16+len(s.Events)*eventSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(s.PointerX))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(s.PointerY))
	if s.Clicked {
		buf[8] = 1
	}
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(s.Events)))
	off := 16
	for _, e := range s.Events {
		binary.LittleEndian.PutUint32(buf[off:off+4], e.Kind)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], e.Code)
		binary.LittleEndian.PutUint32(buf[off+8:off+12], uint32(e.X))
		binary.LittleEndian.PutUint32(buf[off+12:off+16], uint32(e.Y))
		off += eventSize
	}
	return buf
}

// WindowRect is (x,y,w,h) as describes: x,y signed 64-bit, w,h
// unsigned 32-bit.
type WindowRect struct {
	X, Y int64
	W, H uint32
}

// Marshal packs WindowRect little-endian: x(8) y(8) w(4) h(4) = 24 bytes.
func (r WindowRect) Marshal() []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.X))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.Y))
	binary.LittleEndian.PutUint32(buf[16:20], r.W)
	binary.LittleEndian.PutUint32(buf[20:24], r.H)
	return buf
}

// Origin returns the top-left corner of the rect, used to translate
// global input into window-local coordinates.
func (r WindowRect) Origin() (int64, int64) {
	return r.X, r.Y
}

// StyleSheet is the active UI style record surfaced to guests via
// host_get_stylesheet. Colors are packed RGBA (one byte per channel).
type StyleSheet struct {
	Background  uint32
	Foreground  uint32
	Accent      uint32
	BorderWidth uint32
}

// Marshal packs StyleSheet as four little-endian uint32 fields (16 bytes).
func (s StyleSheet) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], s.Background)
	binary.LittleEndian.PutUint32(buf[4:8], s.Foreground)
	binary.LittleEndian.PutUint32(buf[8:12], s.Accent)
	binary.LittleEndian.PutUint32(buf[12:16], s.BorderWidth)
	return buf
}

// Float64LE packs a 64-bit float (used for wall-clock seconds) as 8
// little-endian bytes.
func Float64LE(v float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

// Uint64LE packs a 64-bit unsigned integer (used for fuel counters) as 8
// little-endian bytes.
func Uint64LE(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// IPv4LE decodes the 32-bit little-endian integer guests use for IPv4
// addresses into four address bytes.
func IPv4LE(v uint32) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b
}
