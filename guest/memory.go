package guest

import "encoding/binary"

// Memory is the minimal view of a guest's linear memory that the
// bridge needs: current size and raw byte access. Engines satisfy this
// directly over their own memory handle (e.g. wasmtime's
// Memory.UnsafeData), so the bridge never depends on a particular
// engine's types.
type Memory interface {
	// Size returns the current size of linear memory in bytes.
	Size() uint32
	// Data returns the full backing byte slice for the current size.
	// Callers must not retain it past the current host call - memory
	// may grow and relocate between calls.
	Data() []byte
}

// Bridge reads and writes typed, fixed-size values and byte slices
// through a guest's linear memory, given (offset, length) tuples
// supplied by guest code. It is the only surface that
// converts guest integers into host memory accesses; every ABI stub
// delegates to it. Bounds are re-checked on every call because linear
// memory may grow between calls.
type Bridge struct {
	mem Memory
}

// NewBridge wraps mem for typed, bounds-checked access.
func NewBridge(mem Memory) *Bridge {
	return &Bridge{mem: mem}
}

// ReadBytes returns a view into guest memory valid for the duration of
// the current host call. It fails with FaultError if offset+len
// exceeds the current memory size.
func (b *Bridge) ReadBytes(offset, length uint32) ([]byte, error) {
	data := b.mem.Data()
	size := b.mem.Size()
	if uint64(offset)+uint64(length) > uint64(size) {
		return nil, &FaultError{Offset: offset, Length: length, MemSize: size}
	}
	return data[offset : offset+length], nil
}

// ReadString is ReadBytes followed by a string conversion, for ABI
// stubs that exchange UTF-8 guest buffers (e.g. host_log, host_save_timing).
func (b *Bridge) ReadString(offset, length uint32) (string, error) {
	buf, err := b.ReadBytes(offset, length)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteBytes copies src into guest memory at offset. Same failure mode
// as ReadBytes.
func (b *Bridge) WriteBytes(offset uint32, src []byte) error {
	data := b.mem.Data()
	size := b.mem.Size()
	length := uint32(len(src))
	if uint64(offset)+uint64(length) > uint64(size) {
		return &FaultError{Offset: offset, Length: length, MemSize: size}
	}
	copy(data[offset:offset+length], src)
	return nil
}

// WriteUint32 writes a little-endian uint32 at offset, used by ABI
// stubs that report lengths or counts back into WASI-shaped output
// buffers (e.g. environ_sizes_get).
func (b *Bridge) WriteUint32(offset, v uint32) error {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return b.WriteBytes(offset, tmp[:])
}

// ReadUint32 reads a little-endian uint32 at offset.
func (b *Bridge) ReadUint32(offset uint32) (uint32, error) {
	buf, err := b.ReadBytes(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}
