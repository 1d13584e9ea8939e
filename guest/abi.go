package guest

import (
	"strings"

	"github.com/wasmstation/kernel/internal/wire"
)

// ABIHooks is the full set of host functions an engine adapter links
// into a guest module, under the wasi_snapshot_preview1 and env
// namespaces. Instance implements ABIHooks directly;
// engine adapters only translate engine-specific call conventions
// (argument unpacking, trap propagation) into these calls - they never
// reimplement ABI semantics themselves.
//
// Every env stub that reports success/failure uses a non-negative value
// for success and -1 for failure, per convention. The
// wasi_snapshot_preview1 functions return a WASI errno instead (0 on
// success).
type ABIHooks interface {
	// Portable wasi_snapshot_preview1 subset.
	ClockTimeGet(timeAddr uint32) int32
	RandomGet(addr, length uint32) int32
	EnvironSizesGet(countAddr, bufSizeAddr uint32) int32
	EnvironGet(environAddr, environBufAddr uint32) int32
	ArgsSizesGet(argcAddr, argvBufSizeAddr uint32) int32
	FdWrite(fd int32, iovsAddr, iovsLen, nwrittenAddr uint32) int32

	// env namespace.
	HostLog(addr, length uint32, level int32)
	HostGetInputState(addr uint32)
	HostGetWinRect(addr uint32)
	HostSetFramebuffer(addr, w, h uint32)
	HostGetStylesheet(addr uint32)
	HostGetTime(addr uint32)
	HostGetConsumedFuel(addr uint32)
	HostSaveTiming(keyAddr, keyLen, consumedAddr uint32)
	HostQemuDump(addr, length uint32)
	HostTCPConnect(ipAddr uint32, port int32) int32
	HostTCPMaySend(id int32) int32
	HostTCPMayRecv(id int32) int32
	HostTCPWrite(addr, length uint32, id int32) int32
	HostTCPRead(addr, length uint32, id int32) int32
	HostTCPClose(id int32)
}

var _ ABIHooks = (*Instance)(nil)

// envVars is the fixed, one-entry virtual process environment surfaced
// to WASI. Args are always empty.
var envVars = []string{"RUST_BACKTRACE=full"}

// ClockTimeGet implements clock_time_get: writes the current step's
// clock value, in nanoseconds, as a little-endian uint64 at timeAddr.
func (g *Instance) ClockTimeGet(timeAddr uint32) int32 {
	var ns uint64
	g.withStepContext(func(ctx *StepContext) {
		ns = uint64(ctx.Services.Clock.Now() * 1e9)
	})
	if err := g.bridge.WriteBytes(timeAddr, wire.Uint64LE(ns)); err != nil {
		panic(err)
	}
	return 0
}

// RandomGet implements random_get: fills length bytes at addr from the
// step's RNG.
func (g *Instance) RandomGet(addr, length uint32) int32 {
	buf := make([]byte, length)
	g.withStepContext(func(ctx *StepContext) {
		if _, err := ctx.Services.RNG.Read(buf); err != nil {
			panic(err)
		}
	})
	if err := g.bridge.WriteBytes(addr, buf); err != nil {
		panic(err)
	}
	return 0
}

// EnvironSizesGet implements environ_sizes_get for the fixed
// single-entry environment.
func (g *Instance) EnvironSizesGet(countAddr, bufSizeAddr uint32) int32 {
	var size uint32
	for _, v := range envVars {
		size += uint32(len(v)) + 1
	}
	if err := g.bridge.WriteUint32(countAddr, uint32(len(envVars))); err != nil {
		panic(err)
	}
	if err := g.bridge.WriteUint32(bufSizeAddr, size); err != nil {
		panic(err)
	}
	return 0
}

// EnvironGet implements environ_get: writes the pointer table and the
// NUL-terminated strings it points to.
func (g *Instance) EnvironGet(environAddr, environBufAddr uint32) int32 {
	pAddr := environAddr
	sAddr := environBufAddr
	for _, v := range envVars {
		if err := g.bridge.WriteUint32(pAddr, sAddr); err != nil {
			panic(err)
		}
		pAddr += 4
		b := append([]byte(v), 0)
		if err := g.bridge.WriteBytes(sAddr, b); err != nil {
			panic(err)
		}
		sAddr += uint32(len(b))
	}
	return 0
}

// ArgsSizesGet implements args_sizes_get for the always-empty args
// vector.
func (g *Instance) ArgsSizesGet(argcAddr, argvBufSizeAddr uint32) int32 {
	if err := g.bridge.WriteUint32(argcAddr, 0); err != nil {
		panic(err)
	}
	if err := g.bridge.WriteUint32(argvBufSizeAddr, 0); err != nil {
		panic(err)
	}
	return 0
}

// FdWrite implements fd_write for fd==1 (stdout) only: guest output is
// appended to the Console Stream and emitted at debug level. Writes to any other fd return an error errno.
func (g *Instance) FdWrite(fd int32, iovsAddr, iovsLen, nwrittenAddr uint32) int32 {
	const errnoBadFile = 8

	if fd != 1 {
		return errnoBadFile
	}

	var written uint32
	off := iovsAddr
	for i := uint32(0); i < iovsLen; i++ {
		base, err := g.bridge.ReadUint32(off)
		if err != nil {
			panic(err)
		}
		length, err := g.bridge.ReadUint32(off + 4)
		if err != nil {
			panic(err)
		}
		s, err := g.bridge.ReadString(base, length)
		if err != nil {
			panic(err)
		}
		g.logStdout(s)
		written += length
		off += 8
	}

	if err := g.bridge.WriteUint32(nwrittenAddr, written); err != nil {
		panic(err)
	}
	return 0
}

// logStdout appends s to the console stream and emits it through the
// structured logger at debug level (the same severity host_log uses for
// level 4).
func (g *Instance) logStdout(s string) {
	g.console.Write(s)
	g.logger.WithField("guest", g.Name).Debug(strings.TrimRight(s, "\n"))
}

// HostLog implements host_log: appends guest UTF-8 bytes to the
// console stream and emits them at the requested host log level
//.
func (g *Instance) HostLog(addr, length uint32, level int32) {
	msg, err := g.bridge.ReadString(addr, length)
	if err != nil {
		panic(err)
	}
	msg = strings.TrimRight(msg, "\n")
	g.withStepContext(func(*StepContext) {
		g.console.Write(msg + "\n")
		entry := g.logger.WithField("guest", g.Name)
		switch level {
		case 1:
			entry.Error(msg)
		case 2:
			entry.Warn(msg)
		case 3:
			entry.Info(msg)
		case 4:
			entry.Debug(msg)
		default:
			entry.Trace(msg)
		}
	})
}

// HostGetInputState implements host_get_input_state: writes the
// current per-guest input snapshot.
func (g *Instance) HostGetInputState(addr uint32) {
	g.withStepContext(func(ctx *StepContext) {
		if err := g.bridge.WriteBytes(addr, ctx.Input.Marshal()); err != nil {
			panic(err)
		}
	})
}

// HostGetWinRect implements host_get_win_rect: writes the current
// window rectangle.
func (g *Instance) HostGetWinRect(addr uint32) {
	g.withStepContext(func(ctx *StepContext) {
		if err := g.bridge.WriteBytes(addr, ctx.WinRect.Marshal()); err != nil {
			panic(err)
		}
	})
}

// HostSetFramebuffer implements host_set_framebuffer: registers the
// guest's framebuffer region. The host does not validate
// bounds at registration time - that check happens lazily whenever the
// region is read (see Instance.Framebuffer).
func (g *Instance) HostSetFramebuffer(addr, w, h uint32) {
	g.fbRegion = &FramebufferRegion{Offset: addr, W: w, H: h}
}

// HostGetStylesheet implements host_get_stylesheet.
func (g *Instance) HostGetStylesheet(addr uint32) {
	g.withStepContext(func(ctx *StepContext) {
		if err := g.bridge.WriteBytes(addr, ctx.Services.Stylesheet.Stylesheet().Marshal()); err != nil {
			panic(err)
		}
	})
}

// HostGetTime implements host_get_time: writes wall-clock seconds as a
// 64-bit float.
func (g *Instance) HostGetTime(addr uint32) {
	g.withStepContext(func(ctx *StepContext) {
		if err := g.bridge.WriteBytes(addr, wire.Float64LE(ctx.Services.Clock.Now())); err != nil {
			panic(err)
		}
	})
}

// HostGetConsumedFuel implements host_get_consumed_fuel: writes the
// fuel consumed since step start.
func (g *Instance) HostGetConsumedFuel(addr uint32) {
	consumed, ok := g.raw.FuelConsumed()
	if !ok {
		panic(&InvariantError{Message: "fuel metering disabled"})
	}
	if err := g.bridge.WriteBytes(addr, wire.Uint64LE(consumed)); err != nil {
		panic(err)
	}
}

// HostSaveTiming implements host_save_timing: records a named sub-step
// fuel sample for the current step.
func (g *Instance) HostSaveTiming(keyAddr, keyLen, consumedAddr uint32) {
	key, err := g.bridge.ReadString(keyAddr, keyLen)
	if err != nil {
		panic(err)
	}
	consumedBuf, err := g.bridge.ReadBytes(consumedAddr, 8)
	if err != nil {
		panic(err)
	}
	var consumed uint64
	for i := 7; i >= 0; i-- {
		consumed = consumed<<8 | uint64(consumedBuf[i])
	}
	g.withStepContext(func(ctx *StepContext) {
		ctx.Timings[key] = consumed
	})
}

// HostQemuDump implements host_qemu_dump: a diagnostic stub. Real
// physical-memory dumping is a hardware-debugging feature with no
// meaning inside a hosted Go process; this logs the requested range at
// debug level instead of leaking an address.
func (g *Instance) HostQemuDump(addr, length uint32) {
	g.logger.WithField("guest", g.Name).Debugf("qemu dump requested: addr=%#x len=%d", addr, length)
}

// HostTCPConnect implements host_tcp_connect.
func (g *Instance) HostTCPConnect(ipAddr uint32, port int32) int32 {
	var id int32 = -1
	g.withStepContext(func(ctx *StepContext) {
		h, err := ctx.Services.TCP.Connect(wire.IPv4LE(ipAddr), uint16(port))
		if err != nil {
			g.logger.WithField("guest", g.Name).Errorf("tcp connect failed: %v", err)
			return
		}
		id = g.sockets.Add(h)
	})
	return id
}

// HostTCPMaySend implements host_tcp_may_send.
func (g *Instance) HostTCPMaySend(id int32) int32 {
	h, ok := g.sockets.Get(id)
	if !ok {
		return 0
	}
	var may bool
	g.withStepContext(func(ctx *StepContext) {
		may = ctx.Services.TCP.MaySend(h)
	})
	return boolToI32(may)
}

// HostTCPMayRecv implements host_tcp_may_recv.
func (g *Instance) HostTCPMayRecv(id int32) int32 {
	h, ok := g.sockets.Get(id)
	if !ok {
		return 0
	}
	var may bool
	g.withStepContext(func(ctx *StepContext) {
		may = ctx.Services.TCP.MayRecv(h)
	})
	return boolToI32(may)
}

// HostTCPWrite implements host_tcp_write.
func (g *Instance) HostTCPWrite(addr, length uint32, id int32) int32 {
	h, ok := g.sockets.Get(id)
	if !ok {
		return -1
	}
	buf, err := g.bridge.ReadBytes(addr, length)
	if err != nil {
		panic(err)
	}
	var n int
	var wErr error
	g.withStepContext(func(ctx *StepContext) {
		n, wErr = ctx.Services.TCP.Write(h, buf)
	})
	if wErr != nil {
		g.logger.WithField("guest", g.Name).Errorf("tcp write failed: %v", wErr)
		return -1
	}
	g.netSent += n
	return int32(n)
}

// HostTCPRead implements host_tcp_read. A zero-byte read is reported
// as success-with-zero, not as "would block" - guests distinguish the
// two by polling host_tcp_may_recv first.
func (g *Instance) HostTCPRead(addr, length uint32, id int32) int32 {
	h, ok := g.sockets.Get(id)
	if !ok {
		return -1
	}
	buf := make([]byte, length)
	var n int
	var rErr error
	g.withStepContext(func(ctx *StepContext) {
		n, rErr = ctx.Services.TCP.Read(h, buf)
	})
	if rErr != nil {
		g.logger.WithField("guest", g.Name).Errorf("tcp read failed: %v", rErr)
		return -1
	}
	if err := g.bridge.WriteBytes(addr, buf[:n]); err != nil {
		panic(err)
	}
	g.netRecv += n
	return int32(n)
}

// HostTCPClose implements host_tcp_close: closes the underlying socket
// and drops the registry entry. The id is never reused.
func (g *Instance) HostTCPClose(id int32) {
	h, ok := g.sockets.Get(id)
	if !ok {
		return
	}
	g.withStepContext(func(ctx *StepContext) {
		if err := ctx.Services.TCP.Close(h); err != nil {
			g.logger.WithField("guest", g.Name).Errorf("tcp close failed: %v", err)
		}
	})
	g.sockets.Drop(id)
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
