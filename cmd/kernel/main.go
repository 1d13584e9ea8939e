// Command kernel hosts one or more WASM guest applications, stepping
// them on a fixed tick against a software-backed compositor, TCP stack,
// and device layer. It is a demo harness, not a
// bootable kernel: the peripheral collaborators (device, net) are
// software stand-ins, never hardware drivers.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wasmstation/kernel/compositor"
	"github.com/wasmstation/kernel/device"
	"github.com/wasmstation/kernel/engine/wasmtime"
	"github.com/wasmstation/kernel/guest"
	"github.com/wasmstation/kernel/internal/wire"
	"github.com/wasmstation/kernel/net"
	"github.com/wasmstation/kernel/scheduler"
)

type cliArgs struct {
	modulePaths []string
	tickHz      int
}

func parseArgs() cliArgs {
	tickHz := flag.Int("hz", 60, "display tick rate")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		os.Stderr.WriteString("usage: kernel [-hz N] module.wasm [module.wasm ...]\n")
		os.Exit(1)
	}
	return cliArgs{modulePaths: paths, tickHz: *tickHz}
}

func main() {
	args := parseArgs()
	cfg := NewKernelConfig()
	logger := cfg.Logger

	eng := wasmtime.New()
	services := &guest.Services{
		Clock:      newWallClock(),
		RNG:        systemRNG{},
		Stylesheet: defaultStylesheet(),
		TCP:        net.New(cfg.TCPQueueDepth),
	}

	sched := scheduler.New(services, cfg.StepFuel, logger)
	comp := compositor.New(sched, logger)

	for i, path := range args.modulePaths {
		name, inst, err := loadGuest(eng, path, logger)
		if err != nil {
			logger.WithError(err).Fatalf("loading guest %s", path)
		}
		rect := wire.WindowRect{
			X: int64(i * 20), Y: int64(i * 20),
			W: cfg.WindowW, H: cfg.WindowH,
		}
		comp.Open(name, inst, rect, i == 0)
		logger.WithField("guest", name).Info("guest opened")
	}

	// No real VirtIO input/GPU hardware is available to a hosted Go
	// process; input is a no-op source and presentation discards
	// frames, but both run through the same device interfaces a real
	// paravirtualized backend would implement.
	input := device.NewStaticInput()
	gpu := device.NullGPU{W: cfg.WindowW, H: cfg.WindowH}

	tick := time.Second / time.Duration(args.tickHz)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for range ticker.C {
		blits := comp.Tick(input.Poll())
		for name, pixels := range blits {
			rect, ok := comp.Rect(name)
			if !ok {
				continue
			}
			if err := gpu.Present(pixels, rect.W, rect.H); err != nil {
				logger.WithField("guest", name).WithError(err).Warn("presenting framebuffer")
			}
		}
	}
}

func loadGuest(eng guest.Engine, path string, logger logrus.FieldLogger) (string, *guest.Instance, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	mod, err := eng.Compile(code)
	if err != nil {
		return "", nil, err
	}

	name := filepath.Base(path)
	var inst *guest.Instance
	raw, err := mod.NewRawInstance(abiProxy{func() guest.ABIHooks { return inst }})
	if err != nil {
		return "", nil, err
	}
	inst, err = guest.NewInstance(name, raw, logger)
	if err != nil {
		return "", nil, err
	}
	return name, inst, nil
}

// abiProxy breaks the construction cycle between a raw engine instance
// (which needs ABIHooks up front) and the guest.Instance that
// implements ABIHooks (which needs a raw instance to wrap): hooks are
// resolved lazily on first ABI call, by which point NewInstance has
// returned.
type abiProxy struct {
	get func() guest.ABIHooks
}

func (p abiProxy) ClockTimeGet(a uint32) int32               { return p.get().ClockTimeGet(a) }
func (p abiProxy) RandomGet(a, b uint32) int32                { return p.get().RandomGet(a, b) }
func (p abiProxy) EnvironSizesGet(a, b uint32) int32          { return p.get().EnvironSizesGet(a, b) }
func (p abiProxy) EnvironGet(a, b uint32) int32               { return p.get().EnvironGet(a, b) }
func (p abiProxy) ArgsSizesGet(a, b uint32) int32             { return p.get().ArgsSizesGet(a, b) }
func (p abiProxy) FdWrite(fd int32, a, b, c uint32) int32     { return p.get().FdWrite(fd, a, b, c) }
func (p abiProxy) HostLog(a, b uint32, level int32)           { p.get().HostLog(a, b, level) }
func (p abiProxy) HostGetInputState(a uint32)                 { p.get().HostGetInputState(a) }
func (p abiProxy) HostGetWinRect(a uint32)                    { p.get().HostGetWinRect(a) }
func (p abiProxy) HostSetFramebuffer(a, w, h uint32)          { p.get().HostSetFramebuffer(a, w, h) }
func (p abiProxy) HostGetStylesheet(a uint32)                 { p.get().HostGetStylesheet(a) }
func (p abiProxy) HostGetTime(a uint32)                       { p.get().HostGetTime(a) }
func (p abiProxy) HostGetConsumedFuel(a uint32)               { p.get().HostGetConsumedFuel(a) }
func (p abiProxy) HostSaveTiming(a, b, c uint32)               { p.get().HostSaveTiming(a, b, c) }
func (p abiProxy) HostQemuDump(a, b uint32)                    { p.get().HostQemuDump(a, b) }
func (p abiProxy) HostTCPConnect(ip uint32, port int32) int32 { return p.get().HostTCPConnect(ip, port) }
func (p abiProxy) HostTCPMaySend(id int32) int32               { return p.get().HostTCPMaySend(id) }
func (p abiProxy) HostTCPMayRecv(id int32) int32               { return p.get().HostTCPMayRecv(id) }
func (p abiProxy) HostTCPWrite(a, b uint32, id int32) int32    { return p.get().HostTCPWrite(a, b, id) }
func (p abiProxy) HostTCPRead(a, b uint32, id int32) int32     { return p.get().HostTCPRead(a, b, id) }
func (p abiProxy) HostTCPClose(id int32)                       { p.get().HostTCPClose(id) }
