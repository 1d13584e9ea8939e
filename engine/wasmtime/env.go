package wasmtime

import (
	wt "github.com/bytecodealliance/wasmtime-go/v25"

	"github.com/wasmstation/kernel/guest"
)

func i32Type() *wt.ValType { return wt.NewValType(wt.KindI32) }

// fnType builds a function type with `params` i32 parameters and
// `results` i32 results. Use fnTypeKinds instead for imports whose real
// wasi_snapshot_preview1 signature has a non-i32 (e.g. i64) parameter.
func fnType(params, results int) *wt.FuncType {
	return fnTypeKinds(i32Kinds(params), results)
}

// fnTypeKinds builds a function type from an explicit per-parameter
// kind list, with `results` i32 results (every ABI surface and WASI
// stub in this runtime returns at most one i32 errno/value).
func fnTypeKinds(params []wt.ValKind, results int) *wt.FuncType {
	p := make([]*wt.ValType, len(params))
	for i, k := range params {
		p[i] = wt.NewValType(k)
	}
	r := make([]*wt.ValType, results)
	for i := range r {
		r[i] = i32Type()
	}
	return wt.NewFuncType(p, r)
}

// i32Kinds returns n repetitions of wt.KindI32.
func i32Kinds(n int) []wt.ValKind {
	ks := make([]wt.ValKind, n)
	for i := range ks {
		ks[i] = wt.KindI32
	}
	return ks
}

func defineEnv(linker *wt.Linker, store *wt.Store, name string, params, results int, fn func(*wt.Caller, []wt.Val) ([]wt.Val, *wt.Trap)) error {
	f := wt.NewFunc(store, fnType(params, results), guarded(fn))
	return linker.Define(store, "env", name, f)
}

// linkEnv wires the host-specific `env` surface against hooks.
func linkEnv(linker *wt.Linker, store *wt.Store, hooks guest.ABIHooks) error {
	type def struct {
		name           string
		params, result int
		fn             func(*wt.Caller, []wt.Val) ([]wt.Val, *wt.Trap)
	}

	defs := []def{
		{"host_log", 3, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostLog(u32(args[0]), u32(args[1]), args[2].I32())
			return nil, nil
		}},
		{"host_get_input_state", 1, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostGetInputState(u32(args[0]))
			return nil, nil
		}},
		{"host_get_win_rect", 1, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostGetWinRect(u32(args[0]))
			return nil, nil
		}},
		{"host_set_framebuffer", 3, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostSetFramebuffer(u32(args[0]), u32(args[1]), u32(args[2]))
			return nil, nil
		}},
		{"host_get_stylesheet", 1, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostGetStylesheet(u32(args[0]))
			return nil, nil
		}},
		{"host_get_time", 1, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostGetTime(u32(args[0]))
			return nil, nil
		}},
		{"host_get_consumed_fuel", 1, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostGetConsumedFuel(u32(args[0]))
			return nil, nil
		}},
		{"host_save_timing", 3, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostSaveTiming(u32(args[0]), u32(args[1]), u32(args[2]))
			return nil, nil
		}},
		{"host_qemu_dump", 2, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostQemuDump(u32(args[0]), u32(args[1]))
			return nil, nil
		}},
		{"host_tcp_connect", 2, 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.HostTCPConnect(u32(args[0]), args[1].I32())
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"host_tcp_may_send", 1, 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.HostTCPMaySend(args[0].I32())
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"host_tcp_may_recv", 1, 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.HostTCPMayRecv(args[0].I32())
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"host_tcp_write", 3, 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.HostTCPWrite(u32(args[0]), u32(args[1]), args[2].I32())
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"host_tcp_read", 3, 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.HostTCPRead(u32(args[0]), u32(args[1]), args[2].I32())
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"host_tcp_close", 1, 0, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			hooks.HostTCPClose(args[0].I32())
			return nil, nil
		}},
	}

	for _, d := range defs {
		if err := defineEnv(linker, store, d.name, d.params, d.result, d.fn); err != nil {
			return err
		}
	}
	return nil
}

func u32(v wt.Val) uint32 { return uint32(v.I32()) }
