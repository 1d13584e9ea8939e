package wasmtime

import (
	"fmt"

	wt "github.com/bytecodealliance/wasmtime-go/v25"

	"github.com/wasmstation/kernel/guest"
)

// stubSignature gives the real wasi_snapshot_preview1 parameter kinds
// for each import this runtime does not implement, so wasmtime's
// import-type check at instantiation matches what a real wasm32-wasi
// guest actually declares. Every one of these returns a single i32
// errno (proc_exit returns nothing, handled separately below). Most
// parameters are i32 pointers/handles/lengths; fd_seek's offset,
// fd_filestat_set_size's size, fd_readdir's cookie, path_open's two
// rights masks, and path_filestat_set_times' two timestamps are i64.
var stubSignature = map[string][]wt.ValKind{
	"fd_filestat_set_size":    {wt.KindI32, wt.KindI64},
	"fd_read":                 i32Kinds(4),
	"fd_readdir":              {wt.KindI32, wt.KindI32, wt.KindI32, wt.KindI64, wt.KindI32},
	"path_create_directory":   i32Kinds(3),
	"path_filestat_get":       i32Kinds(5),
	"path_link":               i32Kinds(7),
	"path_open":               {wt.KindI32, wt.KindI32, wt.KindI32, wt.KindI32, wt.KindI32, wt.KindI64, wt.KindI64, wt.KindI32, wt.KindI32},
	"path_readlink":           i32Kinds(6),
	"path_remove_directory":   i32Kinds(3),
	"path_rename":             i32Kinds(6),
	"path_unlink_file":        i32Kinds(3),
	"poll_oneoff":             i32Kinds(4),
	"sched_yield":             i32Kinds(0),
	"fd_close":                i32Kinds(1),
	"fd_filestat_get":         i32Kinds(2),
	"fd_prestat_dir_name":     i32Kinds(3),
	"fd_sync":                 i32Kinds(1),
	"path_filestat_set_times": {wt.KindI32, wt.KindI32, wt.KindI32, wt.KindI32, wt.KindI64, wt.KindI64, wt.KindI32},
	"fd_fdstat_set_flags":     i32Kinds(2),
	"args_get":                i32Kinds(2),
	"proc_exit":               i32Kinds(1),
	"fd_fdstat_get":           i32Kinds(2),
	"fd_seek":                 {wt.KindI32, wt.KindI64, wt.KindI32, wt.KindI32},
	"fd_prestat_get":          i32Kinds(2),
}

// linkWASI wires the portable wasi_snapshot_preview1 subset that is
// actually implemented, then fills in every remaining
// stubbed import per guest.WASIStubs, plus the env-namespace
// __main_argc_argv stub also declares.
func linkWASI(linker *wt.Linker, store *wt.Store, hooks guest.ABIHooks) error {
	const ns = "wasi_snapshot_preview1"

	type def struct {
		name   string
		params []wt.ValKind
		result int
		fn     func(*wt.Caller, []wt.Val) ([]wt.Val, *wt.Trap)
	}

	implemented := []def{
		{"clock_time_get", []wt.ValKind{wt.KindI32, wt.KindI64, wt.KindI32}, 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			// clock_id, precision are accepted but unused: the runtime
			// surfaces a single deterministic clock regardless of id.
			ret := hooks.ClockTimeGet(u32(args[2]))
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"random_get", i32Kinds(2), 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.RandomGet(u32(args[0]), u32(args[1]))
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"environ_sizes_get", i32Kinds(2), 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.EnvironSizesGet(u32(args[0]), u32(args[1]))
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"environ_get", i32Kinds(2), 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.EnvironGet(u32(args[0]), u32(args[1]))
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"args_sizes_get", i32Kinds(2), 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.ArgsSizesGet(u32(args[0]), u32(args[1]))
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
		{"fd_write", i32Kinds(4), 1, func(_ *wt.Caller, args []wt.Val) ([]wt.Val, *wt.Trap) {
			ret := hooks.FdWrite(args[0].I32(), u32(args[1]), u32(args[2]), u32(args[3]))
			return []wt.Val{wt.ValI32(ret)}, nil
		}},
	}

	for _, d := range implemented {
		f := wt.NewFunc(store, fnTypeKinds(d.params, d.result), guarded(d.fn))
		if err := linker.Define(store, ns, d.name, f); err != nil {
			return fmt.Errorf("defining %s.%s: %w", ns, d.name, err)
		}
	}

	for _, stub := range guest.WASIStubs {
		kinds, ok := stubSignature[stub.Name]
		if !ok {
			return fmt.Errorf("no signature recorded for wasi stub %q", stub.Name)
		}
		stub := stub
		results := 1
		if stub.Name == "proc_exit" {
			results = 0
		}
		fn := guarded(func(_ *wt.Caller, _ []wt.Val) ([]wt.Val, *wt.Trap) {
			if stub.Panics {
				return nil, trapf("WASM function %s() is not implemented (stub)", stub.Name)
			}
			if results == 0 {
				return nil, nil
			}
			return []wt.Val{wt.ValI32(stub.Errno)}, nil
		})
		f := wt.NewFunc(store, fnTypeKinds(kinds, results), fn)
		if err := linker.Define(store, ns, stub.Name, f); err != nil {
			return fmt.Errorf("defining %s.%s: %w", ns, stub.Name, err)
		}
	}

	// __main_argc_argv: some toolchains' runtime init expects this
	// under the env namespace; argc/argv are always empty, so it's
	// always a benign stub.
	argcArgv := wt.NewFunc(store, fnType(2, 1), guarded(func(_ *wt.Caller, _ []wt.Val) ([]wt.Val, *wt.Trap) {
		return []wt.Val{wt.ValI32(0)}, nil
	}))
	if err := linker.Define(store, "env", "__main_argc_argv", argcArgv); err != nil {
		return fmt.Errorf("defining env.__main_argc_argv: %w", err)
	}

	return nil
}
