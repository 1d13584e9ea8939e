package guest

// StubPolicy describes how an unimplemented wasi_snapshot_preview1
// function should behave when a guest calls it: either trap, or return
// a fixed errno. Engine adapters use it to decide, per imported WASI
// name, whether to wire a panicking stub or a fixed-errno stub.
type StubPolicy struct {
	Name string
	// Panics is true for dangerous/unsupported calls where there is no
	// safe errno to return (the runtime does not emulate a filesystem
	// or process model).
	Panics bool
	// Errno is returned when Panics is false.
	Errno int32
}

const (
	errnoSuccess = 0
	errnoBadFS   = 8
)

// WASIStubs enumerates every wasi_snapshot_preview1 import this runtime
// does not give a real implementation to, and the policy chosen for
// each - a direct port of two linker_stub! tables.
var WASIStubs = []StubPolicy{
	// Panicking stubs: the runtime does not attempt to emulate a
	// filesystem.
	{Name: "fd_filestat_set_size", Panics: true},
	{Name: "fd_read", Panics: true},
	{Name: "fd_readdir", Panics: true},
	{Name: "path_create_directory", Panics: true},
	{Name: "path_filestat_get", Panics: true},
	{Name: "path_link", Panics: true},
	{Name: "path_open", Panics: true},
	{Name: "path_readlink", Panics: true},
	{Name: "path_remove_directory", Panics: true},
	{Name: "path_rename", Panics: true},
	{Name: "path_unlink_file", Panics: true},
	{Name: "poll_oneoff", Panics: true},
	{Name: "sched_yield", Panics: true},
	{Name: "fd_close", Panics: true},
	{Name: "fd_filestat_get", Panics: true},
	{Name: "fd_prestat_dir_name", Panics: true},
	{Name: "fd_sync", Panics: true},
	{Name: "path_filestat_set_times", Panics: true},
	{Name: "fd_fdstat_set_flags", Panics: true},

	// Benign stubs: return a fixed errno rather than panic.
	{Name: "args_get", Errno: errnoSuccess},
	{Name: "proc_exit", Errno: errnoSuccess},
	{Name: "fd_fdstat_get", Errno: errnoBadFS},
	{Name: "fd_seek", Errno: errnoBadFS},
	{Name: "fd_prestat_get", Errno: errnoBadFS},
}
