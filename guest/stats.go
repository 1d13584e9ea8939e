package guest

import "time"

// StatsPoint is a per-tick record for one guest. It is overwritten every tick; the core retains no
// history, matching AppDataPoint which the scheduler
// stores by value and replaces each frame.
type StatsPoint struct {
	Fuel        uint64        // fuel consumed this step (wasmtime Store.FuelConsumed)
	FrameTime   time.Duration // wall time elapsed during the step
	MemoryBytes uint32        // current linear-memory size in bytes
	BytesRecv   int           // bytes read across all sockets this step
	BytesSent   int           // bytes written across all sockets this step

	// Timings holds named sub-step fuel samples recorded via
	// host_save_timing during the step. Empty (non-nil) if the guest
	// recorded none.
	Timings map[string]uint64

	// Errored is set when the step trapped; Fuel/FrameTime still
	// reflect the partial step.
	Errored bool
}

// Stats is the per-guest stats slot maintained by the scheduler. Reads
// and writes happen only between steps (single-threaded cooperative
// model), so no synchronization is needed.
type Stats struct {
	point StatsPoint
}

// NewStats returns a zero-valued stats slot.
func NewStats() *Stats {
	return &Stats{}
}

// Set overwrites the current point.
func (s *Stats) Set(p StatsPoint) {
	s.point = p
}

// Get returns the current point.
func (s *Stats) Get() StatsPoint {
	return s.point
}
