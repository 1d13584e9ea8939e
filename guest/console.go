package guest

import "strings"

// Console is an append-only text stream for one guest, paired with a
// version token that increments on every mutation. Consumers such as a console window observe the token to
// decide whether to re-render instead of diffing the text itself.
//
// pairs its console buffer with a UuidProvider-backed
// TrackedContent wrapper; this port keeps the same observe-the-token
// idea but with a plain monotonic counter; the supplementary UUID
// identity documented in is carried at the Guest Instance
// level instead (see Instance.ID), not duplicated here.
type Console struct {
	sb      strings.Builder
	version uint64
}

// NewConsole returns an empty console stream at version 0.
func NewConsole() *Console {
	return &Console{}
}

// Write appends msg to the stream and increments the version token
// exactly once, regardless of how many bytes msg contains.
func (c *Console) Write(msg string) {
	c.sb.WriteString(msg)
	c.version++
}

// Text returns the full captured stream so far. // appends without any size cap (see Open Questions); this
// port keeps that behavior - callers that need bounded retention should
// wrap Console, not modify it.
func (c *Console) Text() string {
	return c.sb.String()
}

// Version returns the current version token. It strictly increases on
// every Write and never decreases.
func (c *Console) Version() uint64 {
	return c.version
}
