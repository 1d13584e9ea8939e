package main

import (
	"crypto/rand"
	"time"

	"github.com/wasmstation/kernel/internal/wire"
)

// wallClock is the default guest.Clock: wall-clock seconds since
// process start, as a monotonic float64.
type wallClock struct {
	start time.Time
}

func newWallClock() wallClock { return wallClock{start: time.Now()} }

func (c wallClock) Now() float64 { return time.Since(c.start).Seconds() }

// systemRNG is the default guest.RNG, backed by crypto/rand.
type systemRNG struct{}

func (systemRNG) Read(p []byte) (int, error) { return rand.Read(p) }

// staticStylesheet is the default guest.StylesheetProvider: a single
// fixed style record. A real desktop shell would swap this for a
// themeable collaborator; nothing in the core depends on the concrete
// values.
type staticStylesheet struct {
	sheet wire.StyleSheet
}

func defaultStylesheet() staticStylesheet {
	return staticStylesheet{sheet: wire.StyleSheet{
		Background:  0x1e1e1eff,
		Foreground:  0xd4d4d4ff,
		Accent:      0x569cd6ff,
		BorderWidth: 1,
	}}
}

func (s staticStylesheet) Stylesheet() wire.StyleSheet { return s.sheet }
