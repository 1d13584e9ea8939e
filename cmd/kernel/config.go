package main

import (
	"github.com/sirupsen/logrus"
)

// KernelConfig bundles the handful of values cmd/kernel needs to wire
// up a scheduler and engine: the per-tick fuel budget, default window
// size, and logger.
// There is no config file format in scope - configuration is
// programmatic, built via functional options, in the same spirit as
// wasmtime-go's Config and wazero's RuntimeConfig builders.
type KernelConfig struct {
	StepFuel      uint64
	WindowW       uint32
	WindowH       uint32
	TCPQueueDepth uint64
	Logger        logrus.FieldLogger
}

// Option configures a KernelConfig.
type Option func(*KernelConfig)

// WithStepFuel overrides the default STEP_FUEL budget granted to every
// guest per tick.
func WithStepFuel(fuel uint64) Option {
	return func(c *KernelConfig) { c.StepFuel = fuel }
}

// WithWindowSize overrides the default window resolution new guests
// are opened at.
func WithWindowSize(w, h uint32) Option {
	return func(c *KernelConfig) { c.WindowW, c.WindowH = w, h }
}

// WithTCPQueueDepth overrides the per-socket queue depth package net
// uses for its loopback TCP stack.
func WithTCPQueueDepth(depth uint64) Option {
	return func(c *KernelConfig) { c.TCPQueueDepth = depth }
}

// WithLogger overrides the structured logger threaded through the
// scheduler, compositor, and ABI stubs.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *KernelConfig) { c.Logger = logger }
}

// defaultStepFuel is effectively unbounded: a saturating sentinel
// rather than a tight cooperative budget.
const defaultStepFuel = ^uint64(0)

// NewKernelConfig returns a KernelConfig with sane defaults, applying
// opts in order.
func NewKernelConfig(opts ...Option) KernelConfig {
	c := KernelConfig{
		StepFuel:      defaultStepFuel,
		WindowW:       320,
		WindowH:       240,
		TCPQueueDepth: 64,
		Logger:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
