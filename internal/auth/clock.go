// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package auth

import (
	"log/slog"

	"github.com/thejerf/abtime"
)

type options struct {
	logger *slog.Logger
	clock  abtime.AbstractTime
}

// Option configures a service.
type Option func(*options)

// WithLogger sets the service logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the time source. Tests pass an abtime.ManualTime.
func WithClock(clock abtime.AbstractTime) Option {
	return func(o *options) { o.clock = clock }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.clock == nil {
		o.clock = abtime.NewRealTime()
	}
	return o
}
