// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

package collab

import (
	"log/slog"

	"github.com/thejerf/abtime"
)

type options struct {
	logger *slog.Logger
	clock  abtime.AbstractTime
}

// Option configures a Service.
type Option func(*options)

// WithLogger sets the service logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock sets the time source for created and updated timestamps.
func WithClock(clock abtime.AbstractTime) Option {
	return func(o *options) { o.clock = clock }
}
