// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Research Portal Contributors

// Package errutil holds helpers for oops-coded errors: code extraction,
// structured logging and test assertions.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the oops error code carried by err, or "" when err has none.
// oops reports the deepest code in a wrapped chain.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// LogError logs an error with structured context if it's an oops error.
// For oops errors, it extracts and logs the message, code and context.
// For standard errors, it logs the error string.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, msg, err)
}

// LogErrorContext is LogError with a context, so trace ids reach the handler.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.ErrorContext(ctx, msg, "error", err)
		return
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	if kv := oopsErr.Context(); len(kv) > 0 {
		attrs = append(attrs, "context", kv)
	}
	logger.ErrorContext(ctx, msg, attrs...)
}
