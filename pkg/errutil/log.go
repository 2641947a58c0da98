// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package errutil reads oops error metadata for logging and tests.
package errutil

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/samber/oops"
)

// Code returns the oops code carried by err, or "" when it has none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// ContextString returns a string value attached with oops.With.
func ContextString(err error, key string) (string, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "", false
	}
	s, ok := oopsErr.Context()[key].(string)
	return s, ok
}

// LogError logs err at error level with its code and context attached as
// attributes. ctx reaches the handler so trace ids are included.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	attrs := []slog.Attr{slog.String("error", err.Error())}

	if oopsErr, ok := oops.AsOops(err); ok {
		if code := Code(err); code != "" {
			attrs = append(attrs, slog.String("code", code))
		}
		fields := oopsErr.Context()
		if len(fields) > 0 {
			group := make([]any, 0, len(fields))
			for _, k := range slices.Sorted(maps.Keys(fields)) {
				group = append(group, slog.Any(k, fields[k]))
			}
			attrs = append(attrs, slog.Group("context", group...))
		}
	}

	logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}
