// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// Slog returns an *slog.Logger that forwards records to the global
// zerolog logger. Needed for libraries that only accept slog, such as
// the supervisor's event hook.
func Slog(component string) *slog.Logger {
	return slog.New(&slogBridge{logger: WithComponent(component)})
}

// slogBridge adapts slog records onto a zerolog logger. Attrs are
// flattened with their group prefix at the time they are added.
type slogBridge struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	prefix string
}

func (b *slogBridge) Enabled(_ context.Context, level slog.Level) bool {
	return slogToZerolog(level) >= b.logger.GetLevel()
}

func (b *slogBridge) Handle(_ context.Context, rec slog.Record) error {
	ev := b.logger.WithLevel(slogToZerolog(rec.Level))
	for _, attr := range b.attrs {
		ev = ev.Interface(attr.Key, attr.Value.Any())
	}
	rec.Attrs(func(attr slog.Attr) bool {
		ev = ev.Interface(b.prefix+attr.Key, attr.Value.Any())
		return true
	})
	ev.Msg(rec.Message)
	return nil
}

func (b *slogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(b.attrs)+len(attrs))
	merged = append(merged, b.attrs...)
	for _, attr := range attrs {
		merged = append(merged, slog.Attr{Key: b.prefix + attr.Key, Value: attr.Value})
	}
	return &slogBridge{logger: b.logger, attrs: merged, prefix: b.prefix}
}

func (b *slogBridge) WithGroup(name string) slog.Handler {
	if name == "" {
		return b
	}
	return &slogBridge{logger: b.logger, attrs: b.attrs, prefix: b.prefix + name + "."}
}

func slogToZerolog(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
