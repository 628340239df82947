// logutil.go - slog-Setup mit TRACE-Level
//
// Dieses Modul enthaelt:
// - LevelTrace: zusaetzliches Level unterhalb von DEBUG
// - NewLogger: Text-Handler mit kurzen Quellpfaden
// - Trace/TraceContext: Kurzformen fuer slog.Log auf LevelTrace
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
)

// LevelTrace liegt unterhalb von slog.LevelDebug (SKETCH2FACE_DEBUG=2).
const LevelTrace slog.Level = -8

// NewLogger erzeugt einen Text-Logger nach w. Quelldateien werden auf den
// Basisnamen gekuerzt, LevelTrace erscheint als TRACE.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if attr.Value.Any().(slog.Level) == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

// Trace loggt msg auf LevelTrace mit dem Default-Logger.
func Trace(msg string, args ...any) {
	TraceContext(context.Background(), msg, args...)
}

// TraceContext loggt msg auf LevelTrace mit dem Default-Logger.
func TraceContext(ctx context.Context, msg string, args ...any) {
	slog.Log(ctx, LevelTrace, msg, args...)
}
