package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPipeline   = "pipeline"
	KeyTask       = "task"
	KeyRunID      = "run_id"
	KeyStep       = "step"
	KeyPath       = "path"
	KeyFiles      = "files"
	KeyBytes      = "bytes"
	KeyDurationMS = "duration_ms"
	KeyMode       = "mode"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Pipeline(name string) slog.Attr { return slog.String(KeyPipeline, name) }
func Task(name string) slog.Attr     { return slog.String(KeyTask, name) }
func RunID(id string) slog.Attr      { return slog.String(KeyRunID, id) }
func Step(name string) slog.Attr     { return slog.String(KeyStep, name) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func Files(n int) slog.Attr          { return slog.Int(KeyFiles, n) }
func Bytes(n int64) slog.Attr        { return slog.Int64(KeyBytes, n) }
func Mode(m string) slog.Attr        { return slog.String(KeyMode, m) }

// Duration renders d in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// HTTP request fields.
func Method(m string) slog.Attr { return slog.String("method", m) }
func Status(code int) slog.Attr { return slog.Int("status", code) }
