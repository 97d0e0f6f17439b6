package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "config", err: ConfigError("bad preset").Build(), expected: 7},
		{name: "compile", err: CompileError("sass failed").Build(), expected: 11},
		{name: "filesystem", err: FileSystemError("read failed").Build(), expected: 11},
		{name: "server", err: ServerError("bind failed").Build(), expected: 12},
		{name: "internal", err: InternalError("bug").Build(), expected: 10},
		{name: "wrapped classified", err: fmt.Errorf("task: %w", BuildError("x").Build()), expected: 11},
		{name: "unclassified", err: fmt.Errorf("boom"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	assert.Empty(t, quiet.FormatError(nil))
	assert.Equal(t, "Error: boom", quiet.FormatError(fmt.Errorf("boom")))
	assert.Contains(t, quiet.FormatError(ConfigError("unknown preset").Build()), "unknown preset")
	assert.Equal(t, "Internal error occurred (use -v for details)", quiet.FormatError(InternalError("nil map").Build()))
	assert.Contains(t, verbose.FormatError(InternalError("nil map").Build()), "nil map")
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(CompileError("sass failed").WithContext("file", "main.scss").Build())

	require.Equal(t, 11, code)
	assert.Contains(t, out.String(), "sass failed")
	assert.Contains(t, logs.String(), "file=main.scss")
}
