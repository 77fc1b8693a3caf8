package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("unknown target").Build(), expected: 2},
		{name: "not found", err: NotFoundError("missing source root").Build(), expected: 3},
		{name: "config", err: ConfigError("bad pattern").Build(), expected: 7},
		{name: "tool", err: ToolError("cannot launch").Build(), expected: 8},
		{name: "build", err: BuildError("cannot copy").Build(), expected: 11},
		{name: "filesystem", err: FileSystemError("cannot mkdir").Build(), expected: 11},
		{name: "internal", err: InternalError("bug").Build(), expected: 10},
		{name: "unclassified", err: errors.New("boom"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	cause := errors.New("exec: \"lualatex\": executable file not found in $PATH")
	err := WrapError(cause, CategoryTool, "cannot launch command").Fatal().Build()

	quiet := NewCLIErrorAdapter(false, slog.Default())
	assert.Equal(t, "Error: cannot launch command (use -v for details)", quiet.FormatError(err))

	verbose := NewCLIErrorAdapter(true, slog.Default())
	assert.Contains(t, verbose.FormatError(err), "executable file not found")

	assert.Equal(t, "Error: boom", quiet.FormatError(errors.New("boom")))
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)
	adapter.out = &out

	code := adapter.HandleError(ConfigError("bad pattern").WithContext("field", "latex.main_file_pattern").Build())

	assert.Equal(t, 7, code)
	assert.Contains(t, out.String(), "bad pattern")
	assert.Contains(t, logs.String(), "category=config")
	assert.Contains(t, logs.String(), "field=latex.main_file_pattern")
}
