package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "texbuilder.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "texbuilder.yaml", file)
		assert.Contains(t, err.Error(), "file=texbuilder.yaml")
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := ToolError("cannot launch").WithContext("command", "lualatex").Build()
		wrapped := fmt.Errorf("processing paper.tex: %w", err)

		assert.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryTool))
		assert.True(t, HasSeverity(wrapped, SeverityFatal))
		assert.Equal(t, CategoryTool, GetCategory(wrapped))
		assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	})
}

func TestErrorBuilder(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapError(cause, CategoryFileSystem, "cannot create target directory").
		WithContext("dir", "/out/chapter").
		Build()

	assert.Equal(t, SeverityError, err.Severity())
	assert.False(t, err.IsFatal())
	assert.True(t, WrapError(cause, CategoryFileSystem, "cannot create target directory").Fatal().Build().IsFatal())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "permission denied")

	withMore := err.WithContext("document", "paper")
	_, hadDoc := err.Context().Get("document")
	assert.False(t, hadDoc, "WithContext must not mutate the receiver")
	doc, _ := withMore.Context().GetString("document")
	assert.Equal(t, "paper", doc)
}

func TestWarningSeverity(t *testing.T) {
	err := NotifyError("publish failed").Warning().Build()
	assert.False(t, err.IsFatal())
	assert.Equal(t, SeverityWarning, err.Severity())
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"x": 1}
	b := ErrorContext{"x": 2, "y": 3}
	merged := a.Merge(b)
	assert.Equal(t, 2, merged["x"])
	assert.Equal(t, 3, merged["y"])
	assert.Equal(t, 1, a["x"])

	var nilCtx ErrorContext
	assert.Equal(t, b, nilCtx.Merge(b))
}
