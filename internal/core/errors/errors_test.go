package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/nightconcept/nativepkg/internal/core/errors"
)

func TestStructuredError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      *rerrors.StructuredError
		expected string
	}{
		{
			name:     "error without cause",
			err:      rerrors.New(rerrors.ErrCodeExtraction, "bad archive"),
			expected: "[EXTRACTION] bad archive",
		},
		{
			name:     "error with cause",
			err:      rerrors.Wrap(rerrors.ErrCodeSourceUnavailable, "fetch failed", stderrors.New("404")),
			expected: "[SOURCE_UNAVAILABLE] fetch failed: 404",
		},
		{
			name: "error with context and cause",
			err: rerrors.WrapWithContext(rerrors.ErrCodeBuildFailure, "configure failed", stderrors.New("exit status 1"),
				map[string]any{"step": "configure", "exit_code": 1}),
			expected: "[BUILD_FAILURE] configure failed (exit_code=1, step=configure): exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestStructuredError_IsMatchesCode(t *testing.T) {
	t.Parallel()
	err := rerrors.NewWithContext(rerrors.ErrCodeTestFailure, "ctest failed", map[string]any{"exit_code": 8})
	wrapped := fmt.Errorf("run aborted: %w", err)

	assert.ErrorIs(t, wrapped, rerrors.ErrTestFailure)
	assert.NotErrorIs(t, wrapped, rerrors.ErrBuildFailure)
	assert.Equal(t, rerrors.ErrCodeTestFailure, rerrors.CodeOf(wrapped))
}

func TestStructuredError_UnwrapsCause(t *testing.T) {
	t.Parallel()
	cause := stderrors.New("connection refused")
	err := rerrors.Wrap(rerrors.ErrCodeSourceUnavailable, "download failed", cause)

	require.ErrorIs(t, err, cause)
	var se *rerrors.StructuredError
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &se)
	assert.Equal(t, rerrors.ErrCodeSourceUnavailable, se.Code)
}

func TestCodeOf_PlainError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, rerrors.ErrorCode(""), rerrors.CodeOf(stderrors.New("plain")))
	assert.Equal(t, rerrors.ErrorCode(""), rerrors.CodeOf(nil))
}
