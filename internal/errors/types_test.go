package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BaseError
		expected string
	}{
		{
			name:     "message only",
			err:      New(AnnotationErrorCode, "unknown decorator @Frobnicate"),
			expected: "unknown decorator @Frobnicate",
		},
		{
			name: "with location",
			err: New(SyntaxErrorCode, "unexpected token").
				WithLocation(SourceLocation{Source: "UserController.Show", Line: 2, Column: 7}),
			expected: "UserController.Show:2:7: unexpected token",
		},
		{
			name:     "with cause",
			err:      Wrap(DependencyErrorCode, "failed to construct Token(db)", fmt.Errorf("dial tcp: refused")),
			expected: "failed to construct Token(db): dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSourceLocation_String(t *testing.T) {
	assert.Equal(t, "unknown location", SourceLocation{}.String())
	assert.Equal(t, "A.b", SourceLocation{Source: "A.b"}.String())
	assert.Equal(t, "A.b:3", SourceLocation{Source: "A.b", Line: 3}.String())
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     *ConfigurationError
		code    ErrorCode
		message string
	}{
		{
			name:    "missing annotation",
			err:     MissingAnnotation("module", "AppModule"),
			code:    AnnotationErrorCode,
			message: `Class "AppModule" has no module annotation`,
		},
		{
			name:    "duplicate annotation",
			err:     DuplicateAnnotation("controller", "UserController", 2),
			code:    AnnotationErrorCode,
			message: `Class "UserController" has 2 controller annotations, expected exactly one`,
		},
		{
			name:    "missing binding",
			err:     MissingParamBinding("UserController", "Show", 1),
			code:    BindingErrorCode,
			message: "Missing param annotation for param 1 of method UserController:Show",
		},
		{
			name:    "invalid import",
			err:     InvalidImport("AppModule", nil),
			code:    ImportErrorCode,
			message: "Invalid module import <nil> in AppModule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.ErrorCode())
			assert.Equal(t, tt.message, tt.err.Error())

			var nerr NemError
			require.True(t, stderrors.As(fmt.Errorf("bootstrap: %w", tt.err), &nerr))
		})
	}
	assert.Equal(t, []string{"register AppModule with nem.Module before bootstrapping"},
		MissingAnnotation("module", "AppModule").Suggestions())
}

func TestMultipleErrors(t *testing.T) {
	var errs MultipleErrors
	assert.NoError(t, errs.ErrorOrNil())

	cause := stderrors.New("boom")
	errs.Add(New(SyntaxErrorCode, "first"))
	errs.Add(ConstructionFailed("Token(db)", cause))

	err := errs.ErrorOrNil()
	require.Error(t, err)
	assert.Equal(t, "multiple errors (2 total):\n  1. first\n  2. failed to construct Token(db): boom", err.Error())
	assert.Len(t, errs.Errors, 2)
	assert.ErrorIs(t, err, cause)
}
