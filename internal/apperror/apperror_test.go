package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		typ  Type
		code int
	}{
		{"validation", NewValidation("bad"), TypeValidation, http.StatusBadRequest},
		{"not found", NewNotFound("gone"), TypeNotFound, http.StatusNotFound},
		{"conflict", NewConflict("dup"), TypeConflict, http.StatusConflict},
		{"unauthorized", NewUnauthorized("who"), TypeUnauthorized, http.StatusUnauthorized},
		{"forbidden", NewForbidden("no"), TypeForbidden, http.StatusForbidden},
		{"internal", NewInternal("boom"), TypeInternal, http.StatusInternalServerError},
		{"bad request", NewBadRequest("huh"), TypeBadRequest, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
}

func TestGetThroughWrapping(t *testing.T) {
	base := NewNotFound("ticket not found")
	wrapped := fmt.Errorf("delete: %w", base)

	got := Get(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "ticket not found", got.Message)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Nil(t, Get(errors.New("plain")))
}

func TestErrorIncludesDetails(t *testing.T) {
	err := NewValidation("validation failed", "priority is required", "reason is required")
	assert.Equal(t, "validation_error: validation failed (priority is required; reason is required)", err.Error())
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := NewInternal("create failed").WithCause(cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(errors.New("Error 1062 (23000): Duplicate entry 'A1' for key 'assets.kaplan_unit_no'")))
	assert.False(t, IsDuplicateError(errors.New("Error 1452: foreign key")))
	assert.False(t, IsDuplicateError(nil))
}
