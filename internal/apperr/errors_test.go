package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"package required", ErrPackageRequired, "PACKAGE_REQUIRED", http.StatusForbidden},
		{"wrapped package required", fmt.Errorf("send: %w", ErrPackageRequired), "PACKAGE_REQUIRED", http.StatusForbidden},
		{"unauthorized", ErrUnauthorized, "UNAUTHORIZED", http.StatusForbidden},
		{"invalid address", fmt.Errorf("%w: bad index", ErrInvalidAddress), "INVALID_ADDRESS", http.StatusBadRequest},
		{"not participant", ErrUserNotParticipant, "USER_NOT_PARTICIPANT", http.StatusForbidden},
		{"message not found", ErrMessageNotFound, "MESSAGE_NOT_FOUND", http.StatusNotFound},
		{"invalid argument", Invalid("content is empty"), "INVALID_ARGUMENT", http.StatusBadRequest},
		{"unknown", fmt.Errorf("boom"), "INTERNAL", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Code(tt.err))
			assert.Equal(t, tt.status, Status(tt.err))
		})
	}
}

func TestPackageRequiredIsUnauthorized(t *testing.T) {
	assert.ErrorIs(t, ErrPackageRequired, ErrUnauthorized)
}
