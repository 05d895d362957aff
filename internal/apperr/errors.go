package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrPackageRequired      = fmt.Errorf("%w: an active package is required", ErrUnauthorized)
	ErrInvalidAddress       = errors.New("invalid message address")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUserNotParticipant   = errors.New("user is not a participant of this conversation")
	ErrMessageNotFound      = errors.New("message not found")
	ErrDecryptionFailure    = errors.New("message could not be decrypted")
	ErrNetwork              = errors.New("network error")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrRateLimited          = errors.New("rate limited")
)

type kind struct {
	err    error
	code   string
	status int
}

// Ordered most specific first: ErrPackageRequired also matches ErrUnauthorized.
var kinds = []kind{
	{ErrPackageRequired, "PACKAGE_REQUIRED", fiber.StatusForbidden},
	{ErrUnauthorized, "UNAUTHORIZED", fiber.StatusForbidden},
	{ErrUserNotFound, "USER_NOT_FOUND", fiber.StatusNotFound},
	{ErrInvalidAddress, "INVALID_ADDRESS", fiber.StatusBadRequest},
	{ErrConversationNotFound, "CONVERSATION_NOT_FOUND", fiber.StatusNotFound},
	{ErrUserNotParticipant, "USER_NOT_PARTICIPANT", fiber.StatusForbidden},
	{ErrMessageNotFound, "MESSAGE_NOT_FOUND", fiber.StatusNotFound},
	{ErrDecryptionFailure, "DECRYPTION_FAILURE", fiber.StatusInternalServerError},
	{ErrInvalidArgument, "INVALID_ARGUMENT", fiber.StatusBadRequest},
	{ErrRateLimited, "RATE_LIMITED", fiber.StatusTooManyRequests},
	{ErrNetwork, "NETWORK_ERROR", fiber.StatusBadGateway},
}

// Code returns the stable wire code for err, or INTERNAL for unknown errors.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "INTERNAL"
}

// Status returns the HTTP status for err.
func Status(err error) int {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return fiber.StatusInternalServerError
}

// Invalid wraps ErrInvalidArgument with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
