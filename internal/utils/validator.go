package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message,omitempty"`
}

// FormatValidationErrors converts validator.ValidationErrors into a slice of ValidationError
func FormatValidationErrors(err error) []ValidationError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]ValidationError, len(ve))
	for i, fe := range ve {
		out[i] = ValidationError{Field: fe.Field(), Tag: fe.Tag()}
		switch fe.Tag() {
		case "required":
			out[i].Message = fmt.Sprintf("%s is required", fe.Field())
		case "max":
			out[i].Message = fmt.Sprintf("%s must be at most %s long", fe.Field(), fe.Param())
		case "min":
			out[i].Message = fmt.Sprintf("%s must have at least %s entries", fe.Field(), fe.Param())
		default:
			out[i].Message = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
		}
	}
	return out
}
