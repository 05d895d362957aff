package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValidationErrors(t *testing.T) {
	type req struct {
		RecipientID string   `json:"recipient_id" validate:"required"`
		Addresses   []string `json:"addresses" validate:"min=1"`
	}
	err := validator.New().Struct(req{})
	require.Error(t, err)

	out := FormatValidationErrors(err)
	require.Len(t, out, 2)
	assert.Equal(t, "RecipientID", out[0].Field)
	assert.Equal(t, "RecipientID is required", out[0].Message)
	assert.Equal(t, "min", out[1].Tag)

	assert.Nil(t, FormatValidationErrors(errors.New("plain")))
}
