package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	FileURL string `json:"file_url" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
	Note    string `json:"note,omitempty" validate:"omitempty,max=4"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sampleRequest
		missing string
		invalid bool
	}{
		{name: "complete", input: sampleRequest{FileURL: "https://x/doc.pdf", UserID: "u1"}},
		{name: "missing file_url", input: sampleRequest{UserID: "u1"}, missing: "file_url"},
		{name: "missing user_id", input: sampleRequest{FileURL: "https://x/doc.pdf"}, missing: "user_id"},
		{name: "both missing reports first", input: sampleRequest{}, missing: "file_url"},
		{name: "other rule", input: sampleRequest{FileURL: "a", UserID: "b", Note: "too long"}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			switch {
			case tt.missing != "":
				var missing *MissingFieldError
				if assert.True(t, errors.As(err, &missing)) {
					assert.Equal(t, tt.missing, missing.Field)
					assert.Equal(t, "Missing "+tt.missing, err.Error())
				}
			case tt.invalid:
				assert.Error(t, err)
				var missing *MissingFieldError
				assert.False(t, errors.As(err, &missing))
			default:
				assert.NoError(t, err)
			}
		})
	}
}
