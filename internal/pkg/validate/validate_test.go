package validate

import (
	"errors"
	"testing"

	"github.com/school-notify/internal/domain"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name     string   `json:"name" validate:"required"`
	Channels []string `json:"channels" validate:"omitempty,dive,channel"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "a", Channels: []string{"mail", "SMS"}}))
}

func TestStruct_UnknownChannel(t *testing.T) {
	err := Struct(sample{Name: "a", Channels: []string{"fax"}})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.ErrorContains(t, err, "channels[0]")
	assert.ErrorContains(t, err, "'channel'")
}

func TestStruct_MissingRequired_UsesJSONName(t *testing.T) {
	err := Struct(sample{})
	assert.ErrorContains(t, err, "sample.name")
}
