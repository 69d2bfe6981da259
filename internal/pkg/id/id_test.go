package id

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsULID(t *testing.T) {
	_, err := ulid.Parse(New())
	require.NoError(t, err)
	assert.NotEqual(t, New(), New())
}

func TestForDelivery_Deterministic(t *testing.T) {
	assert.Equal(t, ForDelivery("u1", "evt-1"), ForDelivery("u1", "evt-1"))
	assert.NotEqual(t, ForDelivery("u1", "evt-1"), ForDelivery("u2", "evt-1"))
	assert.NotEqual(t, ForDelivery("u1", "evt-1"), ForDelivery("u1", "evt-2"))
	// The separator keeps ("ab","c") and ("a","bc") apart.
	assert.NotEqual(t, ForDelivery("ab", "c"), ForDelivery("a", "bc"))
}
