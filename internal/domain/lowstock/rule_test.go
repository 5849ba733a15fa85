package lowstock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/apperror"
)

func TestRule_Default(t *testing.T) {
	r, err := NewRule(DefaultRule)
	require.NoError(t, err)

	low, err := r.Matches(4, 5, "raw_material")
	require.NoError(t, err)
	assert.True(t, low)

	low, err = r.Matches(5, 5, "raw_material")
	require.NoError(t, err)
	assert.False(t, low)
}

func TestRule_Custom(t *testing.T) {
	r, err := NewRule(`kind == "finished" ? quantity < min_stock * 2.0 : quantity < min_stock`)
	require.NoError(t, err)

	low, err := r.Matches(8, 5, "finished")
	require.NoError(t, err)
	assert.True(t, low)

	low, err = r.Matches(8, 5, "raw_material")
	require.NoError(t, err)
	assert.False(t, low)
}

func TestRule_Invalid(t *testing.T) {
	_, err := NewRule("quantity <")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = NewRule("quantity + 1.0")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
