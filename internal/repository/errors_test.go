package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	missing := &pq.Error{Code: "42703", Message: `column "generated_video_url" does not exist`}
	other := &pq.Error{Code: "23505", Message: "duplicate key"}

	assert.NoError(t, MapError("save", nil))

	err := MapError("save", fmt.Errorf("exec: %w", missing))
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "save:")

	err = MapError("save", other)
	assert.NotErrorIs(t, err, ErrMissingColumn)
	assert.ErrorIs(t, err, other)

	err = MapError("save", errors.New("PGRST204: Could not find the 'x' column"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}
