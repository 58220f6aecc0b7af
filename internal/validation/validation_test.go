package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"min=1,max=5"`
	Level string `json:"level" validate:"oneof=easy hard"`
	Link  string `form:"link" validate:"omitempty,url"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "n", Count: 3, Level: "easy"}))

	err := Struct(sample{Count: 9, Level: "medium", Link: "not a url"})
	require.Error(t, err)
	assert.True(t, Is(err))

	fields := Fields(err)
	assert.Equal(t, "name is required", fields["name"])
	assert.Equal(t, "count must be at most 5", fields["count"])
	assert.Equal(t, "level must be one of: easy hard", fields["level"])
	assert.Equal(t, "link must be a valid URL", fields["link"])
	assert.Contains(t, err.Error(), "validation failed: ")
}

func TestNewAndIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New("url", "url is not a YouTube link"))
	assert.True(t, Is(err))
	assert.Equal(t, "url is not a YouTube link", Fields(err)["url"])

	assert.False(t, Is(errors.New("plain")))
	assert.Nil(t, Fields(errors.New("plain")))
}
