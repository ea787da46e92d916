package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unexpected status 502", NewStatusError(502, "").Error())
	assert.Equal(t, "unexpected status 400: bad input", NewStatusError(400, "bad input").Error())
}

func TestIsServerError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsServerError(fmt.Errorf("fetch: %w", NewStatusError(503, ""))))
	assert.False(t, IsServerError(NewStatusError(404, "")))
	assert.False(t, IsServerError(errors.New("plain")))
}

func TestIsSuccess(t *testing.T) {
	t.Parallel()

	assert.True(t, IsSuccess(200))
	assert.True(t, IsSuccess(204))
	assert.False(t, IsSuccess(199))
	assert.False(t, IsSuccess(300))
}
