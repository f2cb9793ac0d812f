package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeNotFound, "node %q", "a")
	assert.Equal(t, `NOT_FOUND: node "a"`, err.Error())

	wrapped := Wrap(ErrCodeInvalidFormat, fmt.Errorf("bad byte"), "decode %s", "json")
	assert.Equal(t, "INVALID_FORMAT: decode json: bad byte", wrapped.Error())
	assert.Equal(t, "decode json", UserMessage(wrapped))
}

func TestIsFollowsWrapAndJoin(t *testing.T) {
	base := New(ErrCodeInvalidEdge, "edge e1")
	wrapped := fmt.Errorf("loading: %w", base)
	require.True(t, Is(wrapped, ErrCodeInvalidEdge))
	require.False(t, Is(wrapped, ErrCodeNotFound))

	joined := Join(New(ErrCodeInvalidEdge, "e1"), New(ErrCodeInvalidEdge, "e2"), New(ErrCodeDuplicateID, "n"))
	assert.True(t, Is(joined, ErrCodeDuplicateID))
	assert.Equal(t, 2, Count(joined, ErrCodeInvalidEdge))
	assert.Equal(t, 0, Count(nil, ErrCodeInvalidEdge))
	assert.False(t, Is(nil, ErrCodeInvalidEdge))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeClosed, GetCode(fmt.Errorf("x: %w", New(ErrCodeClosed, "view"))))
	assert.Equal(t, Code(""), GetCode(fmt.Errorf("plain")))
	assert.Equal(t, "plain", UserMessage(fmt.Errorf("plain")))
}
