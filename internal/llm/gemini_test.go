package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiCloseIsANoop(t *testing.T) {
	c := &GeminiClient{}
	assert.NoError(t, c.Close())
	// a second close is equally safe
	assert.NoError(t, c.Close())
}

func TestGeminiMessageText(t *testing.T) {
	got, err := messageText(Message{Role: RoleUser, Content: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	parts := []any{
		map[string]any{"type": "text", "text": "see"},
		map[string]any{"type": "image_url", "image_url": map[string]any{"url": "data:..."}},
		map[string]any{"type": "text", "text": "this"},
	}
	got, err = messageText(Message{Role: RoleUser, Content: parts})
	require.NoError(t, err)
	assert.Equal(t, "see this", got)

	_, err = messageText(Message{Role: RoleUser, Content: []any{
		map[string]any{"type": "image_url"},
	}})
	assert.Error(t, err, "media-only content has no text mapping")

	_, err = messageText(Message{Role: RoleUser, Content: 42})
	assert.Error(t, err)
}
