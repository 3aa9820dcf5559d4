package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptWrapsSystemAndUser(t *testing.T) {
	prompt := BuildPrompt("you are a reviewer", []Message{
		{Role: RoleUser, Content: "review this diff"},
	})

	assert.True(t, strings.HasPrefix(prompt, "<system>\nyou are a reviewer\n</system>"))
	assert.Contains(t, prompt, "<user>\nreview this diff\n</user>")
}

func TestBuildPromptWithoutSystem(t *testing.T) {
	prompt := BuildPrompt("", []Message{{Role: RoleUser, Content: "hi"}})

	assert.NotContains(t, prompt, "<system>")
}

func TestChunkContent(t *testing.T) {
	chunks := ChunkContent(strings.Repeat("x", 700), 256)

	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 256)
	assert.Len(t, chunks[2], 188)
}

func TestChunkContentEmpty(t *testing.T) {
	assert.Empty(t, ChunkContent("", 256))
}
