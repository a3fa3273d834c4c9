package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptIncludesProtocolHints(t *testing.T) {
	prompt := buildReviewPrompt(ReviewRequest{
		DiffContent:   "+ os.system(cmd)",
		ProtocolHints: "Detected protocol indicators:\n- WebSocket handlers present.",
	})

	assert.Contains(t, prompt, "Protocol/analysis hints:")
	assert.Contains(t, prompt, "WebSocket handlers present.")
	assert.Contains(t, prompt, "+ os.system(cmd)")
}

func TestPromptOmitsHintBlockWhenEmpty(t *testing.T) {
	prompt := buildReviewPrompt(ReviewRequest{DiffContent: "+ x = 1"})
	assert.NotContains(t, prompt, "Protocol/analysis hints:")
}

func TestPromptStatesFindingLimit(t *testing.T) {
	limited := buildReviewPrompt(ReviewRequest{DiffContent: "+ x = 1", MaxFindings: 5})
	assert.Contains(t, limited, "up to 5 findings")

	unlimited := buildReviewPrompt(ReviewRequest{DiffContent: "+ x = 1"})
	assert.Contains(t, unlimited, "the most critical findings")
}
