package llmclient

import (
	"context"

	"go.uber.org/zap"

	"github.com/deepreview/deepreview-cli/api/schemas"
)

// ReviewChanges runs a structured review of the diff and context.
// The result is always usable: when the client is disabled or every
// attempt fails, it carries an empty findings list and an
// explanation instead of an error return.
func (c *Client) ReviewChanges(ctx context.Context, req ReviewRequest) schemas.ReviewResult {
	if !c.Enabled() {
		return schemas.ReviewResult{
			Summary: "LLM review disabled (missing configuration).",
			Insights: []string{
				"Provide NVIDIA_API_KEY (and optional model/base_url overrides) to enable LLM-based findings.",
			},
			Findings: []schemas.LLMFinding{},
			Error:    "LLM disabled",
		}
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildReviewPrompt(req)},
	}

	maxAttempts := c.cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr string
	var lastResponse string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		response, err := c.Chat(ctx, messages)
		if err != nil {
			lastErr = err.Error()
			c.logger.Warn("LLM review attempt failed.", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		lastResponse = response

		if parsed := parseReviewResponse(response, req.MaxFindings); parsed != nil {
			parsed.Attempts = attempt
			parsed.RawResponseLen = len(response)
			return *parsed
		}
		lastErr = "LLM response was not valid JSON"
		c.logger.Debug("LLM response unparseable, re-prompting.",
			zap.Int("attempt", attempt),
			zap.Int("response_len", len(response)))
		// The failed assistant turn is not replayed into the
		// conversation; the corrective message carries a snippet of it
		// instead.
		messages = append(messages, chatMessage{
			Role:    "user",
			Content: buildRetryInstruction(attempt, response),
		})
	}

	if lastErr == "" {
		lastErr = "LLM request failed"
	}
	return schemas.ReviewResult{
		Summary:        "",
		Insights:       []string{},
		Findings:       []schemas.LLMFinding{},
		Error:          lastErr,
		Attempts:       maxAttempts,
		RawResponseLen: len(lastResponse),
	}
}
