package llmclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are a senior Python security auditor. " +
	"Review code diffs conservatively, focus on actionable weaknesses, " +
	"and respond ONLY with valid JSON."

// ReviewRequest carries everything the prompt builder needs.
type ReviewRequest struct {
	DiffContent    string
	ContextContent string
	Metadata       any
	ProtocolHints  string
	MaxFindings    int
}

func buildReviewPrompt(req ReviewRequest) string {
	metadataBlock := "{}"
	if req.Metadata != nil {
		if encoded, err := json.MarshalIndent(req.Metadata, "", "  "); err == nil {
			metadataBlock = string(encoded)
		}
	}
	hintBlock := ""
	if req.ProtocolHints != "" {
		hintBlock = "\nProtocol/analysis hints:\n" + req.ProtocolHints
	}
	limitText := "the most critical findings"
	if req.MaxFindings > 0 {
		limitText = fmt.Sprintf("up to %d findings", req.MaxFindings)
	}

	var sb strings.Builder
	sb.WriteString("Perform a static security/code-quality review of the provided repository diff and context.\n\n")
	sb.WriteString("Respond ONLY with JSON matching this schema:\n")
	sb.WriteString(`{
  "summary": "High-level assessment (1-2 sentences)",
  "insights": ["Optional bullet guidance or next steps"],
  "findings": [
     {
       "title": "Short name of the risk",
       "severity": "critical|high|medium|low|info",
       "confidence": "high|medium|low",
       "file": "relative/path.py",
       "line": 123,
       "description": "Explain the issue and why it matters",
       "recommendation": "Concrete remediation guidance"
     }
  ]
}`)
	sb.WriteString("\n\nRequirements:\n")
	sb.WriteString(fmt.Sprintf("- Focus on %s that the organization must review.\n", limitText))
	sb.WriteString("- Prefer referencing exact files/lines found in the diff/context.\n")
	sb.WriteString("- Do NOT invent behavior you cannot justify from the code.\n")
	sb.WriteString("- Output MUST start with '{' and end with '}' (no prose, no markdown fences).\n\n")
	sb.WriteString("Repository metadata:\n")
	sb.WriteString(metadataBlock)
	sb.WriteString(hintBlock)
	sb.WriteString("\n\nDiff to review:\n```\n")
	sb.WriteString(req.DiffContent)
	sb.WriteString("\n```\n\nAdditional context (definitions, related code):\n```\n")
	sb.WriteString(req.ContextContent)
	sb.WriteString("\n```")
	return sb.String()
}

func buildRetryInstruction(attempt int, previousResponse string) string {
	snippet := previousResponse
	if len(snippet) > 400 {
		snippet = snippet[:400]
	}
	return fmt.Sprintf(
		"Attempt %d failed because the response was not valid JSON or missed required fields.\n"+
			"Return ONLY JSON matching the documented schema. Previous response snippet:\n```\n%s\n```",
		attempt, snippet)
}
