package llmclient

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/deepreview/deepreview-cli/api/schemas"
)

// Regex definitions use \x60 for backticks because Go raw strings
// cannot contain backticks.
var fenceRegex = regexp.MustCompile("(?s)\x60\x60\x60([a-zA-Z0-9_-]*)\\s*(.*?)\\s*\x60\x60\x60")

// parseReviewResponse turns one raw model response into a normalized
// ReviewResult. Returns nil when the response carries no parseable
// JSON object or array.
func parseReviewResponse(response string, maxFindings int) *schemas.ReviewResult {
	payload := extractJSONPayload(response)
	if payload == "" {
		return nil
	}

	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil
	}

	// A bare array is treated as the findings list.
	if list, ok := data.([]any); ok {
		data = map[string]any{"summary": "", "insights": []any{}, "findings": list}
	}
	doc, ok := data.(map[string]any)
	if !ok {
		return nil
	}

	findings := []schemas.LLMFinding{}
	for _, item := range listField(doc, "findings", "issues", "risks") {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		findings = append(findings, schemas.LLMFinding{
			Title:          stringField(entry, "Untitled finding", "title"),
			Severity:       schemas.NormalizeSeverity(stringField(entry, "", "severity")),
			Confidence:     schemas.NormalizeConfidence(stringField(entry, "", "confidence")),
			File:           stringField(entry, "", "file", "path"),
			Line:           lineField(entry, "line", "line_number", "lineNo"),
			Description:    stringField(entry, "", "description", "rationale"),
			Recommendation: stringField(entry, "", "recommendation", "remediation"),
		})
	}
	if maxFindings > 0 && len(findings) > maxFindings {
		findings = findings[:maxFindings]
	}

	insights := []string{}
	for _, item := range listField(doc, "insights", "guidance", "next_steps", "notes") {
		if text := strings.TrimSpace(toString(item)); text != "" {
			insights = append(insights, text)
		}
	}

	return &schemas.ReviewResult{
		Summary:  strings.TrimSpace(stringField(doc, "", "summary")),
		Insights: insights,
		Findings: findings,
	}
}

// extractJSONPayload locates the JSON body in a response that may be
// wrapped in markdown fences or conversational prose. Preference
// order: a json-tagged fence, any fence, a balanced top-level object
// or array, the raw text itself.
func extractJSONPayload(response string) string {
	stripped := strings.TrimSpace(response)
	if stripped == "" {
		return ""
	}

	if fenced := extractFencedPayload(stripped); fenced != "" && looksLikeJSON(fenced) {
		return fenced
	}
	if balanced := extractBalancedJSON(stripped); balanced != "" {
		return balanced
	}
	if looksLikeJSON(stripped) {
		return stripped
	}
	return ""
}

func extractFencedPayload(text string) string {
	matches := fenceRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	var jsonBlocks, otherBlocks []string
	for _, match := range matches {
		lang := strings.ToLower(strings.TrimSpace(match[1]))
		body := strings.TrimSpace(match[2])
		if body == "" {
			continue
		}
		if lang == "json" {
			jsonBlocks = append(jsonBlocks, body)
		} else {
			otherBlocks = append(otherBlocks, body)
		}
	}
	for _, block := range jsonBlocks {
		if looksLikeJSON(block) {
			return block
		}
	}
	for _, block := range otherBlocks {
		if looksLikeJSON(block) {
			return block
		}
	}
	if len(jsonBlocks) > 0 {
		return jsonBlocks[0]
	}
	if len(otherBlocks) > 0 {
		return otherBlocks[0]
	}
	return ""
}

func looksLikeJSON(text string) bool {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// extractBalancedJSON scans for the first balanced top-level object
// or array, respecting string literals and escapes.
func extractBalancedJSON(text string) string {
	firstObject := strings.IndexByte(text, '{')
	firstArray := strings.IndexByte(text, '[')
	if firstObject == -1 && firstArray == -1 {
		return ""
	}

	start := firstObject
	openChar, closeChar := byte('{'), byte('}')
	if firstObject == -1 || (firstArray != -1 && firstArray < firstObject) {
		start = firstArray
		openChar, closeChar = '[', ']'
	}

	depth := 0
	inString := false
	escape := false
	for idx := start; idx < len(text); idx++ {
		ch := text[idx]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return text[start : idx+1]
			}
		}
	}
	return ""
}

func stringField(entry map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if value, ok := entry[key]; ok {
			if text := strings.TrimSpace(toString(value)); text != "" {
				return text
			}
		}
	}
	return fallback
}

func listField(entry map[string]any, keys ...string) []any {
	for _, key := range keys {
		if value, ok := entry[key].([]any); ok && len(value) > 0 {
			return value
		}
	}
	return nil
}

func lineField(entry map[string]any, keys ...string) int {
	for _, key := range keys {
		value, ok := entry[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
