// Package schemas defines the wire-level finding and report types
// shared by the analysis producers and the reporting layer.
package schemas

import "strings"

// Severity levels, ordered from most to least urgent.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// Confidence levels for model-produced findings.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// NormalizeSeverity lowercases and validates a severity string,
// falling back to info for anything unknown.
func NormalizeSeverity(value string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(value)); normalized {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return normalized
	default:
		return SeverityInfo
	}
}

// NormalizeConfidence lowercases and validates a confidence string,
// falling back to medium for anything unknown.
func NormalizeConfidence(value string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(value)); normalized {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return normalized
	default:
		return ConfidenceMedium
	}
}

// HeuristicFinding is one regex-rule match against the diff or a
// plain source scan.
type HeuristicFinding struct {
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	File           string `json:"file,omitempty"`
	Line           int    `json:"line,omitempty"`
	Evidence       string `json:"evidence"`
}

// LLMFinding is one model-produced review finding after
// normalization.
type LLMFinding struct {
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	Confidence     string `json:"confidence"`
	File           string `json:"file,omitempty"`
	Line           int    `json:"line,omitempty"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// ReviewResult is the structured outcome of one LLM review, valid
// even when the model is disabled or every attempt failed.
type ReviewResult struct {
	Summary        string       `json:"summary"`
	Insights       []string     `json:"insights"`
	Findings       []LLMFinding `json:"findings"`
	Error          string       `json:"error,omitempty"`
	Attempts       int          `json:"attempts,omitempty"`
	RawResponseLen int          `json:"raw_response_len,omitempty"`
}
