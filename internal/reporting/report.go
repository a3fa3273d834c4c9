// Package reporting assembles and persists audit output: a JSON
// report and a SARIF 2.1.0 log for code-scanning integrations.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/deepreview/deepreview-cli/api/schemas"
	"github.com/deepreview/deepreview-cli/internal/analysis/style"
	"github.com/deepreview/deepreview-cli/internal/analysis/taint"
	"github.com/deepreview/deepreview-cli/internal/project"
	"github.com/deepreview/deepreview-cli/internal/state"
)

// Report is the top-level audit payload.
type Report struct {
	RunID       string         `json:"run_id"`
	RunName     string         `json:"run_name"`
	Status      string         `json:"status"`
	GeneratedAt string         `json:"generated_at"`
	Target      Target         `json:"target"`
	Analysis    Analysis       `json:"analysis"`
	State       state.Snapshot `json:"state"`
}

// Target identifies what was audited.
type Target struct {
	Original string `json:"original"`
}

// Analysis groups every producer's output for one run.
type Analysis struct {
	Source            string                     `json:"source"`
	Summary           string                     `json:"summary,omitempty"`
	Insights          []string                   `json:"insights,omitempty"`
	LLMFindings       []schemas.LLMFinding       `json:"llm_findings"`
	LLMError          string                     `json:"llm_error,omitempty"`
	HeuristicFindings []schemas.HeuristicFinding `json:"audit_findings"`
	TaintFindings     []taint.Finding            `json:"taint_findings"`
	StyleFindings     []style.Finding            `json:"style_findings"`
	Metadata          project.Metadata           `json:"metadata"`
}

// WriteReport persists the report to disk, stamping generated_at when
// the caller left it empty.
func WriteReport(logger *zap.Logger, path string, report *Report) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if report.GeneratedAt == "" {
		report.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	logger.Info("Report saved.", zap.String("path", path))
	return nil
}
