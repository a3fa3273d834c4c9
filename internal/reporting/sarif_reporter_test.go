package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deepreview/deepreview-cli/api/schemas"
	"github.com/deepreview/deepreview-cli/internal/analysis/style"
	"github.com/deepreview/deepreview-cli/internal/analysis/taint"
	"github.com/deepreview/deepreview-cli/internal/reporting/sarif"
	"github.com/deepreview/deepreview-cli/internal/state"
)

func sampleReport() *Report {
	return &Report{
		RunID:       "11111111-2222-3333-4444-555555555555",
		RunName:     "audit-test",
		Status:      "completed",
		GeneratedAt: "2026-08-24T00:00:00Z",
		Target:      Target{Original: "/repo"},
		Analysis: Analysis{
			Source: "diff",
			LLMFindings: []schemas.LLMFinding{
				{Title: "Injection", Severity: "critical", Confidence: "high", File: "a.py", Line: 3, Description: "bad", Recommendation: "fix"},
			},
			HeuristicFindings: []schemas.HeuristicFinding{
				{Title: "Weak Hash", Severity: "medium", Description: "md5", Evidence: "hashlib.md5(x)", File: "b.py", Line: 9},
			},
			TaintFindings: []taint.Finding{
				{
					Title:          "Tainted data flows into Command execution via os.system",
					Severity:       "high",
					Description:    "Potentially untrusted input reaches Command execution via os.system.",
					Recommendation: "Validate, sanitize, or escape user input before invoking this operation.",
					File:           "c.py",
					Line:           12,
					Sink:           "Command execution via os.system",
				},
			},
			StyleFindings: []style.Finding{
				{
					Title:          "High cyclomatic complexity in dispatch",
					Severity:       "medium",
					Description:    "dispatch has cyclomatic complexity 14, which may hinder readability and security review.",
					Recommendation: "Refactor the function into smaller units or simplify branching logic.",
					File:           "d.py",
					Line:           20,
					Metric:         "complexity",
					Value:          14,
				},
			},
		},
		State: state.NewRunState("audit-test").Snapshot(),
	}
}

func TestBuildSARIFStructure(t *testing.T) {
	log := BuildSARIF(sampleReport(), "1.2.3")

	assert.Equal(t, SARIFVersion, log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]
	assert.Equal(t, ToolName, run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", *run.Tool.Driver.Version)
	require.Len(t, run.Results, 4)
	assert.Len(t, run.Tool.Driver.Rules, 4)

	assert.Equal(t, "deepreview-llm-1", run.Results[0].RuleID)
	assert.Equal(t, sarif.LevelError, run.Results[0].Level)
	assert.Equal(t, "deepreview-heuristic-1", run.Results[1].RuleID)
	assert.Equal(t, sarif.LevelWarning, run.Results[1].Level)
	assert.Equal(t, "deepreview-taint-1", run.Results[2].RuleID)
	assert.Equal(t, sarif.LevelError, run.Results[2].Level)
	assert.Equal(t, "deepreview-style-1", run.Results[3].RuleID)
	assert.Equal(t, sarif.LevelWarning, run.Results[3].Level)

	require.Len(t, run.Invocations, 1)
	assert.True(t, run.Invocations[0].ExecutionSuccessful)
}

func TestSeverityMapping(t *testing.T) {
	cases := map[string]sarif.Level{
		"critical": sarif.LevelError,
		"HIGH":     sarif.LevelError,
		"medium":   sarif.LevelWarning,
		"low":      sarif.LevelNote,
		"info":     sarif.LevelNote,
		"":         sarif.LevelNote,
	}
	for severity, want := range cases {
		assert.Equal(t, want, mapSeverity(severity), "severity %q", severity)
	}
}

func TestLocationFallsBackToTarget(t *testing.T) {
	report := sampleReport()
	report.Analysis.LLMFindings[0].File = ""
	report.Analysis.LLMFindings[0].Line = 0

	log := BuildSARIF(report, "dev")
	location := log.Runs[0].Results[0].Locations[0].PhysicalLocation
	assert.Equal(t, "/repo", *location.ArtifactLocation.URI)
	assert.Nil(t, location.Region)
}

func TestTaintResultCarriesSinkProperties(t *testing.T) {
	log := BuildSARIF(sampleReport(), "dev")
	properties := *log.Runs[0].Results[2].Properties
	assert.Equal(t, "Command execution via os.system", properties["sink"])
	assert.Equal(t, "taint", properties["source"])
}

func TestWriteReportAndSARIF(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport()
	report.GeneratedAt = ""

	reportPath := filepath.Join(dir, "runs", "report.json")
	require.NoError(t, WriteReport(zaptest.NewLogger(t), reportPath, report))
	assert.NotEmpty(t, report.GeneratedAt)

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, report.RunName, decoded.RunName)
	require.Len(t, decoded.Analysis.TaintFindings, 1)

	sarifPath := filepath.Join(dir, "runs", "report.sarif")
	require.NoError(t, WriteSARIF(zaptest.NewLogger(t), sarifPath, report, "dev"))

	raw, err = os.ReadFile(sarifPath)
	require.NoError(t, err)
	var log sarif.Log
	require.NoError(t, json.Unmarshal(raw, &log))
	require.Len(t, log.Runs, 1)
	assert.Len(t, log.Runs[0].Results, 4)
}

func TestStyleResultCarriesMetricProperties(t *testing.T) {
	log := BuildSARIF(sampleReport(), "dev")
	properties := *log.Runs[0].Results[3].Properties
	assert.Equal(t, "style", properties["source"])
	assert.Equal(t, "complexity", properties["metric"])
	assert.Equal(t, float64(14), properties["value"])
}
