package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deepreview/deepreview-cli/internal/config"
)

const vulnerableSource = `import os

cmd = input()
os.system(cmd)
result = eval(cmd)
`

func testOrchestrator(t *testing.T, reportDir string) *Orchestrator {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Audit.ReportDir = reportDir
	// No API key: the LLM producer reports itself disabled.
	cfg.LLM.APIKey = ""
	return New(zaptest.NewLogger(t), cfg, "test")
}

func TestRunAgainstPlainDirectory(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "main.py"), []byte(vulnerableSource), 0o644))

	orch := testOrchestrator(t, t.TempDir())
	result, err := orch.Run(context.Background(), Request{TargetDir: target, SkipArtifacts: true})
	require.NoError(t, err)

	report := result.Report
	assert.Equal(t, "snapshot", report.Analysis.Source)
	assert.Equal(t, "completed", report.Status)
	assert.NotEmpty(t, report.RunID)

	// The taint engine sees both the os.system and the eval flow.
	assert.Len(t, report.Analysis.TaintFindings, 2)
	// The heuristic scanner flags the eval call in the snapshot text.
	require.NotEmpty(t, report.Analysis.HeuristicFindings)
	assert.Equal(t, "Eval Exec Usage", report.Analysis.HeuristicFindings[0].Title)

	// Disabled LLM degrades to an explanatory empty result.
	assert.Empty(t, report.Analysis.LLMFindings)
	assert.Equal(t, "LLM disabled", report.Analysis.LLMError)
	assert.True(t, report.State.Completed)

	// The snapshot text carries os.system/eval markers, so the
	// protocol advisor records its action.
	var actions []string
	for _, action := range report.State.Actions {
		actions = append(actions, action.Name)
	}
	assert.Contains(t, actions, "protocol_scan")
	assert.Contains(t, actions, "style_scan")
}

func TestRunReportsStyleFindings(t *testing.T) {
	target := t.TempDir()
	var sb strings.Builder
	sb.WriteString("def branchy(a):\n")
	for i := 0; i < 9; i++ {
		fmt.Fprintf(&sb, "    if a == %d:\n        return %d\n", i, i)
	}
	sb.WriteString("    return -1\n")
	require.NoError(t, os.WriteFile(filepath.Join(target, "main.py"), []byte(sb.String()), 0o644))

	orch := testOrchestrator(t, t.TempDir())
	result, err := orch.Run(context.Background(), Request{TargetDir: target, SkipArtifacts: true})
	require.NoError(t, err)

	styleFindings := result.Report.Analysis.StyleFindings
	require.Len(t, styleFindings, 1)
	assert.Equal(t, "medium", styleFindings[0].Severity)
	assert.Equal(t, "main.py", styleFindings[0].File)
	assert.Empty(t, result.Report.Analysis.TaintFindings)
}

func TestRunWritesArtifacts(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "main.py"), []byte(vulnerableSource), 0o644))

	reportDir := t.TempDir()
	orch := testOrchestrator(t, reportDir)
	result, err := orch.Run(context.Background(), Request{TargetDir: target, RunName: "fixed-name"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(reportDir, "fixed-name.json"), result.ReportPath)
	assert.FileExists(t, result.ReportPath)
	assert.FileExists(t, result.SARIFPath)
}

func TestRunEmptyTargetRecordsError(t *testing.T) {
	orch := testOrchestrator(t, t.TempDir())
	result, err := orch.Run(context.Background(), Request{TargetDir: t.TempDir(), SkipArtifacts: true})
	require.NoError(t, err)

	assert.Empty(t, result.Report.Analysis.TaintFindings)
	assert.Contains(t, result.Report.State.Errors, "no reviewable content found")
}

func TestRunHonorsIncludePaths(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(target, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "pkg", "a.py"), []byte(vulnerableSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "b.py"), []byte(vulnerableSource), 0o644))

	orch := testOrchestrator(t, t.TempDir())
	result, err := orch.Run(context.Background(), Request{
		TargetDir:     target,
		IncludePaths:  []string{"pkg/a.py"},
		SkipArtifacts: true,
	})
	require.NoError(t, err)

	for _, finding := range result.Report.Analysis.TaintFindings {
		assert.Equal(t, "pkg/a.py", finding.File)
	}
	assert.NotEmpty(t, result.Report.Analysis.TaintFindings)
}
