// Package audit orchestrates one review run: collect the change set
// (diff or snapshot), fan the three finding producers out, and
// assemble the report artifacts.
package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deepreview/deepreview-cli/api/schemas"
	"github.com/deepreview/deepreview-cli/internal/analysis/heuristics"
	"github.com/deepreview/deepreview-cli/internal/analysis/protocols"
	"github.com/deepreview/deepreview-cli/internal/analysis/style"
	"github.com/deepreview/deepreview-cli/internal/analysis/taint"
	"github.com/deepreview/deepreview-cli/internal/config"
	"github.com/deepreview/deepreview-cli/internal/gitops"
	"github.com/deepreview/deepreview-cli/internal/llmclient"
	"github.com/deepreview/deepreview-cli/internal/project"
	"github.com/deepreview/deepreview-cli/internal/reporting"
	"github.com/deepreview/deepreview-cli/internal/state"
)

// Request describes one audit invocation.
type Request struct {
	TargetDir    string
	IncludePaths []string
	DiffTarget   string
	RunName      string
	// SkipArtifacts suppresses writing the JSON and SARIF files;
	// the report is still returned.
	SkipArtifacts bool
}

// Result pairs the assembled report with the artifact locations.
type Result struct {
	Report     *reporting.Report
	ReportPath string
	SARIFPath  string
}

// Orchestrator wires the producers together. Producer failures are
// recorded in the run state; only artifact I/O can fail a run.
type Orchestrator struct {
	logger  *zap.Logger
	cfg     *config.Config
	version string
}

func New(logger *zap.Logger, cfg *config.Config, version string) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{logger: logger.Named("audit"), cfg: cfg, version: version}
}

// Run executes the full pipeline against req.TargetDir.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	runName := req.RunName
	if runName == "" {
		runName = "audit-" + time.Now().UTC().Format("20060102-150405")
	}
	runState := state.NewRunState(runName)

	runState.SetPhase("inspect")
	analyzer := project.NewAnalyzer(o.logger, req.TargetDir)
	analyzer.Inspect()
	metadata := analyzer.Metadata()
	runState.AddAction("project_inspect", fmt.Sprintf("%d dependencies", metadata.DependencyCount))

	runState.SetPhase("collect")
	changeText, source := o.collectChanges(ctx, req, runState)

	runState.SetPhase("analyze")
	var (
		heuristicFindings []schemas.HeuristicFinding
		taintFindings     []taint.Finding
		styleFindings     []style.Finding
		review            schemas.ReviewResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		auditor := heuristics.NewAuditor(o.logger, nil, o.cfg.Audit.ScanContext)
		heuristicFindings = auditor.Run(changeText, "", source)
		runState.AddAction("heuristic_scan", fmt.Sprintf("%d findings", len(heuristicFindings)))
		return nil
	})
	g.Go(func() error {
		engine := taint.NewAnalyzer(o.logger, taint.Options{
			FunctionScopedTaint: o.cfg.Audit.FunctionScopedTaint,
		})
		taintFindings = engine.AnalyzeTree(req.TargetDir, req.IncludePaths)
		runState.AddAction("taint_analysis", fmt.Sprintf("%d findings", len(taintFindings)))
		return nil
	})
	g.Go(func() error {
		styler := style.NewAnalyzer(o.logger)
		styleFindings = styler.AnalyzeTree(req.TargetDir, req.IncludePaths)
		runState.AddAction("style_scan", fmt.Sprintf("%d findings", len(styleFindings)))
		return nil
	})
	g.Go(func() error {
		advisor := protocols.NewAdvisor(o.logger)
		hints := advisor.Describe(req.TargetDir, changeText)
		if hints != "" {
			runState.AddAction("protocol_scan", "indicators detected")
		}

		client := llmclient.NewClient(o.cfg.LLM, o.logger)
		review = client.ReviewChanges(gctx, llmclient.ReviewRequest{
			DiffContent:    changeText,
			ContextContent: "",
			Metadata:       metadata,
			ProtocolHints:  hints,
			MaxFindings:    o.cfg.Audit.MaxFindings,
		})
		if review.Error != "" {
			runState.AddError("llm review: " + review.Error)
		}
		runState.AddAction("llm_review", fmt.Sprintf("%d findings", len(review.Findings)))
		return nil
	})
	// Producers never abort the run; Wait only observes ctx cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	runState.SetCompleted()

	report := &reporting.Report{
		RunID:   runID,
		RunName: runName,
		Status:  "completed",
		Target:  reporting.Target{Original: req.TargetDir},
		Analysis: reporting.Analysis{
			Source:            source,
			Summary:           review.Summary,
			Insights:          review.Insights,
			LLMFindings:       review.Findings,
			LLMError:          review.Error,
			HeuristicFindings: heuristicFindings,
			TaintFindings:     taintFindings,
			StyleFindings:     styleFindings,
			Metadata:          metadata,
		},
		State: runState.Snapshot(),
	}

	result := &Result{Report: report}
	if !req.SkipArtifacts {
		result.ReportPath = filepath.Join(o.cfg.Audit.ReportDir, runName+".json")
		result.SARIFPath = filepath.Join(o.cfg.Audit.ReportDir, runName+".sarif")
		if err := reporting.WriteReport(o.logger, result.ReportPath, report); err != nil {
			return nil, err
		}
		if err := reporting.WriteSARIF(o.logger, result.SARIFPath, report, o.version); err != nil {
			return nil, err
		}
	}

	o.logger.Info("Audit complete.",
		zap.String("run", runName),
		zap.String("source", source),
		zap.Int("llm_findings", len(review.Findings)),
		zap.Int("heuristic_findings", len(heuristicFindings)),
		zap.Int("taint_findings", len(taintFindings)),
		zap.Int("style_findings", len(styleFindings)),
	)
	return result, nil
}

// collectChanges prefers a git diff of pending work; a repo without
// one (or no repo at all) degrades to a plain snapshot of the tree.
func (o *Orchestrator) collectChanges(ctx context.Context, req Request, runState *state.RunState) (text, source string) {
	diffTarget := req.DiffTarget
	if diffTarget == "" {
		diffTarget = o.cfg.Audit.DiffTarget
	}

	client, err := gitops.Open(o.logger, req.TargetDir)
	if err == nil {
		if diff := client.Diff(ctx, req.IncludePaths, diffTarget); diff != "" {
			runState.AddAction("git_diff", fmt.Sprintf("%d bytes", len(diff)))
			return diff, "diff"
		}
		o.logger.Info("No pending git changes; falling back to snapshot.")
	} else {
		o.logger.Info("Not a git repository; using snapshot.", zap.Error(err))
	}

	snapshot := gitops.Snapshot(o.logger, req.TargetDir, nil, req.IncludePaths)
	if snapshot == "" {
		runState.AddError("no reviewable content found")
	} else {
		runState.AddAction("snapshot", fmt.Sprintf("%d bytes", len(snapshot)))
	}
	return snapshot, "snapshot"
}
