package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deepreview/deepreview-cli/internal/audit"
	"github.com/deepreview/deepreview-cli/internal/observability"
)

var (
	auditTarget     string
	auditInclude    []string
	auditDiffTarget string
	auditRunName    string
	auditNoArtifact bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run a full audit of a repository or directory.",
	Long: `Runs the audit pipeline against a target tree: collects the pending
git diff (or a plain snapshot when no usable history exists), then runs
the heuristic scanner, the taint engine, and the optional LLM reviewer,
and writes a JSON report plus a SARIF 2.1.0 file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		orchestrator := audit.New(logger, appCfg, Version)
		result, err := orchestrator.Run(cmd.Context(), audit.Request{
			TargetDir:     auditTarget,
			IncludePaths:  auditInclude,
			DiffTarget:    auditDiffTarget,
			RunName:       auditRunName,
			SkipArtifacts: auditNoArtifact,
		})
		if err != nil {
			return fmt.Errorf("audit failed: %w", err)
		}

		analysis := result.Report.Analysis
		logger.Info("Findings summary",
			zap.Int("taint", len(analysis.TaintFindings)),
			zap.Int("heuristic", len(analysis.HeuristicFindings)),
			zap.Int("style", len(analysis.StyleFindings)),
			zap.Int("llm", len(analysis.LLMFindings)),
		)
		if result.ReportPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\nSARIF:  %s\n", result.ReportPath, result.SARIFPath)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVarP(&auditTarget, "target", "t", ".", "directory to audit")
	auditCmd.Flags().StringSliceVar(&auditInclude, "include", nil, "restrict analysis to these relative paths")
	auditCmd.Flags().StringVar(&auditDiffTarget, "diff-target", "", "git ref to diff against (e.g. origin/main)")
	auditCmd.Flags().StringVar(&auditRunName, "run-name", "", "name for the run and its artifacts")
	auditCmd.Flags().BoolVar(&auditNoArtifact, "no-artifacts", false, "print results without writing report files")
	rootCmd.AddCommand(auditCmd)
}
