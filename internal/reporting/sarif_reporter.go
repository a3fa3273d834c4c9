package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/deepreview/deepreview-cli/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF log.
const (
	ToolName     = "DeepReview"
	ToolInfoURI  = "https://github.com/deepreview/deepreview-cli"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

func pString(s string) *string { return &s }

// mapSeverity converts finding severities to SARIF levels.
// critical|high -> error, medium -> warning, everything else -> note.
func mapSeverity(severity string) sarif.Level {
	switch strings.ToLower(severity) {
	case "critical", "high":
		return sarif.LevelError
	case "medium":
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

func buildLocation(file string, line int, fallbackURI string) *sarif.Location {
	uri := file
	if uri == "" {
		uri = fallbackURI
	}
	physical := &sarif.PhysicalLocation{
		ArtifactLocation: &sarif.ArtifactLocation{URI: pString(uri)},
	}
	if line > 0 {
		physical.Region = &sarif.Region{StartLine: line}
	}
	return &sarif.Location{PhysicalLocation: physical}
}

// BuildSARIF converts a finished report into a SARIF log. Every
// result gets its own rule, numbered per producer so rule IDs stay
// stable across re-serialization of the same report.
func BuildSARIF(report *Report, toolVersion string) *sarif.Log {
	targetURI := report.Target.Original
	if targetURI == "" {
		targetURI = "workspace"
	}

	results := []*sarif.Result{}

	for idx, finding := range report.Analysis.LLMFindings {
		title := finding.Title
		if title == "" {
			title = fmt.Sprintf("LLM Finding #%d", idx+1)
		}
		message := finding.Description
		if message == "" {
			message = title
		}
		if finding.Recommendation != "" {
			message += "\nRecommendation: " + finding.Recommendation
		}
		results = append(results, &sarif.Result{
			RuleID:  fmt.Sprintf("deepreview-llm-%d", idx+1),
			Level:   mapSeverity(finding.Severity),
			Message: &sarif.Message{Text: pString(message)},
			Properties: &sarif.PropertyBag{
				"title":      title,
				"severity":   finding.Severity,
				"confidence": finding.Confidence,
				"source":     "llm",
			},
			Locations: []*sarif.Location{buildLocation(finding.File, finding.Line, targetURI)},
		})
	}

	for idx, finding := range report.Analysis.HeuristicFindings {
		message := finding.Description
		if finding.Evidence != "" {
			message += "\nEvidence: " + finding.Evidence
		}
		if finding.Recommendation != "" {
			message += "\nRecommendation: " + finding.Recommendation
		}
		results = append(results, &sarif.Result{
			RuleID:  fmt.Sprintf("deepreview-heuristic-%d", idx+1),
			Level:   mapSeverity(finding.Severity),
			Message: &sarif.Message{Text: pString(message)},
			Properties: &sarif.PropertyBag{
				"title":    finding.Title,
				"severity": finding.Severity,
				"source":   "heuristic",
			},
			Locations: []*sarif.Location{buildLocation(finding.File, finding.Line, targetURI)},
		})
	}

	for idx, finding := range report.Analysis.TaintFindings {
		message := finding.Description
		if finding.Recommendation != "" {
			message += "\nRecommendation: " + finding.Recommendation
		}
		properties := sarif.PropertyBag{
			"title":    finding.Title,
			"severity": finding.Severity,
			"source":   "taint",
		}
		if finding.Sink != "" {
			properties["sink"] = finding.Sink
		}
		if finding.Function != "" {
			properties["function"] = finding.Function
		}
		results = append(results, &sarif.Result{
			RuleID:     fmt.Sprintf("deepreview-taint-%d", idx+1),
			Level:      mapSeverity(finding.Severity),
			Message:    &sarif.Message{Text: pString(message)},
			Properties: &properties,
			Locations:  []*sarif.Location{buildLocation(finding.File, finding.Line, targetURI)},
		})
	}

	for idx, finding := range report.Analysis.StyleFindings {
		message := finding.Description
		if finding.Recommendation != "" {
			message += "\nRecommendation: " + finding.Recommendation
		}
		results = append(results, &sarif.Result{
			RuleID:  fmt.Sprintf("deepreview-style-%d", idx+1),
			Level:   mapSeverity(finding.Severity),
			Message: &sarif.Message{Text: pString(message)},
			Properties: &sarif.PropertyBag{
				"title":    finding.Title,
				"severity": finding.Severity,
				"source":   "style",
				"metric":   finding.Metric,
				"value":    finding.Value,
			},
			Locations: []*sarif.Location{buildLocation(finding.File, finding.Line, targetURI)},
		})
	}

	rules := make([]*sarif.ReportingDescriptor, 0, len(results))
	for _, result := range results {
		rules = append(rules, &sarif.ReportingDescriptor{
			ID:               result.RuleID,
			Name:             pString(result.RuleID),
			ShortDescription: &sarif.MultiformatMessageString{Text: result.Message.Text},
		})
	}

	return &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						Rules:          rules,
					},
				},
				Results: results,
				Invocations: []*sarif.Invocation{
					{
						ExecutionSuccessful: report.Status == "completed",
						Properties: &sarif.PropertyBag{
							"generated_at":    report.GeneratedAt,
							"analysis_source": report.Analysis.Source,
							"run_name":        report.RunName,
						},
					},
				},
			},
		},
	}
}

// WriteSARIF builds and persists the SARIF log next to the report.
func WriteSARIF(logger *zap.Logger, path string, report *Report, toolVersion string) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := BuildSARIF(report, toolVersion)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating sarif directory: %w", err)
		}
	}
	encoded, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sarif log: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("writing sarif log: %w", err)
	}
	logger.Info("SARIF log saved.", zap.String("path", path), zap.Int("results", len(log.Runs[0].Results)))
	return nil
}
