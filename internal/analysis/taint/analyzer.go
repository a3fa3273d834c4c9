package taint

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.uber.org/zap"
)

const severityHigh = "high"

// Finding is one reported taint flow. Findings are emitted in source
// order per file and never deduplicated.
type Finding struct {
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	File           string `json:"file"`
	Line           int    `json:"line"`
	Function       string `json:"function,omitempty"`
	Sink           string `json:"sink,omitempty"`
}

// Options tunes analyzer behavior.
type Options struct {
	// FunctionScopedTaint confines taint markers to the function
	// definition that introduced them. The default (false) keeps a
	// single marker set per file, which over-approximates flows across
	// sibling functions.
	FunctionScopedTaint bool
}

// Analyzer runs the two-pass taint analysis over Python files.
// Analysis is per file; no state is shared across files.
type Analyzer struct {
	logger *zap.Logger
	opts   Options
}

func NewAnalyzer(logger *zap.Logger, opts Options) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger, opts: opts}
}

// AnalyzeTree walks root, analyzes every Python file found, and
// returns all findings in walk order. When includePaths is non-empty
// only files whose slash-normalized path relative to root appears in
// it are analyzed. Unreadable or unparseable files are skipped; the
// walk itself never fails the analysis.
func (a *Analyzer) AnalyzeTree(root string, includePaths []string) []Finding {
	include := make(map[string]bool, len(includePaths))
	for _, p := range includePaths {
		include[filepath.ToSlash(p)] = true
	}

	var findings []Finding
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			a.logger.Debug("Skipping unreadable path.", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), pythonExtension) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		if len(include) > 0 && !include[rel] {
			return nil
		}
		findings = append(findings, a.AnalyzeFile(path, rel)...)
		return nil
	})
	if err != nil {
		a.logger.Warn("Tree walk aborted.", zap.String("root", root), zap.Error(err))
	}
	return findings
}

// AnalyzeFile analyzes a single file on disk. reportPath is the path
// recorded in findings; pass the same value as path to report
// absolute locations.
func (a *Analyzer) AnalyzeFile(path, reportPath string) []Finding {
	source, err := os.ReadFile(path)
	if err != nil {
		a.logger.Debug("Skipping unreadable file.", zap.String("path", path), zap.Error(err))
		return nil
	}
	return a.AnalyzeSource(reportPath, source)
}

// AnalyzeSource analyzes in-memory Python source. Files that fail to
// parse cleanly yield no findings.
func (a *Analyzer) AnalyzeSource(reportPath string, source []byte) []Finding {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		a.logger.Debug("Skipping unparseable file.", zap.String("path", reportPath), zap.Error(err))
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		a.logger.Debug("Skipping file with syntax errors.", zap.String("path", reportPath))
		return nil
	}

	summaries := BuildFunctionSummaries(root, source)
	visitor := newTaintVisitor(reportPath, source, summaries, a.opts.FunctionScopedTaint)
	visitor.walk(root)

	if len(visitor.findings) > 0 {
		a.logger.Debug("Taint analysis produced findings.",
			zap.String("path", reportPath),
			zap.Int("count", len(visitor.findings)))
	}
	return visitor.findings
}
