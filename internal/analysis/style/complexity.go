// Package style grades Python functions by cyclomatic complexity and
// reports the ones hard enough to hinder review. Scores count one per
// branch point (if/elif, loops, except clauses, boolean operators,
// conditional expressions, comprehension clauses, match cases,
// asserts) plus one for the function itself.
package style

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.uber.org/zap"
)

var ignoredDirs = map[string]bool{
	".git":            true,
	".venv":           true,
	"venv":            true,
	"__pycache__":     true,
	"deepreview_runs": true,
	".tox":            true,
}

// Finding is one graded complexity result.
type Finding struct {
	Title          string  `json:"title"`
	Severity       string  `json:"severity"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
	File           string  `json:"file"`
	Line           int     `json:"line"`
	Metric         string  `json:"metric"`
	Value          float64 `json:"value"`
}

// Analyzer walks Python trees and scores every function definition,
// methods and nested functions included.
type Analyzer struct {
	logger *zap.Logger
}

func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger}
}

// AnalyzeTree scores every Python file under root, honoring the same
// include filter and directory exclusions as the taint engine.
// Unreadable or unparseable files are skipped.
func (a *Analyzer) AnalyzeTree(root string, includePaths []string) []Finding {
	include := make(map[string]bool, len(includePaths))
	for _, p := range includePaths {
		include[filepath.ToSlash(p)] = true
	}

	var findings []Finding
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
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
		source, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		findings = append(findings, a.AnalyzeSource(rel, source)...)
		return nil
	})
	return findings
}

// AnalyzeSource scores the functions of one in-memory file. Files
// that fail to parse cleanly yield no findings.
func (a *Analyzer) AnalyzeSource(reportPath string, source []byte) []Finding {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		a.logger.Debug("Skipping file with syntax errors.", zap.String("path", reportPath))
		return nil
	}

	var findings []Finding
	for _, def := range collectFunctions(root) {
		nameNode := def.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(source)
		score := complexityOf(def)
		severity := complexitySeverity(score)
		if severity == "" {
			continue
		}
		findings = append(findings, Finding{
			Title:          "High cyclomatic complexity in " + name,
			Severity:       severity,
			Description:    fmt.Sprintf("%s has cyclomatic complexity %d, which may hinder readability and security review.", name, score),
			Recommendation: "Refactor the function into smaller units or simplify branching logic.",
			File:           reportPath,
			Line:           int(def.StartPoint().Row) + 1,
			Metric:         "complexity",
			Value:          float64(score),
		})
	}
	return findings
}

// collectFunctions gathers every function_definition in source order,
// descending into classes and nested functions.
func collectFunctions(root *sitter.Node) []*sitter.Node {
	var defs []*sitter.Node
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "function_definition" {
			defs = append(defs, node)
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(root)
	return defs
}

var branchNodeTypes = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"conditional_expression": true,
	"for_statement":          true,
	"while_statement":        true,
	"except_clause":          true,
	"boolean_operator":       true,
	"case_clause":            true,
	"assert_statement":       true,
	"for_in_clause":          true,
	"if_clause":              true,
}

// complexityOf scores one function body. Nested function definitions
// are scored separately and contribute nothing to their parent.
func complexityOf(def *sitter.Node) int {
	score := 1
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "function_definition" {
				continue
			}
			if branchNodeTypes[child.Type()] {
				score++
			}
			visit(child)
		}
	}
	if body := def.ChildByFieldName("body"); body != nil {
		visit(body)
	}
	return score
}

func complexitySeverity(score int) string {
	switch {
	case score >= 20:
		return "high"
	case score >= 10:
		return "medium"
	default:
		return ""
	}
}
