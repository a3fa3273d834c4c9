package heuristics

import (
	"strconv"
	"strings"

	"github.com/deepreview/deepreview-cli/api/schemas"
	"go.uber.org/zap"
)

// Auditor matches a rule set against diff and snapshot text. Each
// (rule, file, line) identity is reported at most once per run.
type Auditor struct {
	logger      *zap.Logger
	rules       []Rule
	scanContext bool
}

type matchIdentity struct {
	rule string
	file string
	line int
}

func NewAuditor(logger *zap.Logger, rules []Rule, scanContext bool) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rules == nil {
		rules = DefaultRules
	}
	return &Auditor{logger: logger, rules: rules, scanContext: scanContext}
}

// Run scans diffText as a unified diff, then as plain text when
// analysisSource says the text is not actually a diff (e.g. a project
// snapshot), and finally the optional context text when context
// scanning is on.
func (a *Auditor) Run(diffText, contextText, analysisSource string) []schemas.HeuristicFinding {
	var findings []schemas.HeuristicFinding
	seen := make(map[matchIdentity]bool)

	findings = append(findings, a.scanDiff(diffText, seen)...)

	source := strings.ToLower(analysisSource)
	if source == "" {
		source = "diff"
	}
	if diffText != "" && source != "diff" {
		findings = append(findings, a.scanPlain(diffText, source, seen)...)
	}
	if a.scanContext && contextText != "" {
		findings = append(findings, a.scanPlain(contextText, "context", seen)...)
	}

	if len(findings) > 0 {
		a.logger.Debug("Heuristic scan produced findings.", zap.Int("count", len(findings)))
	}
	return findings
}

// scanDiff walks unified diff text tracking the current target file
// and new-side line number, matching rules only against added lines.
func (a *Auditor) scanDiff(diffText string, seen map[matchIdentity]bool) []schemas.HeuristicFinding {
	var findings []schemas.HeuristicFinding
	var currentFile string
	currentLine := 0
	lineKnown := false

	for _, rawLine := range strings.Split(diffText, "\n") {
		if strings.HasPrefix(rawLine, "+++ b/") {
			currentFile = strings.TrimSpace(rawLine[6:])
			continue
		}
		if strings.HasPrefix(rawLine, "@@") {
			currentLine, lineKnown = parseHunkStart(rawLine)
			continue
		}
		if rawLine == "" || (rawLine[0] != '+' && rawLine[0] != '-' && rawLine[0] != ' ') {
			continue
		}
		switch {
		case rawLine[0] == '+' && !strings.HasPrefix(rawLine, "+++"):
			if lineKnown {
				currentLine++
			}
			findings = append(findings, a.matchRules(rawLine[1:], currentFile, currentLine, lineKnown, seen)...)
		case rawLine[0] == ' ':
			if lineKnown {
				currentLine++
			}
		}
	}
	return findings
}

// parseHunkStart extracts the new-side start line from a @@ header,
// positioned one before the first line of the hunk.
func parseHunkStart(header string) (line int, ok bool) {
	plus := strings.IndexByte(header, '+')
	if plus == -1 {
		return 0, false
	}
	segment := header[plus+1:]
	if idx := strings.IndexByte(segment, ' '); idx != -1 {
		segment = segment[:idx]
	}
	if idx := strings.IndexByte(segment, ','); idx != -1 {
		segment = segment[:idx]
	}
	start, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return start - 1, true
}

func (a *Auditor) scanPlain(text, source string, seen map[matchIdentity]bool) []schemas.HeuristicFinding {
	var findings []schemas.HeuristicFinding
	for idx, rawLine := range strings.Split(text, "\n") {
		findings = append(findings, a.matchRules(rawLine, source, idx+1, true, seen)...)
	}
	return findings
}

func (a *Auditor) matchRules(line, filePath string, lineNumber int, lineKnown bool, seen map[matchIdentity]bool) []schemas.HeuristicFinding {
	var matches []schemas.HeuristicFinding
	for _, rule := range a.rules {
		if !rule.Pattern.MatchString(line) {
			continue
		}
		reported := lineNumber
		if !lineKnown {
			reported = 0
		}
		identity := matchIdentity{rule: rule.Name, file: filePath, line: reported}
		if seen[identity] {
			continue
		}
		seen[identity] = true
		matches = append(matches, schemas.HeuristicFinding{
			Title:          titleFromRuleName(rule.Name),
			Severity:       rule.Severity,
			Description:    rule.Description,
			Recommendation: rule.Recommendation,
			File:           filePath,
			Line:           reported,
			Evidence:       strings.TrimSpace(line),
		})
	}
	return matches
}

// titleFromRuleName turns snake_case rule names into display titles
// (eval_exec_usage -> Eval Exec Usage).
func titleFromRuleName(name string) string {
	words := strings.Split(name, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
