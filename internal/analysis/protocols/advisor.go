// Package protocols detects which interaction surfaces a Python
// target exposes (websocket, gRPC, CLI, GraphQL, raw TCP) and renders
// the evidence as review hints for the LLM prompt.
package protocols

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

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

// protocolHints maps a detector name to the guidance line rendered
// into the review prompt when that protocol is present.
var protocolHints = map[string]string{
	"websocket": "The target hosts WebSocket/socket.io handlers. Review event handlers for missing authentication and unvalidated payloads.",
	"grpc":      "The code defines gRPC services. Review service methods for per-RPC authentication and input validation.",
	"cli":       "Entry points accept CLI arguments or spawn subprocesses. Review argument and environment handling for injection paths.",
	"graphql":   "GraphQL endpoints detected. Review resolvers for authorization gaps and overly permissive queries or mutations.",
	"raw_tcp":   "Raw TCP socket usage detected. Review custom protocol parsing for unbounded reads and missing validation.",
	"static":    "Static scan flagged high-risk patterns (hard-coded secrets, dangerous subprocess usage).",
}

// detector pairs a per-line file pattern with a change-text fallback
// used when no file under the root matches.
type detector struct {
	name       string
	pattern    *regexp.Regexp
	blobMarker string
	blobDetail string
}

var detectors = []detector{
	{
		name:       "websocket",
		pattern:    regexp.MustCompile(`(?i)^\s*(from|import)\s+\S*socketio|SocketIO\s*\(`),
		blobMarker: "socketio",
		blobDetail: "SocketIO reference in diff/context.",
	},
	{
		name:    "grpc",
		pattern: regexp.MustCompile(`(?i)^\s*(from|import)\s+\S*grpc\b|\b(insecure_channel|secure_channel)\s*\(|\bgrpc\.server\s*\(`),
	},
	{
		name:    "cli",
		pattern: regexp.MustCompile(`(?i)^\s*(from|import)\s+(argparse|click|typer)\b|\.add_argument\s*\(|@(click\.|typer\.)?(command|option)\b`),
	},
	{
		name:       "graphql",
		pattern:    regexp.MustCompile(`(?i)^\s*(from|import)\s+\S*graphql\b|\bGraphQLView\b|\bgraphene\.`),
		blobMarker: "graphql",
		blobDetail: "GraphQL reference in diff/context.",
	},
	{
		name:       "raw_tcp",
		pattern:    regexp.MustCompile(`\bsocket\.socket\s*\(|\.bind\s*\(|\.listen\s*\(`),
		blobMarker: "socket.socket",
		blobDetail: "Socket usage reference in diff/context.",
	},
}

// Evidence is one detected protocol surface with its supporting
// file locations.
type Evidence struct {
	Name    string
	Files   []string
	Details []string
}

// Advisor scans a target tree plus the collected change text for
// protocol indicators.
type Advisor struct {
	logger *zap.Logger
}

func NewAdvisor(logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{logger: logger}
}

// Gather runs every detector over the Python files under rootDir and
// the change text, returning only detectors that produced evidence.
func (a *Advisor) Gather(rootDir, changeText string) []Evidence {
	lowered := strings.ToLower(changeText)

	var evidences []Evidence
	for _, det := range detectors {
		files, details := a.scanFiles(rootDir, det)
		if len(files) == 0 && det.blobMarker != "" && strings.Contains(lowered, det.blobMarker) {
			details = append(details, det.blobDetail)
		}
		if len(files) > 0 || len(details) > 0 {
			evidences = append(evidences, Evidence{Name: det.name, Files: files, Details: details})
		}
	}

	if details := scanStaticPatterns(lowered); len(details) > 0 {
		evidences = append(evidences, Evidence{Name: "static", Details: details})
	}
	if len(evidences) > 0 {
		a.logger.Debug("Protocol indicators detected.", zap.Int("count", len(evidences)))
	}
	return evidences
}

// Describe renders the gathered evidence as the hint block embedded
// in the review prompt, capped at three details per protocol. Empty
// when nothing was detected.
func (a *Advisor) Describe(rootDir, changeText string) string {
	evidences := a.Gather(rootDir, changeText)
	if len(evidences) == 0 {
		return ""
	}

	lines := []string{"Detected protocol indicators:"}
	for _, evidence := range evidences {
		lines = append(lines, "- "+protocolHints[evidence.Name])
		details := evidence.Details
		if len(details) > 3 {
			details = details[:3]
		}
		for _, detail := range details {
			lines = append(lines, "  * "+detail)
		}
	}
	return strings.Join(lines, "\n")
}

// scanFiles matches the detector's pattern line by line against every
// Python file under rootDir, recording at most two details per file.
func (a *Advisor) scanFiles(rootDir string, det detector) (files, details []string) {
	if rootDir == "" {
		return nil, nil
	}
	filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != rootDir && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		matched := 0
		for lineNo, line := range strings.Split(string(content), "\n") {
			if !det.pattern.MatchString(line) {
				continue
			}
			if matched == 0 {
				files = append(files, rel)
			}
			if matched < 2 {
				details = append(details, fmt.Sprintf("%s indicator %q (%s:%d).",
					det.name, strings.TrimSpace(line), rel, lineNo+1))
			}
			matched++
		}
		return nil
	})
	return files, details
}

// scanStaticPatterns surfaces blunt risk markers from the change text
// itself; these need no file evidence.
func scanStaticPatterns(lowered string) []string {
	var details []string
	if strings.Contains(lowered, "subprocess.popen") || strings.Contains(lowered, "os.system") {
		details = append(details, "Potential dangerous subprocess execution.")
	}
	if strings.Contains(lowered, "aws_secret_access_key") || strings.Contains(lowered, "api_key") {
		details = append(details, "Possible hard-coded credential detected.")
	}
	if strings.Contains(lowered, "eval(") || strings.Contains(lowered, "exec(") {
		details = append(details, "Dynamic eval/exec usage spotted.")
	}
	return details
}
