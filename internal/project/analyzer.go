// Package project collects lightweight metadata about a Python
// repository: declared dependencies, interpreter constraints, and
// framework hints. The metadata feeds the review prompt and the
// report; nothing here affects the taint analysis itself.
package project

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// frameworkHints maps a framework name to dependency substrings that
// suggest its presence.
var frameworkHints = map[string][]string{
	"django":     {"django"},
	"flask":      {"flask"},
	"fastapi":    {"fastapi", "starlette"},
	"pydantic":   {"pydantic"},
	"sqlalchemy": {"sqlalchemy"},
}

// keyFiles maps a framework to tell-tale filenames at the repo root.
var keyFiles = map[string][]string{
	"django":  {"manage.py", "settings.py"},
	"flask":   {"app.py"},
	"fastapi": {"main.py"},
}

const dependencyListLimit = 50

// Metadata is the JSON-friendly summary handed to the prompt builder
// and embedded in the report.
type Metadata struct {
	PythonVersion   string   `json:"python_version,omitempty"`
	DependencyCount int      `json:"dependency_count"`
	Dependencies    []string `json:"dependencies"`
	Frameworks      []string `json:"frameworks"`
	Notes           []string `json:"notes,omitempty"`
}

// Analyzer inspects one repository root.
type Analyzer struct {
	logger  *zap.Logger
	rootDir string

	pythonVersion string
	dependencies  []string
	frameworks    []string
	notes         []string
}

func NewAnalyzer(logger *zap.Logger, rootDir string) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		abs = rootDir
	}
	return &Analyzer{logger: logger, rootDir: abs}
}

// Inspect reads project files and detects frameworks. Missing or
// broken files degrade to notes; Inspect itself never fails.
func (a *Analyzer) Inspect() {
	a.logger.Info("Inspecting repository metadata.", zap.String("root", a.rootDir))
	a.readPyproject()
	a.readRequirements()
	a.readPythonVersionFile()
	a.detectFrameworks()
}

type pyprojectFile struct {
	Project struct {
		RequiresPython string   `toml:"requires-python"`
		Dependencies   []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func (a *Analyzer) readPyproject() {
	path := filepath.Join(a.rootDir, "pyproject.toml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var parsed pyprojectFile
	if _, err := toml.Decode(string(raw), &parsed); err != nil {
		a.notes = append(a.notes, "pyproject.toml could not be parsed.")
		a.logger.Debug("Failed to parse pyproject.toml.", zap.Error(err))
		return
	}
	if parsed.Project.RequiresPython != "" {
		a.pythonVersion = parsed.Project.RequiresPython
	}
	a.dependencies = append(a.dependencies, normalizeDeps(parsed.Project.Dependencies)...)

	for name, constraint := range parsed.Tool.Poetry.Dependencies {
		if strings.EqualFold(name, "python") {
			if a.pythonVersion == "" {
				if version, ok := constraint.(string); ok {
					a.pythonVersion = version
				}
			}
			continue
		}
		a.dependencies = append(a.dependencies, normalizeDeps([]string{name})...)
	}
}

func (a *Analyzer) readRequirements() {
	path := filepath.Join(a.rootDir, "requirements.txt")
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			a.notes = append(a.notes, "requirements.txt could not be read.")
		}
		return
	}
	var deps []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		deps = append(deps, line)
	}
	a.dependencies = append(a.dependencies, normalizeDeps(deps)...)
}

func (a *Analyzer) readPythonVersionFile() {
	if a.pythonVersion != "" {
		return
	}
	raw, err := os.ReadFile(filepath.Join(a.rootDir, ".python-version"))
	if err != nil {
		return
	}
	a.pythonVersion = strings.TrimSpace(string(raw))
}

// normalizeDeps strips environment markers (everything after ";").
func normalizeDeps(deps []string) []string {
	var normalized []string
	for _, dep := range deps {
		cleaned, _, _ := strings.Cut(dep, ";")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned != "" {
			normalized = append(normalized, cleaned)
		}
	}
	return normalized
}

func (a *Analyzer) detectFrameworks() {
	detected := make(map[string]bool)
	for _, dep := range a.dependencies {
		lower := strings.ToLower(dep)
		for name, hints := range frameworkHints {
			for _, hint := range hints {
				if strings.Contains(lower, hint) {
					detected[name] = true
				}
			}
		}
	}
	for framework, files := range keyFiles {
		for _, fileName := range files {
			if _, err := os.Stat(filepath.Join(a.rootDir, fileName)); err == nil {
				detected[framework] = true
			}
		}
	}
	a.frameworks = make([]string, 0, len(detected))
	for name := range detected {
		a.frameworks = append(a.frameworks, name)
	}
	sort.Strings(a.frameworks)
}

// Metadata returns the deduplicated, sorted summary. The dependency
// list is capped to keep the prompt and report compact.
func (a *Analyzer) Metadata() Metadata {
	unique := make(map[string]bool)
	for _, dep := range a.dependencies {
		unique[dep] = true
	}
	deps := make([]string, 0, len(unique))
	for dep := range unique {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	listed := deps
	if len(listed) > dependencyListLimit {
		listed = listed[:dependencyListLimit]
	}
	frameworks := a.frameworks
	if frameworks == nil {
		frameworks = []string{}
	}
	return Metadata{
		PythonVersion:   a.pythonVersion,
		DependencyCount: len(deps),
		Dependencies:    listed,
		Frameworks:      frameworks,
		Notes:           a.notes,
	}
}
