package taint

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func parseModule(t *testing.T, code string) (*sitter.Node, []byte) {
	t.Helper()
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	src := []byte(code)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return tree.RootNode(), src
}

func buildSummaries(t *testing.T, code string) map[string]*FunctionSummary {
	t.Helper()
	root, src := parseModule(t, code)
	return BuildFunctionSummaries(root, src)
}

func requireSummary(t *testing.T, summaries map[string]*FunctionSummary, name string) *FunctionSummary {
	t.Helper()
	summary, ok := summaries[name]
	if !ok {
		t.Fatalf("No summary for %q (have %d summaries)", name, len(summaries))
	}
	return summary
}

func TestSummaryReturnFromParam(t *testing.T) {
	code := `
def wrap(prefix, value):
    return prefix + value
`
	s := requireSummary(t, buildSummaries(t, code), "wrap")
	if len(s.ParamNames) != 2 || s.ParamNames[0] != "prefix" || s.ParamNames[1] != "value" {
		t.Errorf("Unexpected params %v", s.ParamNames)
	}
	if s.ReturnFromSource {
		t.Error("Return should not derive from a source")
	}
	if !s.ReturnFromParams[0] || !s.ReturnFromParams[1] {
		t.Errorf("Both params should flow to the return, got %v", s.ReturnFromParams)
	}
}

func TestSummaryReturnFromSource(t *testing.T) {
	code := `
def read():
    value = input()
    return value
`
	s := requireSummary(t, buildSummaries(t, code), "read")
	if !s.ReturnFromSource {
		t.Error("Expected ReturnFromSource")
	}
	if len(s.ReturnFromParams) != 0 {
		t.Errorf("No params, got %v", s.ReturnFromParams)
	}
}

func TestSummarySinkParamPositional(t *testing.T) {
	code := `
def run(cmd, quiet):
    os.system(cmd)
`
	s := requireSummary(t, buildSummaries(t, code), "run")
	if !s.SinkParams[0] {
		t.Error("Param 0 should reach the sink")
	}
	if s.SinkParams[1] {
		t.Error("Param 1 does not reach the sink")
	}
}

func TestSummarySinkParamThroughLocal(t *testing.T) {
	code := `
def run(cmd):
    full = "sh -c " + cmd
    os.system(full)
`
	s := requireSummary(t, buildSummaries(t, code), "run")
	if !s.SinkParams[0] {
		t.Error("Param 0 should reach the sink through the local")
	}
}

func TestSummarySinkParamViaKeyword(t *testing.T) {
	code := `
def run(cmd):
    subprocess.run(check=True, args=cmd)
`
	s := requireSummary(t, buildSummaries(t, code), "run")
	if len(s.SinkParams) != 0 {
		// The keyword name "args" does not match the declared
		// parameter "cmd", so the binding contributes nothing.
		t.Errorf("Unmatched keyword should add no sink params, got %v", s.SinkParams)
	}
}

func TestSummaryKeywordMatchingDeclaredParam(t *testing.T) {
	code := `
def run(cmd):
    subprocess.run(cmd=cmd)
`
	s := requireSummary(t, buildSummaries(t, code), "run")
	if !s.SinkParams[0] {
		t.Errorf("Keyword matching a declared param should register, got %v", s.SinkParams)
	}
}

func TestSummaryOverwriteClearsOrigin(t *testing.T) {
	code := `
def run(cmd):
    cmd = "safe"
    os.system(cmd)
`
	s := requireSummary(t, buildSummaries(t, code), "run")
	if len(s.SinkParams) != 0 {
		t.Errorf("Overwritten param should not reach the sink, got %v", s.SinkParams)
	}
}

func TestSummaryUnionAcrossReturns(t *testing.T) {
	code := `
def pick(a, b, flag):
    if flag:
        return a
    return b
`
	s := requireSummary(t, buildSummaries(t, code), "pick")
	if !s.ReturnFromParams[0] || !s.ReturnFromParams[1] {
		t.Errorf("Both branches should contribute, got %v", s.ReturnFromParams)
	}
	if s.ReturnFromParams[2] {
		t.Error("The flag only guards, it does not flow")
	}
}

func TestSummaryDecoratedDefinition(t *testing.T) {
	code := `
@app.route("/run")
def handler(cmd):
    os.system(cmd)
`
	s := requireSummary(t, buildSummaries(t, code), "handler")
	if !s.SinkParams[0] {
		t.Error("Decorated function should still be summarized")
	}
}

func TestSummarySkipsClassMethods(t *testing.T) {
	code := `
class Runner:
    def run(self, cmd):
        os.system(cmd)
`
	summaries := buildSummaries(t, code)
	if _, ok := summaries["run"]; ok {
		t.Error("Class methods are not module-top-level and must not be summarized")
	}
}

func TestSummaryConsultsEarlierFunctions(t *testing.T) {
	code := `
def read():
    return input()

def forward():
    return read()
`
	s := requireSummary(t, buildSummaries(t, code), "forward")
	if !s.ReturnFromSource {
		t.Error("Forwarding an earlier source-returning helper should taint the return")
	}
}

func TestSummarySplatParametersSkipped(t *testing.T) {
	code := `
def run(cmd, *rest, **extra):
    os.system(cmd)
`
	s := requireSummary(t, buildSummaries(t, code), "run")
	if len(s.ParamNames) != 1 || s.ParamNames[0] != "cmd" {
		t.Errorf("Splat params should be skipped, got %v", s.ParamNames)
	}
}

func TestSummaryTypedAndDefaultedParams(t *testing.T) {
	code := `
def run(cmd: str, timeout=30, shell: bool = False):
    os.system(cmd)
`
	s := requireSummary(t, buildSummaries(t, code), "run")
	want := []string{"cmd", "timeout", "shell"}
	if len(s.ParamNames) != len(want) {
		t.Fatalf("Expected %v, got %v", want, s.ParamNames)
	}
	for i, name := range want {
		if s.ParamNames[i] != name {
			t.Errorf("Param %d: expected %s, got %s", i, name, s.ParamNames[i])
		}
	}
}
