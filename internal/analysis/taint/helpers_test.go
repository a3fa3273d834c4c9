package taint

import (
	"reflect"
	"testing"
)

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"os.system", "os.system"},
		{"request.args.get", "request.args.get"},
		{"eval", "eval"},
		{"get_db().execute", "execute"},
		{"conn.cursor().execute", "execute"},
		{"(a or b).run", "run"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			root, src := parseModule(t, tt.code)
			expr := root.NamedChild(0)
			if expr != nil && expr.Type() == "expression_statement" {
				expr = expr.NamedChild(0)
			}
			got := qualifiedName(expr, src)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExtractTargetNames(t *testing.T) {
	tests := []struct {
		code     string
		expected []string
	}{
		{"x = 1", []string{"x"}},
		{"a, b = pair()", []string{"a", "b"}},
		{"(a, (b, c)) = nested()", []string{"a", "b", "c"}},
		{"[a, b] = pair()", []string{"a", "b"}},
		{"self.value = 1", []string{"self.value"}},
		{"obj[0] = 1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			root, src := parseModule(t, tt.code)
			stmt := root.NamedChild(0)
			if stmt == nil || stmt.Type() != "expression_statement" {
				t.Fatalf("Unexpected statement shape for %q", tt.code)
			}
			assign := stmt.NamedChild(0)
			got := extractTargetNames(assign.ChildByFieldName("left"), src)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCallArgumentsSplitsKeywords(t *testing.T) {
	root, src := parseModule(t, `run(a, b, key=c, *rest, **extra)`)
	call := root.NamedChild(0).NamedChild(0)
	if call.Type() != "call" {
		t.Fatalf("Expected call node, got %s", call.Type())
	}
	positional, keywords := callArguments(call)
	if len(positional) != 2 {
		t.Errorf("Expected 2 positional args, got %d", len(positional))
	}
	if len(keywords) != 1 {
		t.Fatalf("Expected 1 keyword arg, got %d", len(keywords))
	}
	name := keywords[0].ChildByFieldName("name")
	if name == nil || name.Content(src) != "key" {
		t.Error("Keyword name should be 'key'")
	}
}

func TestArgumentByIndex(t *testing.T) {
	root, src := parseModule(t, `run(a, key=b)`)
	call := root.NamedChild(0).NamedChild(0)
	params := []string{"first", "key"}

	arg := argumentByIndex(call, 0, params, src)
	if arg == nil || arg.Content(src) != "a" {
		t.Error("Index 0 should resolve positionally to 'a'")
	}
	arg = argumentByIndex(call, 1, params, src)
	if arg == nil || arg.Content(src) != "b" {
		t.Error("Index 1 should resolve through the keyword to 'b'")
	}
	if argumentByIndex(call, 2, params, src) != nil {
		t.Error("Out-of-range index should be unbound")
	}
}
