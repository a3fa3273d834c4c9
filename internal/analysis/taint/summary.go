// Summarization pass: computes a reusable, file-local contract for
// every module-top-level function definition, describing how its
// parameters and known source calls influence its return value and
// the arguments reaching sinks inside its body.
package taint

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// sourceToken is the origin tag for values produced directly by a
// catalog source call. Parameter origins use "param_<i>" tokens.
const sourceToken = "source"

func paramToken(index int) string {
	return fmt.Sprintf("param_%d", index)
}

func parseParamToken(token string) (int, bool) {
	rest, ok := strings.CutPrefix(token, "param_")
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return index, true
}

// FunctionSummary is the immutable per-function taint contract.
// Scoped to the file being analyzed; never mutated after
// construction.
type FunctionSummary struct {
	// Name is the function's declared name.
	Name string
	// ParamNames holds the ordered positional parameter names.
	ParamNames []string
	// ReturnFromSource reports whether the return value can carry
	// taint originating from a catalog source call in the body.
	ReturnFromSource bool
	// ReturnFromParams holds parameter indices whose taint
	// propagates to the return value.
	ReturnFromParams map[int]bool
	// SinkParams holds parameter indices that, when tainted, reach a
	// sink call inside the body.
	SinkParams map[int]bool
}

// BuildFunctionSummaries computes summaries for every top-level
// function definition under root, in declaration order. Decorated
// definitions are unwrapped; class methods, nested functions and
// lambdas are not summarized. Functions summarized earlier in the
// file are visible to the origin oracle of later ones, enabling
// helper-through-helper return propagation.
func BuildFunctionSummaries(root *sitter.Node, source []byte) map[string]*FunctionSummary {
	summaries := make(map[string]*FunctionSummary)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		if node.Type() == "decorated_definition" {
			if def := node.ChildByFieldName("definition"); def != nil {
				node = def
			}
		}
		if node.Type() != "function_definition" {
			continue
		}
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(source)
		analyzer := newFunctionAnalyzer(node, source, summaries)
		analyzer.walk(node)
		summaries[name] = analyzer.summary(name)
	}
	return summaries
}

// functionAnalyzer tracks, per local variable, the set of origin
// tokens the variable's value can be traced back to. Assignment is a
// full overwrite of the previous origin set; there is no loop-aware
// merging across iterations.
type functionAnalyzer struct {
	source     []byte
	summaries  map[string]*FunctionSummary
	paramNames []string
	// origins maps a local variable name to its origin token set.
	origins map[string]map[string]bool

	returnFromSource bool
	returnFromParams map[int]bool
	sinkParams       map[int]bool
}

func newFunctionAnalyzer(funcDef *sitter.Node, source []byte, summaries map[string]*FunctionSummary) *functionAnalyzer {
	fa := &functionAnalyzer{
		source:           source,
		summaries:        summaries,
		paramNames:       parameterNames(funcDef, source),
		origins:          make(map[string]map[string]bool),
		returnFromParams: make(map[int]bool),
		sinkParams:       make(map[int]bool),
	}
	// Each parameter starts with a singleton origin set holding its
	// own positional token, independent of all other parameters.
	for idx, name := range fa.paramNames {
		fa.origins[name] = map[string]bool{paramToken(idx): true}
	}
	return fa
}

func (fa *functionAnalyzer) summary(name string) *FunctionSummary {
	return &FunctionSummary{
		Name:             name,
		ParamNames:       append([]string(nil), fa.paramNames...),
		ReturnFromSource: fa.returnFromSource,
		ReturnFromParams: copyIndexSet(fa.returnFromParams),
		SinkParams:       copyIndexSet(fa.sinkParams),
	}
}

func copyIndexSet(set map[int]bool) map[int]bool {
	out := make(map[int]bool, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}

// walk processes the function body top to bottom.
func (fa *functionAnalyzer) walk(node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "return_statement":
		fa.handleReturn(node)
		fa.walkChildren(node)

	case "assignment":
		// Covers plain and annotated assignments; a bare annotation
		// (x: int) has no right-hand side and binds nothing.
		right := node.ChildByFieldName("right")
		if right == nil {
			return
		}
		origins := fa.exprOrigins(right)
		for _, name := range extractTargetNames(node.ChildByFieldName("left"), fa.source) {
			fa.origins[name] = copyTokenSet(origins)
		}
		fa.walk(right)

	case "for_statement":
		right := node.ChildByFieldName("right")
		origins := fa.exprOrigins(right)
		for _, name := range extractTargetNames(node.ChildByFieldName("left"), fa.source) {
			fa.origins[name] = copyTokenSet(origins)
		}
		fa.walk(right)
		fa.walk(node.ChildByFieldName("body"))

	case "call":
		fa.handleCall(node)
		fa.walkChildren(node)

	default:
		fa.walkChildren(node)
	}
}

func (fa *functionAnalyzer) walkChildren(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		fa.walk(node.NamedChild(i))
	}
}

// handleReturn accumulates return origins across every return
// statement in the body (set union over all exits).
func (fa *functionAnalyzer) handleReturn(node *sitter.Node) {
	value := node.NamedChild(0)
	if value == nil {
		return
	}
	for token := range fa.exprOrigins(value) {
		if token == sourceToken {
			fa.returnFromSource = true
		} else if idx, ok := parseParamToken(token); ok {
			fa.returnFromParams[idx] = true
		}
	}
}

// handleCall records which parameters reach a sink call inside the
// body. Keyword arguments are resolved back to the declared position
// of the keyword's parameter name.
func (fa *functionAnalyzer) handleCall(node *sitter.Node) {
	reason := sinkReason(node.ChildByFieldName("function"), fa.source)
	if reason == "" {
		return
	}
	positional, keywords := callArguments(node)
	for _, arg := range positional {
		for token := range fa.exprOrigins(arg) {
			if idx, ok := parseParamToken(token); ok {
				fa.sinkParams[idx] = true
			}
		}
	}
	for _, kw := range keywords {
		name := kw.ChildByFieldName("name")
		if name == nil {
			continue
		}
		declared := indexOf(fa.paramNames, name.Content(fa.source))
		if declared < 0 {
			continue
		}
		for token := range fa.exprOrigins(kw.ChildByFieldName("value")) {
			if _, ok := parseParamToken(token); ok {
				fa.sinkParams[declared] = true
			}
		}
	}
}

// exprOrigins computes the origin token set of an expression: the
// union of its sub-expressions' origin sets, recursing through
// attribute and subscript access, binary and boolean operators,
// string interpolation, container literals and calls.
func (fa *functionAnalyzer) exprOrigins(node *sitter.Node) map[string]bool {
	origins := make(map[string]bool)
	if node == nil {
		return origins
	}
	switch node.Type() {
	case "identifier":
		return copyTokenSet(fa.origins[node.Content(fa.source)])

	case "call":
		name := qualifiedName(node.ChildByFieldName("function"), fa.source)
		if sourceCalls[name] {
			origins[sourceToken] = true
			return origins
		}
		if summary, ok := fa.summaries[name]; ok {
			if summary.ReturnFromSource {
				origins[sourceToken] = true
			}
			for idx := range summary.ReturnFromParams {
				arg := argumentByIndex(node, idx, summary.ParamNames, fa.source)
				if arg != nil {
					mergeTokens(origins, fa.exprOrigins(arg))
				}
			}
		}

	case "attribute":
		return fa.exprOrigins(node.ChildByFieldName("object"))

	case "subscript":
		mergeTokens(origins, fa.exprOrigins(node.ChildByFieldName("value")))
		mergeTokens(origins, fa.exprOrigins(node.ChildByFieldName("subscript")))

	case "binary_operator", "boolean_operator":
		mergeTokens(origins, fa.exprOrigins(node.ChildByFieldName("left")))
		mergeTokens(origins, fa.exprOrigins(node.ChildByFieldName("right")))

	case "string", "concatenated_string":
		// f-string interpolations are the only string children that
		// can carry taint.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "interpolation" || child.Type() == "string" {
				mergeTokens(origins, fa.exprOrigins(child))
			}
		}

	case "interpolation":
		return fa.exprOrigins(node.NamedChild(0))

	case "list", "tuple", "set":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			mergeTokens(origins, fa.exprOrigins(node.NamedChild(i)))
		}

	case "dictionary":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			pair := node.NamedChild(i)
			if pair.Type() != "pair" {
				continue
			}
			mergeTokens(origins, fa.exprOrigins(pair.ChildByFieldName("key")))
			mergeTokens(origins, fa.exprOrigins(pair.ChildByFieldName("value")))
		}

	case "parenthesized_expression":
		return fa.exprOrigins(node.NamedChild(0))

	case "assignment":
		// Chained assignment (a = b = source()): the value of the
		// inner assignment is its right-hand side.
		return fa.exprOrigins(node.ChildByFieldName("right"))
	}
	return origins
}

func copyTokenSet(set map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}

func mergeTokens(dst, src map[string]bool) {
	for k := range src {
		dst[k] = true
	}
}

func indexOf(names []string, want string) int {
	for i, name := range names {
		if name == want {
			return i
		}
	}
	return -1
}

// sinkReason classifies a callee node against the sink catalog:
// either a direct qualified-name match, or an attribute call whose
// trailing attribute is a known SQL execution name.
func sinkReason(callee *sitter.Node, source []byte) string {
	if callee == nil {
		return ""
	}
	name := qualifiedName(callee, source)
	if reason, ok := sinkCalls[name]; ok {
		return reason
	}
	if callee.Type() == "attribute" {
		if attr := callee.ChildByFieldName("attribute"); attr != nil {
			if trailing := attr.Content(source); sqlSinkNames[trailing] {
				return trailing + " (possible SQL execution)"
			}
		}
	}
	return ""
}
