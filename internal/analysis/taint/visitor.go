// Analysis pass: walks the file top to bottom with the function
// summaries in hand, tracking which variable names currently hold
// tainted values and reporting every tainted value that reaches a
// sink call, directly or through a summarized helper.
package taint

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

type taintVisitor struct {
	filePath  string
	source    []byte
	summaries map[string]*FunctionSummary
	// scoped restricts taint markers to the enclosing function
	// definition instead of the whole file.
	scoped bool

	tainted       map[string]bool
	functionStack []string
	findings      []Finding
}

func newTaintVisitor(filePath string, source []byte, summaries map[string]*FunctionSummary, scoped bool) *taintVisitor {
	return &taintVisitor{
		filePath:  filePath,
		source:    source,
		summaries: summaries,
		scoped:    scoped,
		tainted:   make(map[string]bool),
	}
}

func (tv *taintVisitor) walk(node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "decorated_definition":
		tv.walk(node.ChildByFieldName("definition"))

	case "function_definition":
		name := node.ChildByFieldName("name")
		if name != nil {
			tv.functionStack = append(tv.functionStack, name.Content(tv.source))
		}
		var saved map[string]bool
		if tv.scoped {
			saved = tv.tainted
			tv.tainted = make(map[string]bool, len(saved))
			for k, v := range saved {
				tv.tainted[k] = v
			}
		}
		tv.walk(node.ChildByFieldName("body"))
		if tv.scoped {
			tv.tainted = saved
		}
		if name != nil {
			tv.functionStack = tv.functionStack[:len(tv.functionStack)-1]
		}

	case "assignment":
		right := node.ChildByFieldName("right")
		if right == nil {
			return
		}
		tainted := tv.exprTainted(right)
		for _, target := range extractTargetNames(node.ChildByFieldName("left"), tv.source) {
			if tainted {
				tv.tainted[target] = true
			} else {
				// Reassignment to a clean value clears the marker.
				delete(tv.tainted, target)
			}
		}
		tv.walk(right)

	case "augmented_assignment":
		tv.walkChildren(node)

	case "for_statement":
		right := node.ChildByFieldName("right")
		if tv.exprTainted(right) {
			for _, target := range extractTargetNames(node.ChildByFieldName("left"), tv.source) {
				tv.tainted[target] = true
			}
		}
		tv.walk(right)
		tv.walk(node.ChildByFieldName("body"))

	case "call":
		tv.inspectCall(node)
		tv.walkChildren(node)

	default:
		tv.walkChildren(node)
	}
}

func (tv *taintVisitor) walkChildren(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		tv.walk(node.NamedChild(i))
	}
}

// inspectCall checks one call node against the sink catalog and the
// helper summaries, reporting at most one direct finding per call and
// one helper finding per sink parameter carrying taint.
func (tv *taintVisitor) inspectCall(call *sitter.Node) {
	callee := call.ChildByFieldName("function")
	if reason := sinkReason(callee, tv.source); reason != "" {
		if tv.anyArgumentTainted(call) {
			tv.findings = append(tv.findings, Finding{
				Title:          "Tainted data flows into " + reason,
				Severity:       severityHigh,
				Description:    "Potentially untrusted input reaches " + reason + ".",
				Recommendation: "Validate, sanitize, or escape user input before invoking this operation.",
				File:           tv.filePath,
				Line:           lineOf(call),
				Function:       strings.Join(tv.functionStack, "."),
				Sink:           reason,
			})
		}
		return
	}

	summary, ok := tv.summaries[qualifiedName(callee, tv.source)]
	if !ok {
		return
	}
	for idx := range summary.SinkParams {
		arg := argumentByIndex(call, idx, summary.ParamNames, tv.source)
		if arg == nil || !tv.exprTainted(arg) {
			continue
		}
		tv.findings = append(tv.findings, Finding{
			Title:          "Tainted argument flows through " + summary.Name,
			Severity:       severityHigh,
			Description:    "Helper '" + summary.Name + "' routes tainted data into a sensitive sink.",
			Recommendation: "Sanitize within the helper or validate inputs before calling it.",
			File:           tv.filePath,
			Line:           lineOf(call),
			Function:       summary.Name,
			Sink:           "helper_sink",
		})
	}
}

func (tv *taintVisitor) anyArgumentTainted(call *sitter.Node) bool {
	positional, keywords := callArguments(call)
	for _, arg := range positional {
		if tv.exprTainted(arg) {
			return true
		}
	}
	for _, kw := range keywords {
		if tv.exprTainted(kw.ChildByFieldName("value")) {
			return true
		}
	}
	return false
}

// exprTainted is the boolean taint oracle: true when any reachable
// sub-expression is a tainted variable, a catalog source call, or a
// summarized helper call whose return carries taint.
func (tv *taintVisitor) exprTainted(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "identifier":
		return tv.tainted[node.Content(tv.source)]

	case "call":
		name := qualifiedName(node.ChildByFieldName("function"), tv.source)
		if sourceCalls[name] {
			return true
		}
		if summary, ok := tv.summaries[name]; ok {
			if summary.ReturnFromSource {
				return true
			}
			for idx := range summary.ReturnFromParams {
				arg := argumentByIndex(node, idx, summary.ParamNames, tv.source)
				if arg != nil && tv.exprTainted(arg) {
					return true
				}
			}
		}
		return false

	case "attribute":
		return tv.exprTainted(node.ChildByFieldName("object"))

	case "subscript":
		return tv.exprTainted(node.ChildByFieldName("value")) ||
			tv.exprTainted(node.ChildByFieldName("subscript"))

	case "binary_operator", "boolean_operator":
		return tv.exprTainted(node.ChildByFieldName("left")) ||
			tv.exprTainted(node.ChildByFieldName("right"))

	case "string", "concatenated_string":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "interpolation" || child.Type() == "string" {
				if tv.exprTainted(child) {
					return true
				}
			}
		}
		return false

	case "interpolation":
		return tv.exprTainted(node.NamedChild(0))

	case "list", "tuple", "set":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if tv.exprTainted(node.NamedChild(i)) {
				return true
			}
		}
		return false

	case "dictionary":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			pair := node.NamedChild(i)
			if pair.Type() != "pair" {
				continue
			}
			if tv.exprTainted(pair.ChildByFieldName("key")) ||
				tv.exprTainted(pair.ChildByFieldName("value")) {
				return true
			}
		}
		return false

	case "parenthesized_expression":
		return tv.exprTainted(node.NamedChild(0))

	case "assignment":
		return tv.exprTainted(node.ChildByFieldName("right"))
	}
	return false
}
