package taint

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// qualifiedName flattens an attribute access chain into its dotted
// textual form (e.g. os.system, request.args.get). Anything other
// than identifiers and attribute accesses yields an empty prefix, so
// a call like get_db().execute resolves to just "execute".
func qualifiedName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "attribute":
		object := node.ChildByFieldName("object")
		attrNode := node.ChildByFieldName("attribute")
		if attrNode == nil {
			return ""
		}
		attr := attrNode.Content(source)
		if prefix := qualifiedName(object, source); prefix != "" {
			return prefix + "." + attr
		}
		return attr
	case "identifier":
		return node.Content(source)
	}
	return ""
}

// extractTargetNames collects the variable names bound by an
// assignment or loop target. Tuple and list destructuring recurse
// into every element; attribute targets (self.x) are recorded under
// their dotted form.
func extractTargetNames(target *sitter.Node, source []byte) []string {
	if target == nil {
		return nil
	}
	switch target.Type() {
	case "identifier":
		return []string{target.Content(source)}
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list":
		var names []string
		for i := 0; i < int(target.NamedChildCount()); i++ {
			names = append(names, extractTargetNames(target.NamedChild(i), source)...)
		}
		return names
	case "attribute":
		if name := qualifiedName(target, source); name != "" {
			return []string{name}
		}
	}
	return nil
}

// callArguments splits an argument_list into positional expression
// nodes and keyword_argument nodes. Splat arguments (*args, **kwargs)
// are dropped: the design treats them as contributing no taint.
func callArguments(call *sitter.Node) (positional []*sitter.Node, keywords []*sitter.Node) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil, nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		switch child.Type() {
		case "keyword_argument":
			keywords = append(keywords, child)
		case "list_splat", "dictionary_splat", "comment":
			// No contribution.
		default:
			positional = append(positional, child)
		}
	}
	return positional, keywords
}

// argumentByIndex resolves the actual argument expression bound to
// parameter index at a call site: positionally when within range,
// otherwise by matching a keyword argument against the declared
// parameter name. Returns nil when the parameter is unbound.
func argumentByIndex(call *sitter.Node, index int, paramNames []string, source []byte) *sitter.Node {
	positional, keywords := callArguments(call)
	if index < len(positional) {
		return positional[index]
	}
	if index < len(paramNames) {
		want := paramNames[index]
		for _, kw := range keywords {
			name := kw.ChildByFieldName("name")
			if name != nil && name.Content(source) == want {
				return kw.ChildByFieldName("value")
			}
		}
	}
	return nil
}

// parameterNames extracts the ordered positional parameter names of a
// function_definition. Splat parameters (*args, **kwargs) are skipped;
// typed and defaulted parameters contribute their bare name.
func parameterNames(funcDef *sitter.Node, source []byte) []string {
	params := funcDef.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		switch child.Type() {
		case "identifier":
			names = append(names, child.Content(source))
		case "typed_parameter":
			if id := child.NamedChild(0); id != nil && id.Type() == "identifier" {
				names = append(names, id.Content(source))
			}
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, name.Content(source))
			}
		}
	}
	return names
}

// lineOf returns the 1-based line of a node.
func lineOf(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}
