package core

// ResolvePath implements §4.1's name resolution order:
//   1. absolute path ("/...")
//   2. namespacePrefix + "/" + name, if that path exists in defMap
//   3. an entry in importAliases
//   4. a top-level "/name"
// It returns the resolved full path and whether a Definition exists at
// it; callers needing "the call resolves to X" semantics should check
// both.
func (t *tables) ResolvePath(name, namespacePrefix string) (string, bool) {
	if len(name) > 0 && name[0] == '/' {
		_, ok := t.defMap[name]
		return name, ok
	}
	if namespacePrefix != "" {
		scoped := namespacePrefix + "/" + name
		if _, ok := t.defMap[scoped]; ok {
			return scoped, true
		}
	}
	if target, ok := t.importAliases[name]; ok {
		_, defOk := t.defMap[target]
		return target, defOk
	}
	top := "/" + name
	_, ok := t.defMap[top]
	return top, ok
}

// resolveCall resolves a Call expression's callee to a Definition, or
// reports that it is a builtin/unresolved name.
func (a *SemanticAnalyzer) resolveCall(call *Call) (*Definition, bool) {
	path, ok := a.tables.ResolvePath(call.Name, call.NamespacePrefix)
	if !ok {
		return nil, false
	}
	return a.tables.defMap[path], true
}
