package core

// validateStructShape enforces §4.1's struct-family rules: no
// non-binding body statements, no uninitialized fields.
func (a *SemanticAnalyzer) validateStructShape(def *Definition) error {
	if !isStructFamily(def.Transforms) {
		return nil
	}
	for _, stmt := range def.Body {
		if !stmt.IsBinding {
			return semErr("struct body may only contain field bindings: %s", def.FullPath)
		}
		if len(stmt.Args) == 0 && len(stmt.BodyArgs) == 0 {
			return semErr("struct field %q must be initialized: %s", stmt.Name, def.FullPath)
		}
	}
	return nil
}

// validateLifecycleShape enforces §4.1's lifecycle helper rules: no
// parameters, implicit void return, at most one `mut`, must be nested
// under a struct-family parent, and only `this` (__self) may be assigned
// when `mut` is present.
func (a *SemanticAnalyzer) validateLifecycleShape(def *Definition) error {
	leaf := LeafName(def.FullPath)
	if !lifecycleHelperNames[leaf] {
		return nil
	}
	parent := ParentPath(def.FullPath)
	if parent == "" || !a.tables.structSet[parent] {
		return semErr("lifecycle helper must be nested inside a struct: %s", def.FullPath)
	}
	if len(def.Parameters) > 0 {
		return semErr("lifecycle helper %s takes no parameters", def.FullPath)
	}
	if def.ReturnExpr != nil {
		return semErr("lifecycle helper %s must return void", def.FullPath)
	}
	if t := FindTransform(def.Transforms, "return"); t != nil {
		if len(t.TemplateArgs) != 1 || t.TemplateArgs[0] != "void" {
			return semErr("lifecycle helper %s must return void", def.FullPath)
		}
	}
	mutCount := 0
	for _, t := range def.Transforms {
		if t.Name == "mut" {
			mutCount++
		}
	}
	if mutCount > 1 {
		return semErr("lifecycle helper %s may carry mut at most once", def.FullPath)
	}
	isMut := mutCount == 1
	return a.validateLifecycleAssignTargets(def, isMut)
}

// validateLifecycleAssignTargets walks a lifecycle helper's body: a
// helper that is not `mut` may not contain any assign(...), and a `mut`
// helper may only assign to `this`/__self (or a dereference of it).
func (a *SemanticAnalyzer) validateLifecycleAssignTargets(def *Definition, isMut bool) error {
	var walk func(expr *Expr) error
	walk = func(expr *Expr) error {
		if expr == nil {
			return nil
		}
		if expr.Kind == ExprCall && expr.Name == "assign" && len(expr.Args) == 2 {
			target := expr.Args[0]
			if !isMut {
				return semErr("lifecycle helper %s is not mut: cannot assign", def.FullPath)
			}
			if !isSelfTarget(target) {
				return semErr("only this (__self) may be assigned inside a mut lifecycle helper: %s", def.FullPath)
			}
		}
		for _, a := range expr.Args {
			if err := walk(a); err != nil {
				return err
			}
		}
		for _, b := range expr.BodyArgs {
			if err := walk(b); err != nil {
				return err
			}
		}
		return nil
	}
	for _, stmt := range def.Body {
		if err := walk(stmt); err != nil {
			return err
		}
	}
	return nil
}

func isSelfTarget(expr *Expr) bool {
	if expr.Kind == ExprName && (expr.Name == "this" || expr.Name == "__self") {
		return true
	}
	if expr.Kind == ExprCall && expr.Name == "dereference" && len(expr.Args) == 1 {
		return isSelfTarget(expr.Args[0])
	}
	return false
}
