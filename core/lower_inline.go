package core

// inlineFrame tracks an in-progress inlined call's return plumbing
// (§4.2's inlining totality: no call stack exists at runtime, so a
// nested return(...) must jump to the end of the inlined body and leave
// its value in resultSlot rather than halting the whole activation the
// way a top-level return(...) does).
type inlineFrame struct {
	resultSlot   int // -1 when the callee returns void
	pendingJumps []int
}

// lowerInlineCall fully inlines a user Definition call at its call site
// (§4.2, §9: "Full call inlining (no call stack; recursion is a hard
// error)"). Arguments are lowered in the caller's scope and stored into
// fresh slots the callee's body sees as its parameters; the callee's own
// body never sees the caller's other locals. Dotted method calls
// (Foo().ping(), obj.ping()) dispatch through lowerMethodCall instead,
// since their receiver resolves the callee's namespace rather than its
// bare name.
func (l *IrLowerer) lowerInlineCall(call *Call, sc *scope) error {
	if call.IsMethodCall {
		return l.lowerMethodCall(call, sc)
	}
	path, ok := l.tables.ResolvePath(call.Name, call.NamespacePrefix)
	if !ok {
		return lowerErr("unresolved call: %s", call.Name)
	}
	def, ok := l.tables.defMap[path]
	if !ok {
		return lowerErr("unresolved call: %s", call.Name)
	}
	if isStructFamily(def.Transforms) {
		return lowerErr("cannot call a struct definition directly: %s", def.FullPath)
	}
	if l.inlineStack[def.FullPath] {
		return lowerErr("recursive call is not supported: %s", def.FullPath)
	}

	params := l.tables.paramMap[def.FullPath]
	if len(params) != len(call.Args) {
		return lowerErr("%s expects %d arguments, got %d", def.FullPath, len(params), len(call.Args))
	}

	callee := newScope(nil)
	for i, param := range params {
		argKind := l.exprKind(call.Args[i], sc)
		if err := l.lowerExpr(call.Args[i], sc); err != nil {
			return err
		}
		slot := l.allocLocal()
		l.build.emit(OpStoreLocal, uint64(slot))
		paramKind := argKind
		for _, t := range param.Transforms {
			if isTypeTag(t) {
				if k := valueKindFromTypeName(t.Name); k != KindUnknown {
					paramKind = k
				}
			}
		}
		callee.declare(param.Name, &localInfo{slot: slot, kind: localValue, valueKind: paramKind})
	}

	return l.inlineDefBody(def, callee)
}

// inlineDefBody runs def's body in callee (already holding its bound
// parameters), threading return(...) through the inlineFrame/returnStack
// mechanism, and leaves the result value on the stack when def returns
// non-void (§4.2). Shared by lowerInlineCall and lowerMethodCall.
func (l *IrLowerer) inlineDefBody(def *Definition, callee *scope) error {
	if l.inlineStack[def.FullPath] {
		return lowerErr("recursive call is not supported: %s", def.FullPath)
	}

	returnKind, err := ReturnKindOrDefault(l.tables.returnKinds[def.FullPath], false)
	if err != nil {
		return err
	}
	resultSlot := -1
	if returnKind != KindVoid {
		resultSlot = l.allocTempLocal()
	}

	frame := &inlineFrame{resultSlot: resultSlot}
	l.returnStack = append(l.returnStack, frame)
	l.inlineStack[def.FullPath] = true

	fellThrough, bodyErr := l.lowerStatements(def.Body, callee)
	if bodyErr == nil && def.ReturnExpr != nil {
		if err := l.lowerExpr(def.ReturnExpr, callee); err != nil {
			bodyErr = err
		} else if resultSlot >= 0 {
			l.build.emit(OpStoreLocal, uint64(resultSlot))
		} else {
			l.build.emit(OpPop, 0)
		}
	} else if bodyErr == nil && fellThrough && returnKind != KindVoid {
		bodyErr = lowerErr("%s does not return on every path", def.FullPath)
	}

	delete(l.inlineStack, def.FullPath)
	l.returnStack = l.returnStack[:len(l.returnStack)-1]
	if bodyErr != nil {
		return bodyErr
	}

	end := l.build.here()
	for _, j := range frame.pendingJumps {
		l.build.patch(j, end)
	}
	if resultSlot >= 0 {
		l.build.emit(OpLoadLocal, uint64(resultSlot))
	}
	return nil
}

// lowerMethodCall implements struct method dispatch for a dotted call
// (§8.6's Foo().ping(): "all three backends must return 9"). The
// receiver is resolved to a struct instance (constructing one fresh when
// the receiver is itself a struct constructor call) and its namespace,
// not the method's bare name, is what the call resolves against — the
// same receiver-namespace resolution isStructFamily's direct-call guard
// exists to force callers through.
func (l *IrLowerer) lowerMethodCall(call *Call, sc *scope) error {
	if len(call.Args) == 0 {
		return lowerErr("method call %s requires a receiver", call.Name)
	}
	instance, structPath, err := l.resolveReceiverInstance(call.Args[0], sc)
	if err != nil {
		return err
	}

	path := structPath + "/" + call.Name
	def, ok := l.tables.defMap[path]
	if !ok {
		return lowerErr("unresolved method call: %s.%s", structPath, call.Name)
	}
	params := l.tables.paramMap[def.FullPath]
	if len(params) == 0 || len(params) != len(call.Args) {
		return lowerErr("%s expects %d arguments, got %d", def.FullPath, len(params), len(call.Args))
	}

	callee := newScope(nil)
	callee.declare(params[0].Name, &localInfo{kind: localStruct, structTypeName: structPath, instanceScope: instance})
	for i := 1; i < len(params); i++ {
		param := params[i]
		argKind := l.exprKind(call.Args[i], sc)
		if err := l.lowerExpr(call.Args[i], sc); err != nil {
			return err
		}
		slot := l.allocLocal()
		l.build.emit(OpStoreLocal, uint64(slot))
		paramKind := argKind
		for _, t := range param.Transforms {
			if isTypeTag(t) {
				if k := valueKindFromTypeName(t.Name); k != KindUnknown {
					paramKind = k
				}
			}
		}
		callee.declare(param.Name, &localInfo{slot: slot, kind: localValue, valueKind: paramKind})
	}

	return l.inlineDefBody(def, callee)
}

// resolveReceiverInstance finds or constructs the struct instance a
// dotted call's receiver denotes, returning its field scope and struct
// definition path. A bound name must already be a struct-kind local; a
// call expression must resolve to a struct-family Definition, which is
// then constructed fresh (e.g. Foo() in Foo().ping()).
func (l *IrLowerer) resolveReceiverInstance(receiver *Expr, sc *scope) (*scope, string, error) {
	switch receiver.Kind {
	case ExprName:
		info, ok := sc.lookup(receiver.Name)
		if !ok {
			return nil, "", lowerErr("undeclared receiver: %s", receiver.Name)
		}
		if info.kind != localStruct {
			return nil, "", lowerErr("%s is not a struct instance", receiver.Name)
		}
		return info.instanceScope, info.structTypeName, nil
	case ExprCall:
		path, ok := l.structConstructorPath(receiver)
		if !ok {
			return nil, "", lowerErr("%s does not construct a struct instance", receiver.Name)
		}
		inst, err := l.constructStructInstance(path)
		if err != nil {
			return nil, "", err
		}
		return inst, path, nil
	}
	return nil, "", lowerErr("unsupported method-call receiver")
}

// structConstructorPath reports whether call resolves to a struct-family
// Definition, returning its full path.
func (l *IrLowerer) structConstructorPath(call *Call) (string, bool) {
	path, ok := l.tables.ResolvePath(call.Name, call.NamespacePrefix)
	if !ok {
		return "", false
	}
	def, ok := l.tables.defMap[path]
	if !ok || !isStructFamily(def.Transforms) {
		return "", false
	}
	return path, true
}

// constructStructInstance inlines a struct-family Definition's field
// bindings into a fresh, isolated scope representing one instance
// (§8.6's Foo(){ [i32] value{1i32} }). Each field binding allocates its
// own slot the same way any other local binding does; the instance is
// simply the scope that names those slots.
func (l *IrLowerer) constructStructInstance(path string) (*scope, error) {
	def, ok := l.tables.defMap[path]
	if !ok {
		return nil, lowerErr("unresolved struct: %s", path)
	}
	if l.inlineStack[path] {
		return nil, lowerErr("recursive struct construction is not supported: %s", path)
	}
	inst := newScope(nil)
	l.inlineStack[path] = true
	_, err := l.lowerStatements(def.Body, inst)
	delete(l.inlineStack, path)
	if err != nil {
		return nil, err
	}
	return inst, nil
}
