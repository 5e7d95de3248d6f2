package core

// lowerStatements lowers an ordered statement list, returning whether
// control can fall through past the last statement — false once a
// statement unconditionally returns (a return(...) call, or an if whose
// every branch returns).
func (l *IrLowerer) lowerStatements(stmts []*Expr, sc *scope) (fellThrough bool, err error) {
	for _, stmt := range stmts {
		terminates, err := l.lowerStatement(stmt, sc)
		if err != nil {
			return false, err
		}
		if terminates {
			return false, nil
		}
	}
	return true, nil
}

func (l *IrLowerer) lowerStatement(stmt *Expr, sc *scope) (terminates bool, err error) {
	if stmt.IsBinding {
		return false, l.lowerBinding(stmt, sc)
	}
	if stmt.Kind != ExprCall {
		if err := l.lowerExpr(stmt, sc); err != nil {
			return false, err
		}
		l.build.emit(OpPop, 0)
		return false, nil
	}
	switch stmt.Name {
	case "return":
		return true, l.lowerReturn(stmt, sc)
	case "assign":
		return false, l.lowerAssign(stmt, sc)
	case "increment", "decrement":
		return false, l.lowerIncDec(stmt, sc)
	case "if":
		return l.lowerIfStatement(stmt, sc)
	case "loop", "while", "for", "repeat":
		return false, l.lowerLoop(stmt, sc)
	case "block":
		inner := newScope(sc)
		fell, err := l.lowerStatements(stmt.BodyArgs, inner)
		return !fell, err
	default:
		kind := l.exprKind(stmt, sc)
		if err := l.lowerExpr(stmt, sc); err != nil {
			return false, err
		}
		if kind != KindVoid {
			l.build.emit(OpPop, 0)
		}
		return false, nil
	}
}

// lowerBinding declares a new local and, if initialized, stores its
// value (§4.2's local allocation: every binding gets a fresh slot, never
// reused even when shadowed).
func (l *IrLowerer) lowerBinding(stmt *Expr, sc *scope) error {
	if _, _, _, ok := collectionTransform(stmt.Transforms); ok {
		return l.lowerCollectionBinding(stmt, sc)
	}
	if len(stmt.Args) == 1 && stmt.Args[0].Kind == ExprCall {
		if structPath, ok := l.structConstructorPath(stmt.Args[0]); ok {
			inst, err := l.constructStructInstance(structPath)
			if err != nil {
				return err
			}
			sc.declare(stmt.Name, &localInfo{
				kind:           localStruct,
				structTypeName: structPath,
				instanceScope:  inst,
				isMutable:      HasTransform(stmt.Transforms, "mut"),
			})
			return nil
		}
	}
	kind := l.bindingValueKind(stmt, sc)
	slot := l.allocLocal()
	info := &localInfo{slot: slot, kind: localValue, valueKind: kind, isMutable: HasTransform(stmt.Transforms, "mut")}

	switch {
	case len(stmt.Args) > 0:
		if err := l.lowerExpr(stmt.Args[0], sc); err != nil {
			return err
		}
		l.build.emit(OpStoreLocal, uint64(slot))
	case len(stmt.BodyArgs) > 0:
		inner := newScope(sc)
		if err := l.lowerBlockValue(stmt, inner); err != nil {
			return err
		}
		l.build.emit(OpStoreLocal, uint64(slot))
	}
	sc.declare(stmt.Name, info)
	return nil
}

func (l *IrLowerer) bindingValueKind(stmt *Expr, sc *scope) ValueKind {
	for _, t := range stmt.Transforms {
		if isTypeTag(t) {
			if k := valueKindFromTypeName(t.Name); k != KindUnknown {
				return k
			}
		}
	}
	if len(stmt.Args) > 0 {
		return l.exprKind(stmt.Args[0], sc)
	}
	if len(stmt.BodyArgs) > 0 {
		return l.blockKind(stmt, sc)
	}
	return KindUnknown
}

// lowerBlockValue lowers a block envelope's body so the value of its
// final non-binding statement is left on the stack (§4.1's "block
// envelopes as values").
func (l *IrLowerer) lowerBlockValue(block *Expr, sc *scope) error {
	body := block.BodyArgs
	for i, stmt := range body {
		if i == len(body)-1 && !stmt.IsBinding {
			return l.lowerExpr(stmt, sc)
		}
		if _, err := l.lowerStatement(stmt, sc); err != nil {
			return err
		}
	}
	return nil
}

// lowerReturn emits a real VM return only when lowering the outermost
// function body. Inside an inlined call (returnStack non-empty) a
// return(...) must not halt the whole activation, so it instead stores
// into the enclosing inlineFrame's result slot and jumps to the end of
// the inlined region (patched once inlineDefBody finishes the body).
func (l *IrLowerer) lowerReturn(stmt *Expr, sc *scope) error {
	if n := len(l.returnStack); n > 0 {
		frame := l.returnStack[n-1]
		if len(stmt.Args) > 0 {
			if err := l.lowerExpr(stmt.Args[0], sc); err != nil {
				return err
			}
			if frame.resultSlot >= 0 {
				l.build.emit(OpStoreLocal, uint64(frame.resultSlot))
			} else {
				l.build.emit(OpPop, 0)
			}
		}
		frame.pendingJumps = append(frame.pendingJumps, l.build.emit(OpJump, 0))
		return nil
	}
	if len(stmt.Args) == 0 {
		l.build.emit(OpReturnVoid, 0)
		return nil
	}
	if err := l.lowerExpr(stmt.Args[0], sc); err != nil {
		return err
	}
	l.emitReturn(l.entryReturnKind)
	return nil
}

// lowerAssign implements the assign(target, value) builtin as a
// statement: its result value, if any, is discarded.
func (l *IrLowerer) lowerAssign(stmt *Expr, sc *scope) error {
	return l.lowerAssignCore(stmt, sc, false)
}

// lowerAssignExpr implements assign(...) used in a value context (e.g.
// and(cond, assign(witness, true)), §8.5's short-circuit scenario):
// assignment is itself an expression whose value is the value assigned,
// the same convention C-family assignment expressions use.
func (l *IrLowerer) lowerAssignExpr(stmt *Expr, sc *scope) error {
	return l.lowerAssignCore(stmt, sc, true)
}

// lowerAssignCore implements assign(target, value): target is a plain
// name (a mutable local's slot), dereference(expr) (a store through a
// pointer's address), or at(receiver, indexOrKey) (a map/array/vector
// element store). The value is computed once into a temp local so every
// branch can both feed the store opcode and, when pushValue is set,
// leave a copy on the stack as the expression's result.
func (l *IrLowerer) lowerAssignCore(stmt *Expr, sc *scope, pushValue bool) error {
	if len(stmt.Args) != 2 {
		return lowerErr("assign requires exactly 2 arguments")
	}
	target, value := stmt.Args[0], stmt.Args[1]
	if err := l.lowerExpr(value, sc); err != nil {
		return err
	}
	valueSlot := l.allocTempLocal()
	l.build.emit(OpStoreLocal, uint64(valueSlot))

	if target.Kind == ExprCall && target.Name == "at" && len(target.Args) == 2 && target.Args[0].Kind == ExprName {
		if info, ok := sc.lookup(target.Args[0].Name); ok && info.kind == localMap {
			l.build.emit(OpLoadLocal, uint64(info.slot))
			if err := l.lowerExpr(target.Args[1], sc); err != nil {
				return err
			}
			l.build.emit(OpLoadLocal, uint64(valueSlot))
			l.build.emit(OpMapSet, 0)
			if pushValue {
				l.build.emit(OpLoadLocal, uint64(valueSlot))
			}
			return nil
		}
		if info, ok := sc.lookup(target.Args[0].Name); ok && (info.kind == localArray || info.kind == localVector) {
			l.build.emit(OpLoadLocal, uint64(info.slot))
			if err := l.lowerExpr(target.Args[1], sc); err != nil {
				return err
			}
			l.build.emit(OpLoadLocal, uint64(valueSlot))
			if info.kind == localArray {
				l.build.emit(OpArraySet, 0)
			} else {
				l.build.emit(OpVectorSet, 0)
			}
			if pushValue {
				l.build.emit(OpLoadLocal, uint64(valueSlot))
			}
			return nil
		}
	}
	if target.Kind == ExprCall && target.Name == "dereference" && len(target.Args) == 1 {
		if err := l.lowerExpr(target.Args[0], sc); err != nil {
			return err
		}
		l.build.emit(OpLoadLocal, uint64(valueSlot))
		l.build.emit(OpStoreIndirect, 0)
		if pushValue {
			l.build.emit(OpLoadLocal, uint64(valueSlot))
		}
		return nil
	}
	if target.Kind != ExprName {
		return lowerErr("assign target must be a name, dereference(...) or at(...)")
	}
	info, ok := sc.lookup(target.Name)
	if !ok {
		return lowerErr("assign to undeclared name: %s", target.Name)
	}
	l.build.emit(OpLoadLocal, uint64(valueSlot))
	l.build.emit(OpStoreLocal, uint64(info.slot))
	if pushValue {
		l.build.emit(OpLoadLocal, uint64(valueSlot))
	}
	return nil
}

func (l *IrLowerer) lowerIncDec(stmt *Expr, sc *scope) error {
	if len(stmt.Args) != 1 || stmt.Args[0].Kind != ExprName {
		return lowerErr("%s requires a single name argument", stmt.Name)
	}
	info, ok := sc.lookup(stmt.Args[0].Name)
	if !ok {
		return lowerErr("%s of undeclared name: %s", stmt.Name, stmt.Args[0].Name)
	}
	addOp, subOp := arithOpsFor(info.valueKind)
	l.build.emit(OpLoadLocal, uint64(info.slot))
	l.build.emit(pushOpFor(info.valueKind), literalOneFor(info.valueKind))
	if stmt.Name == "increment" {
		l.build.emit(addOp, 0)
	} else {
		l.build.emit(subOp, 0)
	}
	l.build.emit(OpStoreLocal, uint64(info.slot))
	return nil
}

// lowerIfStatement lowers if used as a statement (its value, if any, is
// discarded); it reports whether every reachable branch returns.
func (l *IrLowerer) lowerIfStatement(stmt *Expr, sc *scope) (terminates bool, err error) {
	if len(stmt.Args) != 1 {
		return false, lowerErr("if requires a single condition argument")
	}
	if len(stmt.BodyArgs) < 1 {
		return false, lowerErr("if requires a then block envelope")
	}
	if err := l.lowerExpr(stmt.Args[0], sc); err != nil {
		return false, err
	}
	elseJump := l.build.emit(OpJumpIfZero, 0)
	thenScope := newScope(sc)
	thenFell, err := l.lowerStatements(stmt.BodyArgs[0].BodyArgs, thenScope)
	if err != nil {
		return false, err
	}
	if len(stmt.BodyArgs) < 2 {
		l.build.patch(elseJump, l.build.here())
		return false, nil
	}
	endJump := -1
	if thenFell {
		endJump = l.build.emit(OpJump, 0)
	}
	l.build.patch(elseJump, l.build.here())
	elseScope := newScope(sc)
	elseFell, err := l.lowerStatements(stmt.BodyArgs[1].BodyArgs, elseScope)
	if err != nil {
		return false, err
	}
	if endJump >= 0 {
		l.build.patch(endJump, l.build.here())
	}
	return !thenFell && !elseFell, nil
}

// lowerLoop dispatches the loop family (§4.1's loopFamily, validated as
// block envelopes with no direct call args). The iteration count or
// condition rides along as a transform rather than a direct argument,
// since a direct argument would fail the block-envelope shape check;
// see DESIGN.md's Open Question disposition for this encoding.
func (l *IrLowerer) lowerLoop(stmt *Expr, sc *scope) error {
	switch stmt.Name {
	case "loop":
		return l.lowerCountedLoop(stmt, sc)
	case "while", "for":
		return l.lowerConditionLoop(stmt, sc)
	case "repeat":
		inner := newScope(sc)
		_, err := l.lowerStatements(stmt.BodyArgs, inner)
		return err
	}
	return lowerErr("unsupported loop form: %s", stmt.Name)
}

// lowerCountedLoop implements `loop[count(n)] { ... }`, guarding the
// documented "loop count must be non-negative" runtime diagnostic.
func (l *IrLowerer) lowerCountedLoop(stmt *Expr, sc *scope) error {
	countTransform := FindTransform(stmt.Transforms, "count")
	if countTransform == nil || len(countTransform.Args) != 1 {
		return lowerErr("loop requires a count(...) transform")
	}
	countKind := l.exprKind(countTransform.Args[0], sc)
	if err := l.lowerExpr(countTransform.Args[0], sc); err != nil {
		return err
	}
	if countKind == KindInt32 {
		l.build.emit(OpConvertI32ToI64, 0)
	}
	countSlot := l.allocTempLocal()
	l.build.emit(OpStoreLocal, uint64(countSlot))

	l.build.emit(OpLoadLocal, uint64(countSlot))
	l.build.emit(OpPushI64, 0)
	l.build.emit(OpCmpLtI64, 0)
	okJump := l.build.emit(OpJumpIfZero, 0)
	msgIdx := l.internString("loop count must be non-negative")
	l.build.emit(OpGuardFail, uint64(msgIdx))
	l.build.patch(okJump, l.build.here())

	idxSlot := l.allocTempLocal()
	l.build.emit(OpPushI64, 0)
	l.build.emit(OpStoreLocal, uint64(idxSlot))

	loopStart := l.build.here()
	l.build.emit(OpLoadLocal, uint64(idxSlot))
	l.build.emit(OpLoadLocal, uint64(countSlot))
	l.build.emit(OpCmpLtI64, 0)
	exitJump := l.build.emit(OpJumpIfZero, 0)

	inner := newScope(sc)
	if _, err := l.lowerStatements(stmt.BodyArgs, inner); err != nil {
		return err
	}

	l.build.emit(OpLoadLocal, uint64(idxSlot))
	l.build.emit(OpPushI64, 1)
	l.build.emit(OpAddI64, 0)
	l.build.emit(OpStoreLocal, uint64(idxSlot))
	l.build.emit(OpJump, uint64(loopStart))
	l.build.patch(exitJump, l.build.here())
	return nil
}

// lowerConditionLoop implements `while[condition(c)] { ... }` (also used
// for `for`, treated as a plain pre-tested loop since this core has no
// separate init/step clauses to thread through).
func (l *IrLowerer) lowerConditionLoop(stmt *Expr, sc *scope) error {
	condTransform := FindTransform(stmt.Transforms, "condition")
	if condTransform == nil || len(condTransform.Args) != 1 {
		return lowerErr("%s requires a condition(...) transform", stmt.Name)
	}
	loopStart := l.build.here()
	if err := l.lowerExpr(condTransform.Args[0], sc); err != nil {
		return err
	}
	exitJump := l.build.emit(OpJumpIfZero, 0)
	inner := newScope(sc)
	if _, err := l.lowerStatements(stmt.BodyArgs, inner); err != nil {
		return err
	}
	l.build.emit(OpJump, uint64(loopStart))
	l.build.patch(exitJump, l.build.here())
	return nil
}
