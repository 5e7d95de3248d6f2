package core

// collectionTransform reports the array<T>/vector<T>/map<K,V> template
// transform attached to a binding, if any (§4.2 supplemented collection
// support).
func collectionTransform(transforms []*Transform) (kindName, arg1, arg2 string, ok bool) {
	for _, t := range transforms {
		switch t.Name {
		case "array", "vector":
			if len(t.TemplateArgs) == 1 {
				return t.Name, t.TemplateArgs[0], "", true
			}
		case "map":
			if len(t.TemplateArgs) == 2 {
				return t.Name, t.TemplateArgs[0], t.TemplateArgs[1], true
			}
		}
	}
	return "", "", "", false
}

// lowerCollectionBinding allocates a heap-backed array/vector/map, binds
// its handle to a new local, and materializes the literal's initializer
// content into that storage (§4.2). The literal's initializer rides
// along on the array/vector/map transform itself rather than as a direct
// binding argument (the same encoding lowerCountedLoop's count(n)
// transform uses, see DESIGN.md's Open Question disposition): a
// vector<T>/array<T> transform's Args holds the initial elements in
// order, and a map<K,V> transform's Args/Body hold the parallel key and
// value expressions (Args[i] pairs with Body[i]). An array's element
// count is therefore the number of initializer elements, not a separate
// size argument.
func (l *IrLowerer) lowerCollectionBinding(stmt *Expr, sc *scope) error {
	kindName, arg1, arg2, _ := collectionTransform(stmt.Transforms)
	literal := FindTransform(stmt.Transforms, kindName)
	slot := l.allocLocal()
	mutable := HasTransform(stmt.Transforms, "mut")

	switch kindName {
	case "array":
		elemKind := valueKindFromTypeName(arg1)
		l.build.emit(OpPushI64, uint64(len(literal.Args)))
		l.build.emit(OpArrayNew, uint64(elemKind))
		l.build.emit(OpStoreLocal, uint64(slot))
		sc.declare(stmt.Name, &localInfo{slot: slot, kind: localArray, valueKind: elemKind, isMutable: mutable})
		for i, elem := range literal.Args {
			l.build.emit(OpLoadLocal, uint64(slot))
			l.build.emit(OpPushI64, uint64(i))
			if err := l.lowerExpr(elem, sc); err != nil {
				return err
			}
			l.build.emit(OpArraySet, 0)
		}
	case "vector":
		elemKind := valueKindFromTypeName(arg1)
		l.build.emit(OpVectorNew, uint64(elemKind))
		l.build.emit(OpStoreLocal, uint64(slot))
		sc.declare(stmt.Name, &localInfo{slot: slot, kind: localVector, valueKind: elemKind, isMutable: mutable})
		for _, elem := range literal.Args {
			l.build.emit(OpLoadLocal, uint64(slot))
			if err := l.lowerExpr(elem, sc); err != nil {
				return err
			}
			l.build.emit(OpVectorPush, 0)
		}
	case "map":
		keyKind := valueKindFromTypeName(arg1)
		valKind := valueKindFromTypeName(arg2)
		l.build.emit(OpMapNew, encodeMapNewImm(keyKind, valKind))
		l.build.emit(OpStoreLocal, uint64(slot))
		sc.declare(stmt.Name, &localInfo{slot: slot, kind: localMap, mapKeyKind: keyKind, mapValueKind: valKind, isMutable: mutable})
		for i, key := range literal.Args {
			if i >= len(literal.Body) {
				break
			}
			l.build.emit(OpLoadLocal, uint64(slot))
			if err := l.lowerExpr(key, sc); err != nil {
				return err
			}
			if err := l.lowerExpr(literal.Body[i], sc); err != nil {
				return err
			}
			l.build.emit(OpMapSet, 0)
		}
	}
	return nil
}

func isCollectionBuiltin(name string) bool {
	switch name {
	case "count", "capacity", "at", "at_unsafe", "push", "pop", "reserve", "clear", "remove_at", "remove_swap":
		return true
	}
	return false
}

// lowerCollectionBuiltin implements the built-in method surface arrays,
// vectors and maps expose via dotted or plain calls (§4.1's
// arrayVectorMethods/stringMethods, §4.2's bounds/capacity guards).
func (l *IrLowerer) lowerCollectionBuiltin(call *Call, sc *scope) error {
	if len(call.Args) == 0 || call.Args[0].Kind != ExprName {
		return lowerErr("%s requires a collection receiver", call.Name)
	}
	info, ok := sc.lookup(call.Args[0].Name)
	if !ok {
		return lowerErr("%s: undeclared receiver %s", call.Name, call.Args[0].Name)
	}

	switch call.Name {
	case "count", "capacity":
		l.build.emit(OpLoadLocal, uint64(info.slot))
		if info.kind == localArray {
			l.build.emit(OpArrayCount, 0)
		} else {
			l.build.emit(OpVectorCount, 0)
		}
		return nil
	case "at", "at_unsafe":
		if len(call.Args) != 2 {
			return lowerErr("%s requires a receiver and an index/key", call.Name)
		}
		l.build.emit(OpLoadLocal, uint64(info.slot))
		if err := l.lowerExpr(call.Args[1], sc); err != nil {
			return err
		}
		switch info.kind {
		case localArray:
			l.build.emit(OpArrayAt, 0)
		case localMap:
			l.build.emit(OpMapGet, 0)
		default:
			l.build.emit(OpVectorAt, 0)
		}
		return nil
	}

	if info.kind != localVector {
		return lowerErr("%s is defined only for vectors", call.Name)
	}
	switch call.Name {
	case "push":
		if len(call.Args) != 2 {
			return lowerErr("push requires a receiver and a value")
		}
		l.build.emit(OpLoadLocal, uint64(info.slot))
		if err := l.lowerExpr(call.Args[1], sc); err != nil {
			return err
		}
		l.build.emit(OpVectorPush, 0)
	case "pop":
		l.build.emit(OpLoadLocal, uint64(info.slot))
		l.build.emit(OpVectorPop, 0)
	case "reserve":
		if len(call.Args) != 2 {
			return lowerErr("reserve requires a receiver and a capacity")
		}
		l.build.emit(OpLoadLocal, uint64(info.slot))
		if err := l.lowerExpr(call.Args[1], sc); err != nil {
			return err
		}
		l.build.emit(OpVectorReserve, 0)
	case "clear":
		l.build.emit(OpLoadLocal, uint64(info.slot))
		l.build.emit(OpVectorClear, 0)
	case "remove_at":
		if len(call.Args) != 2 {
			return lowerErr("remove_at requires a receiver and an index")
		}
		l.build.emit(OpLoadLocal, uint64(info.slot))
		if err := l.lowerExpr(call.Args[1], sc); err != nil {
			return err
		}
		l.build.emit(OpVectorRemoveAt, 0)
	case "remove_swap":
		if len(call.Args) != 2 {
			return lowerErr("remove_swap requires a receiver and an index")
		}
		l.build.emit(OpLoadLocal, uint64(info.slot))
		if err := l.lowerExpr(call.Args[1], sc); err != nil {
			return err
		}
		l.build.emit(OpVectorRemoveSwap, 0)
	default:
		return lowerErr("unsupported collection builtin: %s", call.Name)
	}
	return nil
}
