package core

// lowerLocation implements location(name) (§4.2): yields the byte
// address of a local's slot in the VM's flat memory model. Pointer
// arithmetic on the resulting address is plain integer arithmetic
// (plus/minus), since the address already encodes the slot stride
// (localSlotSize) — no separate scaling step is needed here.
func (l *IrLowerer) lowerLocation(call *Call, sc *scope) error {
	if len(call.Args) != 1 || call.Args[0].Kind != ExprName {
		return lowerErr("location requires a single name argument")
	}
	info, ok := sc.lookup(call.Args[0].Name)
	if !ok {
		return lowerErr("location of undeclared name: %s", call.Args[0].Name)
	}
	l.build.emit(OpAddressOfLocal, uint64(info.slot))
	return nil
}

// lowerDereference implements dereference(expr) used in a value context
// (read-through-pointer); the assign(dereference(expr), value) write
// path is handled directly in lowerAssignCore.
func (l *IrLowerer) lowerDereference(call *Call, sc *scope) error {
	if len(call.Args) != 1 {
		return lowerErr("dereference requires exactly 1 argument")
	}
	if err := l.lowerExpr(call.Args[0], sc); err != nil {
		return err
	}
	l.build.emit(OpLoadIndirect, 0)
	return nil
}
