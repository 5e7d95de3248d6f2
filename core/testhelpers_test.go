package core

// i32Lit builds a signed 32-bit integer literal expression, the shape a
// parser would produce for a literal like `1i32`.
func i32Lit(v int64) *Expr {
	return &Expr{Kind: ExprIntLiteral, IntValue: v, IntWidth: 32, IntSigned: true}
}

func i64Lit(v int64) *Expr {
	return &Expr{Kind: ExprIntLiteral, IntValue: v, IntWidth: 64, IntSigned: true}
}

func f64Lit(v float64) *Expr {
	return &Expr{Kind: ExprFloatLiteral, FloatValue: v, FloatWidth: 64}
}

func boolLit(b bool) *Expr {
	return &Expr{Kind: ExprBoolLiteral, BoolValue: b}
}

func nameExpr(n string) *Expr {
	return &Expr{Kind: ExprName, Name: n}
}

// call builds a plain (non-binding, non-method) call expression.
func call(name string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Name: name, Args: args}
}

func blockEnvelope(name string, body ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Name: name, HasBodyArgs: true, BodyArgs: body}
}

func blockEnvelopeT(name string, transforms []*Transform, body ...*Expr) *Expr {
	e := blockEnvelope(name, body...)
	e.Transforms = transforms
	return e
}

// binding builds a [typeTag] name{...} local declaration statement.
func binding(name string, typeTag string, init *Expr) *Expr {
	e := &Expr{Kind: ExprCall, Name: name, IsBinding: true}
	if init != nil {
		e.Args = []*Expr{init}
	}
	if typeTag != "" {
		e.Transforms = []*Transform{{Name: typeTag}}
	}
	return e
}

func returnStmt(args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Name: "return", Args: args}
}

// vectorBinding builds a `[vector<elemType>] name{}` local declaration,
// the shape collectionTransform expects.
func vectorBinding(name, elemType string) *Expr {
	return &Expr{
		Kind:       ExprCall,
		Name:       name,
		IsBinding:  true,
		Transforms: []*Transform{{Name: "vector", TemplateArgs: []string{elemType}}},
	}
}

// vectorLiteralBinding builds a `vector<elemType>{e1, e2, ...}` local
// declaration whose initial elements ride along on the vector transform.
func vectorLiteralBinding(name, elemType string, elems ...*Expr) *Expr {
	e := vectorBinding(name, elemType)
	e.Transforms[0].Args = elems
	return e
}

func returnKindTransform(typeName string) *Transform {
	return &Transform{Name: "return", TemplateArgs: []string{typeName}}
}

// methodCall builds a dotted-receiver call (receiver.name(args...)), the
// shape a parser produces for method-call syntax (§4.1/§8.6).
func methodCall(name string, receiver *Expr, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Name: name, IsMethodCall: true, Args: append([]*Expr{receiver}, args...)}
}

// structDef builds a `[struct] path(){ body }` Definition, the shape a
// struct's field-binding body takes (§8.6's Foo(){ [i32] value{1i32} }).
func structDef(path string, body ...*Expr) *Definition {
	return &Definition{FullPath: path, Transforms: []*Transform{{Name: "struct"}}, Body: body}
}

// methodDef builds a `path([typeTag] self){ body }` Definition nested
// under a struct namespace, the shape /Foo/ping([Foo] self){...} takes.
func methodDef(path, selfTypeTag string, returnType string, body ...*Expr) *Definition {
	return &Definition{
		FullPath:   path,
		Transforms: []*Transform{returnKindTransform(returnType)},
		Parameters: []*Expr{binding("self", selfTypeTag, nil)},
		Body:       body,
	}
}

// mapBinding builds a `name{map<keyType,valType>{k1=v1, ...}}` local
// declaration, keys and values riding along on the map transform itself
// (collectionTransform's expected shape).
func mapBinding(name, keyType, valType string, keys, values []*Expr) *Expr {
	return &Expr{
		Kind:      ExprCall,
		Name:      name,
		IsBinding: true,
		Transforms: []*Transform{{
			Name:         "map",
			TemplateArgs: []string{keyType, valType},
			Args:         keys,
			Body:         values,
		}},
	}
}

// arrayBinding builds an `array<elemType>{e1, e2, ...}` local declaration
// whose initial elements ride along on the array transform itself.
func arrayBinding(name, elemType string, elems ...*Expr) *Expr {
	return &Expr{
		Kind:      ExprCall,
		Name:      name,
		IsBinding: true,
		Transforms: []*Transform{{
			Name:         "array",
			TemplateArgs: []string{elemType},
			Args:         elems,
		}},
	}
}
