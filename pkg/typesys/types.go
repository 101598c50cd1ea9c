// Package typesys implements the Type Registry and Validator: shape and
// type-def declarations, a small type-expression grammar, and a recursive
// validator that coerces a decoded JSON value against a declared type.
package typesys

import "fmt"

// ExprKind discriminates a parsed type expression.
type ExprKind int

const (
	ExprPrimitive ExprKind = iota
	ExprList
	ExprMap
	ExprEnum
	ExprRef
)

// Primitive scalar type names recognized by the grammar.
const (
	PrimStr   = "str"
	PrimInt   = "int"
	PrimFloat = "float"
	PrimBool  = "bool"
	PrimTS    = "ts"
)

// TypeExpr is a parsed field/alias type expression: a primitive, a
// list<T>/map<T> container, an inline enum<a,b,c>, or a named reference to
// another registered Shape or TypeDef.
type TypeExpr struct {
	Kind       ExprKind
	Primitive  string
	Elem       *TypeExpr // list<T>/map<T> element type
	EnumValues []string  // inline enum<...> literal members
	RefName    string    // named Shape/TypeDef reference
}

func (t *TypeExpr) String() string {
	switch t.Kind {
	case ExprPrimitive:
		return t.Primitive
	case ExprList:
		return fmt.Sprintf("list<%s>", t.Elem)
	case ExprMap:
		return fmt.Sprintf("map<%s>", t.Elem)
	case ExprEnum:
		return fmt.Sprintf("enum<%s>", joinComma(t.EnumValues))
	case ExprRef:
		return t.RefName
	default:
		return "?"
	}
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// FieldSpec is one field of a Shape: its name, type expression, and whether
// it may be omitted (the `?` name suffix in source form).
type FieldSpec struct {
	Name     string
	Expr     *TypeExpr
	Optional bool
}

// Shape is a named record type: an ordered field list plus defaults applied
// before validation.
type Shape struct {
	Name     string
	Fields   []FieldSpec
	Defaults map[string]any
}

// DefKind discriminates a TypeDef's variant.
type DefKind int

const (
	DefAlias DefKind = iota
	DefUnion
	DefEnum
	DefConstrained
)

// Constraint holds the optional refinements a constrained-scalar TypeDef may
// carry on top of its base primitive.
type Constraint struct {
	MinLength *int
	MaxLength *int
	Pattern   string // regex source, compiled lazily by the validator
	Min       *float64
	Max       *float64
}

// TypeDef is a named type expression: a single-expression alias, a union of
// alternatives, a literal enum, or a constrained scalar.
type TypeDef struct {
	Name       string
	Kind       DefKind
	Alias      *TypeExpr
	Union      []*TypeExpr
	EnumValues []any // literal enum members, string or number
	Base       string
	Constraint Constraint
}
