package typesys

import (
	"strings"

	"github.com/alp-run/alp/pkg/alperr"
)

// ParseTypeExpr parses a field/alias type expression: a bare primitive
// (`str`, `int`, `float`, `bool`, `ts`), a `list<T>`/`map<T>` container, an
// inline `enum<a,b,c>`, or a bare identifier taken as a reference to another
// registered Shape or TypeDef.
func ParseTypeExpr(s string) (*TypeExpr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, alperr.New(alperr.KindSyntax, "empty type expression")
	}
	switch {
	case strings.HasPrefix(s, "list<") && strings.HasSuffix(s, ">"):
		inner := s[len("list<") : len(s)-1]
		elem, err := ParseTypeExpr(inner)
		if err != nil {
			return nil, err
		}
		return &TypeExpr{Kind: ExprList, Elem: elem}, nil
	case strings.HasPrefix(s, "map<") && strings.HasSuffix(s, ">"):
		inner := s[len("map<") : len(s)-1]
		elem, err := ParseTypeExpr(inner)
		if err != nil {
			return nil, err
		}
		return &TypeExpr{Kind: ExprMap, Elem: elem}, nil
	case strings.HasPrefix(s, "enum<") && strings.HasSuffix(s, ">"):
		inner := s[len("enum<") : len(s)-1]
		var vals []string
		for _, part := range strings.Split(inner, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				return nil, alperr.New(alperr.KindSyntax, "empty enum member in %q", s)
			}
			vals = append(vals, part)
		}
		return &TypeExpr{Kind: ExprEnum, EnumValues: vals}, nil
	case isPrimitive(s):
		return &TypeExpr{Kind: ExprPrimitive, Primitive: s}, nil
	default:
		return &TypeExpr{Kind: ExprRef, RefName: s}, nil
	}
}

func isPrimitive(s string) bool {
	switch s {
	case PrimStr, PrimInt, PrimFloat, PrimBool, PrimTS:
		return true
	default:
		return false
	}
}

// ParseUnion splits a `T | U | V` union expression into its branch
// TypeExprs.
func ParseUnion(s string) ([]*TypeExpr, error) {
	parts := strings.Split(s, "|")
	out := make([]*TypeExpr, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, alperr.New(alperr.KindSyntax, "empty union branch in %q", s)
		}
		expr, err := ParseTypeExpr(p)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

// ParseFieldName splits a Shape field name carrying the optional `?` suffix
// into its bare name and optionality flag.
func ParseFieldName(name string) (bare string, optional bool) {
	if strings.HasSuffix(name, "?") {
		return strings.TrimSuffix(name, "?"), true
	}
	return name, false
}
