package typesys

import (
	"regexp"
	"time"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/value"
)

// Validate parses ref as a type expression and validates value against it,
// resolving named references through reg. It returns the (possibly
// defaulted/coerced) value on success.
func Validate(reg *Registry, ref string, v any) (any, error) {
	expr, err := ParseTypeExpr(ref)
	if err != nil {
		return nil, err
	}
	return ValidateExpr(reg, expr, v)
}

// ValidateExpr validates a value against an already-parsed type expression.
// Validation order is fixed: base-type check -> defaults -> constraints ->
// subfield recursion, applied at whichever level (shape/def/container) owns
// that step.
func ValidateExpr(reg *Registry, expr *TypeExpr, v any) (any, error) {
	switch expr.Kind {
	case ExprPrimitive:
		return validatePrimitive(expr.Primitive, v)
	case ExprList:
		seq, ok := v.([]any)
		if !ok {
			return nil, alperr.New(alperr.KindType, "expected list<%s>, got %T", expr.Elem, v)
		}
		out := make([]any, len(seq))
		for i, item := range seq {
			vv, err := ValidateExpr(reg, expr.Elem, item)
			if err != nil {
				return nil, err
			}
			out[i] = vv
		}
		return out, nil
	case ExprMap:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, alperr.New(alperr.KindType, "expected map<%s>, got %T", expr.Elem, v)
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			vv, err := ValidateExpr(reg, expr.Elem, item)
			if err != nil {
				return nil, err
			}
			out[k] = vv
		}
		return out, nil
	case ExprEnum:
		s, ok := v.(string)
		if !ok {
			return nil, alperr.New(alperr.KindType, "expected one of enum<%s>, got %T", joinComma(expr.EnumValues), v)
		}
		for _, member := range expr.EnumValues {
			if member == s {
				return v, nil
			}
		}
		return nil, alperr.New(alperr.KindType, "%q is not a member of enum<%s>", s, joinComma(expr.EnumValues))
	case ExprRef:
		if shape, ok := reg.Shape(expr.RefName); ok {
			return ValidateShape(reg, shape, v)
		}
		if def, ok := reg.Def(expr.RefName); ok {
			return ValidateDef(reg, def, v)
		}
		return nil, alperr.New(alperr.KindUnresolved, "type reference %q is not a registered shape or def", expr.RefName)
	default:
		return nil, alperr.New(alperr.KindSyntax, "unrecognized type expression kind")
	}
}

func validatePrimitive(prim string, v any) (any, error) {
	switch prim {
	case PrimStr:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, alperr.New(alperr.KindType, "expected str, got %T", v)
	case PrimBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, alperr.New(alperr.KindType, "expected bool, got %T", v)
	case PrimFloat:
		f, ok := value.Of(v).Float64()
		if !ok {
			return nil, alperr.New(alperr.KindType, "expected float, got %T", v)
		}
		return f, nil
	case PrimInt:
		f, ok := value.Of(v).Float64()
		if !ok {
			return nil, alperr.New(alperr.KindType, "expected int, got %T", v)
		}
		if f != float64(int64(f)) {
			return nil, alperr.New(alperr.KindType, "expected int, got non-integral float %v", f)
		}
		return f, nil
	case PrimTS:
		s, ok := v.(string)
		if !ok {
			return nil, alperr.New(alperr.KindType, "expected ts (RFC3339 string), got %T", v)
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return nil, alperr.Wrap(alperr.KindType, err, "expected ts (RFC3339 string), got %q", s)
		}
		return s, nil
	default:
		return nil, alperr.New(alperr.KindSyntax, "unknown primitive type %q", prim)
	}
}

// ValidateShape validates v (expected map[string]any, or nil treated as an
// empty map) against shape: applies shape.Defaults for missing keys, checks
// required fields are present, and recursively validates every declared
// field. Unknown extra fields are passed through unchanged (lenient mode).
func ValidateShape(reg *Registry, shape *Shape, v any) (any, error) {
	var m map[string]any
	switch t := v.(type) {
	case map[string]any:
		m = t
	case nil:
		m = map[string]any{}
	default:
		return nil, alperr.New(alperr.KindType, "shape %q expects a mapping, got %T", shape.Name, v)
	}

	out := make(map[string]any, len(m))
	for k, vv := range m {
		out[k] = vv
	}
	for k, def := range shape.Defaults {
		if _, present := out[k]; !present {
			out[k] = value.DeepCopy(def)
		}
	}

	for _, f := range shape.Fields {
		fv, present := out[f.Name]
		if !present {
			if f.Optional {
				continue
			}
			return nil, alperr.New(alperr.KindType, "shape %q missing required field %q", shape.Name, f.Name)
		}
		vv, err := ValidateExpr(reg, f.Expr, fv)
		if err != nil {
			return nil, wrapField(err, shape.Name, f.Name)
		}
		out[f.Name] = vv
	}
	return out, nil
}

func wrapField(err error, shapeName, fieldName string) error {
	var e *alperr.Error
	if as, ok := err.(*alperr.Error); ok {
		e = as
	} else {
		e = alperr.Wrap(alperr.KindType, err, "field %q", fieldName)
	}
	return alperr.Wrap(e.Kind, e, "shape %q field %q: %s", shapeName, fieldName, e.Message)
}

// ValidateDef validates v against a named TypeDef.
func ValidateDef(reg *Registry, def *TypeDef, v any) (any, error) {
	switch def.Kind {
	case DefAlias:
		return ValidateExpr(reg, def.Alias, v)
	case DefUnion:
		var lastErr error
		for _, branch := range def.Union {
			vv, err := ValidateExpr(reg, branch, v)
			if err == nil {
				return vv, nil
			}
			lastErr = err
		}
		return nil, alperr.Wrap(alperr.KindType, lastErr, "value matches no branch of union %q", def.Name)
	case DefEnum:
		for _, member := range def.EnumValues {
			if value.Equal(member, v) {
				return v, nil
			}
		}
		return nil, alperr.New(alperr.KindType, "%v is not a member of enum %q", v, def.Name)
	case DefConstrained:
		vv, err := validatePrimitive(def.Base, v)
		if err != nil {
			return nil, err
		}
		if err := checkConstraint(def.Name, def.Base, def.Constraint, vv); err != nil {
			return nil, err
		}
		return vv, nil
	default:
		return nil, alperr.New(alperr.KindSyntax, "unrecognized typedef kind for %q", def.Name)
	}
}

func checkConstraint(name, base string, c Constraint, v any) error {
	switch base {
	case PrimStr:
		s := v.(string)
		if c.MinLength != nil && len(s) < *c.MinLength {
			return alperr.New(alperr.KindType, "%q: length %d below minLength %d", name, len(s), *c.MinLength)
		}
		if c.MaxLength != nil && len(s) > *c.MaxLength {
			return alperr.New(alperr.KindType, "%q: length %d exceeds maxLength %d", name, len(s), *c.MaxLength)
		}
		if c.Pattern != "" {
			re, err := regexp.Compile(c.Pattern)
			if err != nil {
				return alperr.Wrap(alperr.KindSyntax, err, "%q: invalid pattern %q", name, c.Pattern)
			}
			if !re.MatchString(s) {
				return alperr.New(alperr.KindType, "%q: %q does not match pattern %q", name, s, c.Pattern)
			}
		}
	case PrimInt, PrimFloat:
		f, _ := value.Of(v).Float64()
		if c.Min != nil && f < *c.Min {
			return alperr.New(alperr.KindType, "%q: %v below min %v", name, f, *c.Min)
		}
		if c.Max != nil && f > *c.Max {
			return alperr.New(alperr.KindType, "%q: %v exceeds max %v", name, f, *c.Max)
		}
	}
	return nil
}
