package typesys

import (
	"encoding/json"
	"strconv"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/alp-run/alp/pkg/alperr"
)

// ExportSchema renders the named Shape or TypeDef as a JSON Schema document,
// for documentation, external tooling, and as the structured-output contract
// handed to LLM adapters (pkg/llm). Unlike invopop/jsonschema's usual
// reflector-driven use against static Go structs, registry types are
// assembled dynamically at load time, so the *jsonschema.Schema tree is
// built by hand from the Shape/TypeDef declarations rather than by
// reflection.
func ExportSchema(reg *Registry, name string) (*jsonschema.Schema, error) {
	if shape, ok := reg.Shape(name); ok {
		return exportShape(reg, shape)
	}
	if def, ok := reg.Def(name); ok {
		return exportDef(reg, def)
	}
	return nil, alperr.New(alperr.KindUnresolved, "cannot export schema: %q is not a registered shape or def", name)
}

func exportShape(reg *Registry, shape *Shape) (*jsonschema.Schema, error) {
	props := orderedmap.New[string, *jsonschema.Schema]()
	var required []string
	for _, f := range shape.Fields {
		fs, err := exportExpr(reg, f.Expr)
		if err != nil {
			return nil, err
		}
		props.Set(f.Name, fs)
		if !f.Optional {
			required = append(required, f.Name)
		}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Title:      shape.Name,
		Properties: props,
		Required:   required,
	}, nil
}

func exportDef(reg *Registry, def *TypeDef) (*jsonschema.Schema, error) {
	switch def.Kind {
	case DefAlias:
		return exportExpr(reg, def.Alias)
	case DefUnion:
		var branches []*jsonschema.Schema
		for _, b := range def.Union {
			bs, err := exportExpr(reg, b)
			if err != nil {
				return nil, err
			}
			branches = append(branches, bs)
		}
		return &jsonschema.Schema{Title: def.Name, OneOf: branches}, nil
	case DefEnum:
		return &jsonschema.Schema{Title: def.Name, Enum: def.EnumValues}, nil
	case DefConstrained:
		return exportConstrained(def)
	default:
		return nil, alperr.New(alperr.KindSyntax, "unrecognized typedef kind for %q", def.Name)
	}
}

func exportConstrained(def *TypeDef) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{Title: def.Name, Type: jsonSchemaType(def.Base)}
	c := def.Constraint
	if c.MinLength != nil {
		v := uint64(*c.MinLength)
		s.MinLength = &v
	}
	if c.MaxLength != nil {
		v := uint64(*c.MaxLength)
		s.MaxLength = &v
	}
	if c.Pattern != "" {
		s.Pattern = c.Pattern
	}
	if c.Min != nil {
		s.Minimum = json.Number(strconv.FormatFloat(*c.Min, 'f', -1, 64))
	}
	if c.Max != nil {
		s.Maximum = json.Number(strconv.FormatFloat(*c.Max, 'f', -1, 64))
	}
	return s, nil
}

func exportExpr(reg *Registry, expr *TypeExpr) (*jsonschema.Schema, error) {
	switch expr.Kind {
	case ExprPrimitive:
		return &jsonschema.Schema{Type: jsonSchemaType(expr.Primitive)}, nil
	case ExprList:
		elem, err := exportExpr(reg, expr.Elem)
		if err != nil {
			return nil, err
		}
		return &jsonschema.Schema{Type: "array", Items: elem}, nil
	case ExprMap:
		elem, err := exportExpr(reg, expr.Elem)
		if err != nil {
			return nil, err
		}
		return &jsonschema.Schema{Type: "object", AdditionalProperties: elem}, nil
	case ExprEnum:
		vals := make([]any, len(expr.EnumValues))
		for i, v := range expr.EnumValues {
			vals[i] = v
		}
		return &jsonschema.Schema{Type: "string", Enum: vals}, nil
	case ExprRef:
		if shape, ok := reg.Shape(expr.RefName); ok {
			return exportShape(reg, shape)
		}
		if def, ok := reg.Def(expr.RefName); ok {
			return exportDef(reg, def)
		}
		return nil, alperr.New(alperr.KindUnresolved, "cannot export schema: %q is not registered", expr.RefName)
	default:
		return nil, alperr.New(alperr.KindSyntax, "unrecognized type expression kind")
	}
}

func jsonSchemaType(prim string) string {
	switch prim {
	case PrimStr, PrimTS:
		return "string"
	case PrimInt:
		return "integer"
	case PrimFloat:
		return "number"
	case PrimBool:
		return "boolean"
	default:
		return "string"
	}
}
