package typesys_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alp-run/alp/pkg/alperr"
	"github.com/alp-run/alp/pkg/typesys"
)

func newRegistryWithShapes(t *testing.T) *typesys.Registry {
	t.Helper()
	reg := typesys.NewRegistry()
	require.NoError(t, reg.RegisterShape(&typesys.Shape{
		Name: "I",
		Fields: []typesys.FieldSpec{
			{Name: "x", Expr: &typesys.TypeExpr{Kind: typesys.ExprPrimitive, Primitive: typesys.PrimInt}},
		},
	}))
	require.NoError(t, reg.RegisterShape(&typesys.Shape{
		Name: "O",
		Fields: []typesys.FieldSpec{
			{Name: "y", Expr: &typesys.TypeExpr{Kind: typesys.ExprPrimitive, Primitive: typesys.PrimInt}},
		},
	}))
	return reg
}

func TestValidateShape_RequiredAndOptionalFields(t *testing.T) {
	reg := newRegistryWithShapes(t)

	out, err := typesys.Validate(reg, "I", map[string]any{"x": float64(41)})
	require.NoError(t, err)
	require.Equal(t, float64(41), out.(map[string]any)["x"])

	_, err = typesys.Validate(reg, "I", map[string]any{})
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindType))
}

func TestValidateShape_AppliesDefaults(t *testing.T) {
	reg := typesys.NewRegistry()
	require.NoError(t, reg.RegisterShape(&typesys.Shape{
		Name: "WithDefault",
		Fields: []typesys.FieldSpec{
			{Name: "count", Expr: &typesys.TypeExpr{Kind: typesys.ExprPrimitive, Primitive: typesys.PrimInt}, Optional: true},
		},
		Defaults: map[string]any{"count": float64(0)},
	}))

	out, err := typesys.Validate(reg, "WithDefault", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, float64(0), out.(map[string]any)["count"])
}

func TestValidateShape_UnknownExtraFieldsPassThrough(t *testing.T) {
	reg := newRegistryWithShapes(t)
	out, err := typesys.Validate(reg, "I", map[string]any{"x": float64(1), "extra": "kept"})
	require.NoError(t, err)
	require.Equal(t, "kept", out.(map[string]any)["extra"])
}

func TestValidatePrimitive_IntRejectsFractional(t *testing.T) {
	reg := typesys.NewRegistry()
	_, err := typesys.Validate(reg, "int", 1.5)
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindType))

	v, err := typesys.Validate(reg, "int", float64(4))
	require.NoError(t, err)
	require.Equal(t, float64(4), v)
}

func TestValidateList(t *testing.T) {
	reg := typesys.NewRegistry()
	out, err := typesys.Validate(reg, "list<int>", []any{float64(1), float64(2), float64(3)})
	require.NoError(t, err)
	require.Equal(t, []any{float64(1), float64(2), float64(3)}, out)

	_, err = typesys.Validate(reg, "list<int>", []any{float64(1), 1.5})
	require.Error(t, err)
}

func TestValidateInlineEnum(t *testing.T) {
	reg := typesys.NewRegistry()
	_, err := typesys.Validate(reg, "enum<a,b,c>", "b")
	require.NoError(t, err)

	_, err = typesys.Validate(reg, "enum<a,b,c>", "z")
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindType))
}

func TestValidateDef_Union(t *testing.T) {
	reg := typesys.NewRegistry()
	require.NoError(t, reg.RegisterDef(&typesys.TypeDef{
		Name: "StrOrInt",
		Kind: typesys.DefUnion,
		Union: []*typesys.TypeExpr{
			{Kind: typesys.ExprPrimitive, Primitive: typesys.PrimStr},
			{Kind: typesys.ExprPrimitive, Primitive: typesys.PrimInt},
		},
	}))

	_, err := typesys.Validate(reg, "StrOrInt", "hello")
	require.NoError(t, err)
	_, err = typesys.Validate(reg, "StrOrInt", float64(3))
	require.NoError(t, err)
	_, err = typesys.Validate(reg, "StrOrInt", true)
	require.Error(t, err)
}

func TestValidateDef_ConstrainedScalar(t *testing.T) {
	reg := typesys.NewRegistry()
	minLen := 2
	maxLen := 5
	require.NoError(t, reg.RegisterDef(&typesys.TypeDef{
		Name: "ShortCode",
		Kind: typesys.DefConstrained,
		Base: typesys.PrimStr,
		Constraint: typesys.Constraint{
			MinLength: &minLen,
			MaxLength: &maxLen,
		},
	}))

	_, err := typesys.Validate(reg, "ShortCode", "ab")
	require.NoError(t, err)
	_, err = typesys.Validate(reg, "ShortCode", "a")
	require.Error(t, err)
	_, err = typesys.Validate(reg, "ShortCode", "toolongforthis")
	require.Error(t, err)
}

func TestRegisterShape_DuplicateDiffers(t *testing.T) {
	reg := typesys.NewRegistry()
	require.NoError(t, reg.RegisterShape(&typesys.Shape{Name: "A"}))
	err := reg.RegisterShape(&typesys.Shape{Name: "A", Fields: []typesys.FieldSpec{{Name: "x"}}})
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindDuplicate))

	require.NoError(t, reg.RegisterShape(&typesys.Shape{Name: "A"}))
}

func TestValidate_UnresolvedReference(t *testing.T) {
	reg := typesys.NewRegistry()
	_, err := typesys.Validate(reg, "Nope", map[string]any{})
	require.Error(t, err)
	require.True(t, alperr.HasKind(err, alperr.KindUnresolved))
}
