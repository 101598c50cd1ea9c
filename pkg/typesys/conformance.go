package typesys

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/alp-run/alp/pkg/alperr"
)

// Conform validates an arbitrary decoded JSON value (typically an LLM
// adapter's response) against the JSON Schema exported for a registered
// Shape/TypeDef, as a standards-based second opinion layered on top of
// ValidateExpr/ValidateShape, which remain the VM's hot-path validator.
func Conform(reg *Registry, name string, doc any) error {
	schema, err := ExportSchema(reg, name)
	if err != nil {
		return err
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return alperr.Wrap(alperr.KindOp, err, "marshal exported schema for %q", name)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return alperr.Wrap(alperr.KindOp, err, "decode exported schema for %q", name)
	}

	resourceID := "alp://" + name + ".json"
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(resourceID, schemaDoc); err != nil {
		return alperr.Wrap(alperr.KindOp, err, "register schema resource for %q", name)
	}
	compiled, err := c.Compile(resourceID)
	if err != nil {
		return alperr.Wrap(alperr.KindOp, err, "compile schema for %q", name)
	}
	if err := compiled.Validate(doc); err != nil {
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			return alperr.New(alperr.KindType, "conformance check for %q failed: %s", name, describeValidationError(ve))
		}
		return alperr.Wrap(alperr.KindType, err, "conformance check for %q failed", name)
	}
	return nil
}

func describeValidationError(ve *sjsonschema.ValidationError) string {
	leaves := flattenValidationErrors(ve)
	parts := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		path := strings.Join(leaf.InstanceLocation, "/")
		parts = append(parts, fmt.Sprintf("%s: %v", path, leaf.ErrorKind))
	}
	return strings.Join(parts, "; ")
}

func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
