package schema_test

import (
	"testing"

	"github.com/latticelabs/lattice/pkg/node"
	"github.com/latticelabs/lattice/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transformSpec() node.Spec {
	return node.Spec{
		Type: "text_transform",
		Parameters: []node.ParameterSpec{
			{
				Name: "operation",
				Kind: "string",
				Constraints: map[string]any{
					"enum": []string{"uppercase", "lowercase", "title", "strip", "reverse"},
				},
			},
			{Name: "limit", Kind: "int"},
			{Name: "temperature", Kind: "number"},
			{Name: "streaming", Kind: "boolean"},
		},
	}
}

func TestValidateParameters_OK(t *testing.T) {
	err := schema.ValidateParameters(transformSpec(), map[string]any{
		"operation":   "uppercase",
		"limit":       float64(3), // JSON numbers arrive as float64
		"temperature": 0.7,
		"streaming":   true,
	})
	assert.NoError(t, err)
}

func TestValidateParameters_MissingIsFine(t *testing.T) {
	assert.NoError(t, schema.ValidateParameters(transformSpec(), map[string]any{}))
}

func TestValidateParameters_EnumViolation(t *testing.T) {
	err := schema.ValidateParameters(transformSpec(), map[string]any{"operation": "shout"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shout")
}

func TestValidateParameters_KindMismatch(t *testing.T) {
	err := schema.ValidateParameters(transformSpec(), map[string]any{
		"limit":     2.5,
		"streaming": "yes",
	})
	require.Error(t, err)
	errs := schema.ValidationErrors(err)
	assert.Len(t, errs, 2)
}

func TestParseKind_Aliases(t *testing.T) {
	assert.NoError(t, schema.ParseKind("text").Validate("hi"))
	assert.Error(t, schema.ParseKind("text").Validate(1))
	assert.NoError(t, schema.ParseKind("number").Validate(3))
	assert.NoError(t, schema.ParseKind("json").Validate(map[string]any{"a": 1}))
}
