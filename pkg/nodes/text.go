package nodes

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/node"
)

// inputText resolves a connected text input, tolerating non-string
// values from upstream "any" ports.
func inputText(run node.Run, nodeID, port string) string {
	s, _ := run.InputValue(nodeID, port).(string)
	return s
}

// TextTransformNode applies a single named operation to its input.
type TextTransformNode struct{}

func (n *TextTransformNode) Spec() node.Spec {
	return node.Spec{
		Type:        "text_transform",
		DisplayName: "Text Transform",
		Description: "Transform text using various operations",
		Category:    "Text Processing",
		Inputs: []node.PortSpec{
			node.Port("text", node.KindText, "Input text"),
		},
		Outputs: []node.PortSpec{
			node.Port("output", node.KindText, "Transformed text"),
		},
		Parameters: []node.ParameterSpec{
			{
				Name: "operation", Kind: "string", Default: "uppercase",
				Description: "Transform operation",
				Constraints: map[string]any{
					"enum": []any{"uppercase", "lowercase", "title", "strip", "reverse"},
				},
			},
		},
		Resources: node.DefaultResources(),
	}
}

func (n *TextTransformNode) Execute(_ context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	text := inputText(run, data.ID, "text")

	var result string
	switch node.ParamString(data.Parameters, "operation", "uppercase") {
	case "uppercase":
		result = strings.ToUpper(text)
	case "lowercase":
		result = strings.ToLower(text)
	case "title":
		result = cases.Title(language.Und).String(text)
	case "strip":
		result = strings.TrimSpace(text)
	case "reverse":
		result = reverse(text)
	default:
		result = text
	}

	return map[string]any{"output": result}, nil
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// TextFilterNode splits text into matching and non-matching parts. An
// invalid regex pattern falls back to plain substring matching.
type TextFilterNode struct{}

func (n *TextFilterNode) Spec() node.Spec {
	return node.Spec{
		Type:        "text_filter",
		DisplayName: "Text Filter",
		Description: "Filter text using regex or string patterns",
		Category:    "Text Processing",
		Inputs: []node.PortSpec{
			node.Port("text", node.KindText, "Input text"),
		},
		Outputs: []node.PortSpec{
			node.Port("matches", node.KindText, "Matching text"),
			node.Port("filtered", node.KindText, "Text with matches removed"),
		},
		Parameters: []node.ParameterSpec{
			{Name: "pattern", Kind: "string", Default: "", Description: "Regex pattern or string to match"},
			{Name: "use_regex", Kind: "boolean", Default: true, Description: "Use regex pattern matching"},
		},
		Resources: node.DefaultResources(),
	}
}

func (n *TextFilterNode) Execute(_ context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	text := inputText(run, data.ID, "text")
	pattern := node.ParamString(data.Parameters, "pattern", "")
	useRegex := node.ParamBool(data.Parameters, "use_regex", true)

	if pattern == "" {
		return map[string]any{"matches": "", "filtered": text}, nil
	}

	if useRegex {
		if re, err := regexp.Compile(pattern); err == nil {
			return map[string]any{
				"matches":  strings.Join(re.FindAllString(text, -1), "\n"),
				"filtered": re.ReplaceAllString(text, ""),
			}, nil
		}
		// Invalid pattern, fall through to substring matching.
	}

	if strings.Contains(text, pattern) {
		return map[string]any{
			"matches":  pattern,
			"filtered": strings.ReplaceAll(text, pattern, ""),
		}, nil
	}
	return map[string]any{"matches": "", "filtered": text}, nil
}

// TextConcatNode joins up to three text inputs with a separator,
// skipping empty ones.
type TextConcatNode struct{}

func (n *TextConcatNode) Spec() node.Spec {
	return node.Spec{
		Type:        "text_concat",
		DisplayName: "Text Concat",
		Description: "Concatenate multiple text inputs",
		Category:    "Text Processing",
		Inputs: []node.PortSpec{
			node.Port("text1", node.KindText, "First text input"),
			node.OptionalPort("text2", node.KindText, "Second text input"),
			node.OptionalPort("text3", node.KindText, "Third text input"),
		},
		Outputs: []node.PortSpec{
			node.Port("output", node.KindText, "Concatenated text"),
		},
		Parameters: []node.ParameterSpec{
			{Name: "separator", Kind: "string", Default: " ", Description: "Separator between texts"},
		},
		Resources: node.DefaultResources(),
	}
}

func (n *TextConcatNode) Execute(_ context.Context, run node.Run, data *graph.Node) (map[string]any, error) {
	separator := node.ParamString(data.Parameters, "separator", " ")

	var parts []string
	for _, port := range []string{"text1", "text2", "text3"} {
		if t := inputText(run, data.ID, port); t != "" {
			parts = append(parts, t)
		}
	}

	return map[string]any{"output": strings.Join(parts, separator)}, nil
}
