package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var reCodeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ResultValidator checks that a model answer is a JSON object carrying every
// ResultKeys field. It never rewrites the answer.
type ResultValidator struct {
	schema *jsonschema.Schema
}

// NewResultValidator compiles the result schema.
func NewResultValidator() (*ResultValidator, error) {
	props := make(map[string]any, len(ResultKeys))
	for _, k := range ResultKeys {
		props[k] = map[string]any{"type": []string{"string", "number", "null", "array", "object"}}
	}
	schemaMap := map[string]any{
		"type":       "object",
		"properties": props,
		"required":   ResultKeys,
	}

	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analysis_result.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("analysis_result.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &ResultValidator{schema: schema}, nil
}

// Validate reports why content does not match the expected result shape.
func (v *ResultValidator) Validate(content string) error {
	var doc any
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &doc); err != nil {
		return fmt.Errorf("result is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("result does not match schema: %w", err)
	}
	return nil
}

// StripCodeFence removes a surrounding Markdown code fence, if any.
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if m := reCodeFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ValidationOption maps a configured validation mode to an agent option.
func ValidationOption(mode string) (Option, error) {
	switch mode {
	case "", ValidationOff:
		return func(*Agent) {}, nil
	case ValidationWarn, ValidationStrict:
		v, err := NewResultValidator()
		if err != nil {
			return nil, err
		}
		return WithValidator(v, mode == ValidationStrict), nil
	default:
		return nil, fmt.Errorf("unknown validation mode %q", mode)
	}
}
