package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
)

// Mode selects the reply shape expected from the model.
type Mode string

const (
	ModeReport  Mode = "report"
	ModeCollect Mode = "collect"
	ModeCompare Mode = "compare"
)

// Result is the validated verification reply. Only the fields of its Mode
// are meaningful.
type Result struct {
	Mode             Mode    `json:"mode"`
	TrashType        string  `json:"trashType,omitempty"`
	Quantity         string  `json:"quantity,omitempty"`
	TrashTypeMatch   bool    `json:"trashTypeMatch,omitempty"`
	QuantityMatch    bool    `json:"quantityMatch,omitempty"`
	TrashIsCollected bool    `json:"trashIsCollected,omitempty"`
	Confidence       float64 `json:"confidence"`
}

const confidenceSchema = `{"type": "number", "minimum": 0, "maximum": 1}`

var schemaSources = map[Mode]string{
	ModeReport: `{
  "type": "object",
  "required": ["trashType", "quantity", "confidence"],
  "properties": {
    "trashType": {"type": "string", "minLength": 1},
    "quantity": {"type": "string", "minLength": 1},
    "confidence": ` + confidenceSchema + `
  }
}`,
	ModeCollect: `{
  "type": "object",
  "required": ["trashTypeMatch", "quantityMatch", "confidence"],
  "properties": {
    "trashTypeMatch": {"type": "boolean"},
    "quantityMatch": {"type": "boolean"},
    "confidence": ` + confidenceSchema + `
  }
}`,
	ModeCompare: `{
  "type": "object",
  "required": ["trashIsCollected", "confidence"],
  "properties": {
    "trashIsCollected": {"type": "boolean"},
    "confidence": ` + confidenceSchema + `
  }
}`,
}

var schemas = compileSchemas()

func compileSchemas() map[Mode]*jsonschema.Schema {
	compiled := make(map[Mode]*jsonschema.Schema, len(schemaSources))
	for mode, src := range schemaSources {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://aitrashrank.local/schemas/%s.schema.json", mode)
		if err := c.AddResource(url, strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("extractor: load %s schema: %v", mode, err))
		}
		schema, err := c.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("extractor: compile %s schema: %v", mode, err))
		}
		compiled[mode] = schema
	}
	return compiled
}

// Slice returns the text between the first '{' and the last '}' inclusive.
// The model may wrap its JSON in prose or code fences; nothing else is
// repaired.
func Slice(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < 0 || end < start {
		return "", apperror.New(apperror.KindMalformedResponse, "no JSON object in model reply")
	}
	return raw[start : end+1], nil
}

// Extract slices, parses and validates raw model output for mode.
func Extract(raw string, mode Mode) (*Result, error) {
	schema, ok := schemas[mode]
	if !ok {
		return nil, apperror.New(apperror.KindValidation, fmt.Sprintf("unknown mode %q", mode))
	}

	slice, err := Slice(raw)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(slice), &doc); err != nil {
		return nil, apperror.Wrap(apperror.KindParse, "model reply is not valid JSON", err)
	}

	if err := schema.Validate(doc); err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, fmt.Sprintf("model reply does not match %s shape", mode), err)
	}

	result := &Result{}
	if err := json.Unmarshal([]byte(slice), result); err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "decode model reply", err)
	}
	result.Mode = mode
	return result, nil
}
