package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
)

// contentSchema is the structural contract for template content payloads.
// Unknown top-level keys are allowed (they ride along in Content.Extra),
// but sections and questions must be well-formed when present.
const contentSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"sections": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "title"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"title": {"type": "string", "minLength": 1},
					"questions": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["id", "label"],
							"properties": {
								"id": {"type": "string", "minLength": 1},
								"label": {"type": "string", "minLength": 1},
								"type": {"type": "string"},
								"required": {"type": "boolean"},
								"options": {"type": "array", "items": {"type": "string"}},
								"promptContext": {"type": "string"}
							}
						}
					}
				}
			}
		},
		"globalPromptContext": {"type": "string"},
		"analysisPromptTemplate": {"type": "string"}
	}
}`

var compiledContentSchema = jsonschema.MustCompileString("content.schema.json", contentSchema)

// ValidateContent checks a content payload against the structural schema.
// Violations are reported as ValidationError.
func ValidateContent(c Content) error {
	data, err := json.Marshal(c)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "content is not serializable", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return apperr.Wrap(apperr.KindValidation, "content is not valid JSON", err)
	}

	if err := compiledContentSchema.Validate(doc); err != nil {
		return apperr.Wrap(apperr.KindValidation, "content failed schema validation", err).
			WithDetails(schemaErrorDetails(err))
	}
	return nil
}

// schemaErrorDetails flattens a validation error into a short caller-facing
// description.
func schemaErrorDetails(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	leaves := leafCauses(ve)
	parts := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", loc, leaf.Message))
	}
	return strings.Join(parts, "; ")
}

func leafCauses(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		out = append(out, leafCauses(cause)...)
	}
	return out
}
