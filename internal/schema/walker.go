// Package schema turns a template's section/question schema plus a set of
// user responses into the ordered prompt fragments the assembler consumes.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mrlynn/design-reviewer-backend/internal/store"
)

// Fragment is one answered question paired with its authoring-supplied
// analysis guidance.
type Fragment struct {
	SectionTitle  string
	QuestionLabel string
	Answer        string
	PromptContext string
}

// Walk iterates the schema's sections and questions in declared order and
// emits a fragment for every question that has both an answer and a
// promptContext. Unanswered questions and questions without guidance are
// skipped, not errors.
//
// The output depends only on the schema's declaration order, never on the
// enumeration order of the responses map.
func Walk(content store.Content, responses map[string]any) []Fragment {
	var out []Fragment
	for _, section := range content.Sections {
		for _, q := range section.Questions {
			if q.PromptContext == "" {
				continue
			}
			answer, ok := responses[q.ID]
			if !ok || answer == nil {
				continue
			}
			rendered := RenderAnswer(answer)
			if rendered == "" {
				continue
			}
			out = append(out, Fragment{
				SectionTitle:  section.Title,
				QuestionLabel: q.Label,
				Answer:        rendered,
				PromptContext: q.PromptContext,
			})
		}
	}
	return out
}

// RenderAnswer converts an answer value to prompt text. Strings pass
// through; everything else serializes deterministically (encoding/json
// emits map keys in sorted order).
func RenderAnswer(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
