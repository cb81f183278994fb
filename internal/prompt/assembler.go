// Package prompt assembles the final model prompt from walked schema
// fragments and retrieved reference context, under a hard character budget.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mrlynn/design-reviewer-backend/internal/retrieval"
	"github.com/mrlynn/design-reviewer-backend/internal/schema"
)

// DefaultMaxChars is the default prompt budget when none is configured.
const DefaultMaxChars = 24000

// Input carries everything the assembler concatenates.
type Input struct {
	// GlobalContext is the template's prompt preamble.
	GlobalContext string

	// Fragments are the walked, answered schema questions in declared order.
	Fragments []schema.Fragment

	// Snippets is the retrieved reference context, any order.
	Snippets []retrieval.Snippet

	// AnalysisTemplate is the trailing analysis instruction block.
	AnalysisTemplate string

	// MaxChars is the total character budget. Zero means DefaultMaxChars.
	MaxChars int
}

// Result is the assembled prompt plus budget accounting.
type Result struct {
	Text            string
	SnippetsUsed    int
	DroppedSnippets int
}

// Assemble concatenates, in fixed order: global preamble, per-fragment
// blocks, the reference-context block, and the analysis instructions.
//
// If the total exceeds the budget, the lowest-relevance snippets are
// dropped first until the prompt fits. User-answer fragments are never
// dropped.
func Assemble(in Input) Result {
	budget := in.MaxChars
	if budget <= 0 {
		budget = DefaultMaxChars
	}

	base := baseLength(in)

	// Keep snippets highest-relevance first, then cut from the tail.
	kept := make([]retrieval.Snippet, len(in.Snippets))
	copy(kept, in.Snippets)
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	dropped := 0
	for len(kept) > 0 && base+contextBlockLength(kept) > budget {
		kept = kept[:len(kept)-1]
		dropped++
	}

	var b strings.Builder
	if in.GlobalContext != "" {
		b.WriteString(in.GlobalContext)
		b.WriteString("\n\n")
	}
	for _, f := range in.Fragments {
		writeFragment(&b, f)
	}
	if len(kept) > 0 {
		writeContextBlock(&b, kept)
	}
	if in.AnalysisTemplate != "" {
		b.WriteString(in.AnalysisTemplate)
		b.WriteString("\n")
	}

	return Result{
		Text:            b.String(),
		SnippetsUsed:    len(kept),
		DroppedSnippets: dropped,
	}
}

func writeFragment(b *strings.Builder, f schema.Fragment) {
	fmt.Fprintf(b, "## %s\n", f.SectionTitle)
	fmt.Fprintf(b, "### %s\n", f.QuestionLabel)
	fmt.Fprintf(b, "Response: %s\n", f.Answer)
	fmt.Fprintf(b, "Analysis Context:\n%s\n\n", f.PromptContext)
}

const contextBlockHeader = "## Reference Context\n"

func writeContextBlock(b *strings.Builder, snippets []retrieval.Snippet) {
	b.WriteString(contextBlockHeader)
	for _, s := range snippets {
		writeSnippet(b, s)
	}
	b.WriteString("\n")
}

func writeSnippet(b *strings.Builder, s retrieval.Snippet) {
	source := s.SourceID
	if source == "" {
		source = "unknown"
	}
	fmt.Fprintf(b, "[Source: %s | Relevance: %.2f]\n%s\n\n", source, s.Score, s.Content)
}

// baseLength is the length of everything that is never dropped.
func baseLength(in Input) int {
	var b strings.Builder
	if in.GlobalContext != "" {
		b.WriteString(in.GlobalContext)
		b.WriteString("\n\n")
	}
	for _, f := range in.Fragments {
		writeFragment(&b, f)
	}
	if in.AnalysisTemplate != "" {
		b.WriteString(in.AnalysisTemplate)
		b.WriteString("\n")
	}
	return b.Len()
}

// contextBlockLength is the length the context block would add.
func contextBlockLength(snippets []retrieval.Snippet) int {
	if len(snippets) == 0 {
		return 0
	}
	var b strings.Builder
	writeContextBlock(&b, snippets)
	return b.Len()
}
