package retrieval

import (
	"strconv"
	"strings"

	"rag-assistant/internal/domain"
)

// PromptBuilder renders the answer prompt from the query and ranked documents.
type PromptBuilder interface {
	Build(query string, docs []domain.RankedDocument) string
}

// PlainPromptBuilder writes instructions, then the query, then one
// "Document ID"/"Content" block per document.
type PlainPromptBuilder struct {
	additionalInstructions []string
}

// NewPlainPromptBuilder creates a builder with optional extra instruction lines
// appended after the default instructions.
func NewPlainPromptBuilder(additionalInstructions ...string) *PlainPromptBuilder {
	return &PlainPromptBuilder{additionalInstructions: additionalInstructions}
}

// Build renders the prompt. Document content is inserted verbatim.
func (b *PlainPromptBuilder) Build(query string, docs []domain.RankedDocument) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant. Write what the user asked you to while using\n")
	sb.WriteString("the provided context as the primary source of information for the content.\n")
	for _, inst := range b.additionalInstructions {
		sb.WriteString(inst)
		sb.WriteString("\n")
	}

	sb.WriteString("User query: ")
	sb.WriteString(query)
	sb.WriteString("\nContext: ")
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Document ID: ")
		sb.WriteString(strconv.FormatInt(doc.ID, 10))
		sb.WriteString("\nContent: ")
		sb.WriteString(doc.Content)
	}
	sb.WriteString("\n")
	return sb.String()
}
