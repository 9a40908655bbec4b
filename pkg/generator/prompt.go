package generator

import (
	"fmt"

	"github.com/campusdesk/campusdesk/pkg/knowledge"
)

const promptTemplate = `
You are a helpful University support chatbot.
Answer ONLY using the knowledge base. If the answer is not found, politely say you don't know.

Knowledge Base:
%s

User Query: %s
`

// BuildPrompt embeds the whole knowledge base and the user query into a
// single generation prompt.
func BuildPrompt(query string, kb knowledge.Base) string {
	return fmt.Sprintf(promptTemplate, kb.Serialize(), query)
}
