package rag

import (
	"fmt"
	"strings"

	"kbase/internal/llm"
	"kbase/internal/storage"
)

// ImageDocument is a completed image document served to the generator as a
// raw multimodal part.
type ImageDocument struct {
	Name    string
	Payload llm.ImagePayload
}

// Prompt is the assembled generation input. Sources is exactly the set of
// document names whose content entered the prompt; it is recorded here, never
// parsed back out of the generated answer.
type Prompt struct {
	System        string
	Images        []llm.ImagePayload
	Sources       []string
	UsedKnowledge bool
}

// Assembler builds the system prompt from assistant configuration and
// retrieved context.
type Assembler struct {
	docBudget int // max characters of context per document
}

// NewAssembler creates an assembler with a per-document character budget.
func NewAssembler(docBudget int) *Assembler {
	return &Assembler{docBudget: docBudget}
}

// Assemble produces the prompt for one question. With matches or images it
// builds a context block and instructs the generator to stay inside it;
// without either it instructs the generator to say no material is available.
func (a *Assembler) Assemble(assistant *storage.AssistantRecord, matches []Match, images []ImageDocument) Prompt {
	persona := personaPrompt(assistant)

	if len(matches) == 0 && len(images) == 0 {
		return Prompt{
			System: persona + "\n\n" +
				"You have no relevant material in your knowledge base for this question. " +
				"Tell the user you could not find relevant information in the uploaded documents. " +
				"Do not invent an answer.",
		}
	}

	p := Prompt{UsedKnowledge: true}

	var block strings.Builder
	for _, doc := range groupByDocument(matches) {
		text := doc.text
		if a.docBudget > 0 && len(text) > a.docBudget {
			text = text[:a.docBudget]
		}
		fmt.Fprintf(&block, "Source: %s\n%s\n\n", doc.name, text)
		p.Sources = append(p.Sources, doc.name)
	}

	for _, img := range images {
		p.Images = append(p.Images, img.Payload)
		p.Sources = append(p.Sources, img.Name)
	}

	system := persona + "\n\n" +
		"Answer using only the context from the documents below. " +
		"If the context does not contain the answer, say you do not have that information rather than inventing one."
	if block.Len() > 0 {
		system += "\n\nContext from documents:\n" + strings.TrimRight(block.String(), "\n")
	}
	if len(images) > 0 {
		system += "\n\nAttached images are part of the knowledge base; use them when they are relevant."
	}
	p.System = system

	return p
}

// personaPrompt builds the assistant persona line.
func personaPrompt(assistant *storage.AssistantRecord) string {
	personality := assistant.Personality
	if personality == "" {
		personality = "helpful"
	}
	prompt := fmt.Sprintf("You are %s, a %s assistant.", assistant.Name, personality)
	if assistant.Instructions != "" {
		prompt += " " + assistant.Instructions
	}
	return prompt
}

type documentContext struct {
	name string
	text string
}

// groupByDocument concatenates the chunks of each document, keeping documents
// in rank order of their best chunk and chunks in rank order within each.
func groupByDocument(matches []Match) []documentContext {
	order := make([]string, 0, len(matches))
	texts := make(map[string][]string)
	names := make(map[string]string)

	for _, m := range matches {
		if _, seen := texts[m.DocumentID]; !seen {
			order = append(order, m.DocumentID)
			names[m.DocumentID] = m.SourceName
		}
		texts[m.DocumentID] = append(texts[m.DocumentID], m.Text)
	}

	docs := make([]documentContext, 0, len(order))
	for _, id := range order {
		docs = append(docs, documentContext{
			name: names[id],
			text: strings.Join(texts[id], "\n"),
		})
	}
	return docs
}
