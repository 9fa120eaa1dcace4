package rag

import (
	"strings"
	"testing"

	"kbase/internal/llm"
	"kbase/internal/storage"
)

func testAssistant() *storage.AssistantRecord {
	return &storage.AssistantRecord{
		ID:           "asst-1",
		Name:         "HR Bot",
		Personality:  "friendly",
		Instructions: "Always cite the handbook.",
	}
}

func TestAssembler_NoKnowledgeRefusal(t *testing.T) {
	a := NewAssembler(4000)
	p := a.Assemble(testAssistant(), nil, nil)

	if p.UsedKnowledge {
		t.Error("UsedKnowledge = true, want false without matches or images")
	}
	if len(p.Sources) != 0 {
		t.Errorf("Sources = %v, want empty", p.Sources)
	}
	if !strings.Contains(p.System, "could not find relevant information") {
		t.Errorf("System missing refusal instruction: %q", p.System)
	}
	if !strings.Contains(p.System, "You are HR Bot, a friendly assistant.") {
		t.Errorf("System missing persona: %q", p.System)
	}
	if !strings.Contains(p.System, "Always cite the handbook.") {
		t.Errorf("System missing custom instructions: %q", p.System)
	}
}

func TestAssembler_KnowledgeMode(t *testing.T) {
	a := NewAssembler(4000)
	matches := []Match{
		{DocumentID: "doc-1", SourceName: "handbook.pdf", Text: "25 days of annual leave.", Score: 0.9},
		{DocumentID: "doc-2", SourceName: "faq.txt", Text: "Leave requests go through the portal.", Score: 0.85},
		{DocumentID: "doc-1", SourceName: "handbook.pdf", Text: "Carry-over is capped at 5 days.", Score: 0.8},
	}

	p := a.Assemble(testAssistant(), matches, nil)

	if !p.UsedKnowledge {
		t.Error("UsedKnowledge = false, want true")
	}
	// One source per document, in rank order of each document's best chunk.
	if len(p.Sources) != 2 || p.Sources[0] != "handbook.pdf" || p.Sources[1] != "faq.txt" {
		t.Errorf("Sources = %v, want [handbook.pdf faq.txt]", p.Sources)
	}
	if !strings.Contains(p.System, "Source: handbook.pdf\n25 days of annual leave.\nCarry-over is capped at 5 days.") {
		t.Errorf("chunks of the same document not grouped:\n%s", p.System)
	}
	if !strings.Contains(p.System, "Source: faq.txt\nLeave requests go through the portal.") {
		t.Errorf("second document missing from context:\n%s", p.System)
	}
	if !strings.Contains(p.System, "only the context") {
		t.Errorf("System missing grounding instruction: %q", p.System)
	}
	if len(p.Images) != 0 {
		t.Errorf("Images = %d payloads, want none", len(p.Images))
	}
}

func TestAssembler_PerDocumentBudget(t *testing.T) {
	a := NewAssembler(10)
	matches := []Match{
		{DocumentID: "doc-1", SourceName: "big.txt", Text: strings.Repeat("x", 100), Score: 0.9},
	}

	p := a.Assemble(testAssistant(), matches, nil)

	if strings.Contains(p.System, strings.Repeat("x", 11)) {
		t.Error("document context not truncated to the per-document budget")
	}
	if !strings.Contains(p.System, "Source: big.txt\n"+strings.Repeat("x", 10)) {
		t.Errorf("truncated context missing:\n%s", p.System)
	}
}

func TestAssembler_Images(t *testing.T) {
	a := NewAssembler(4000)
	images := []ImageDocument{
		{Name: "org-chart.png", Payload: llm.ImagePayload{MIMEType: "image/png", Data: []byte{0x89}}},
	}

	p := a.Assemble(testAssistant(), nil, images)

	if !p.UsedKnowledge {
		t.Error("UsedKnowledge = false, want true with images")
	}
	if len(p.Sources) != 1 || p.Sources[0] != "org-chart.png" {
		t.Errorf("Sources = %v, want [org-chart.png]", p.Sources)
	}
	if len(p.Images) != 1 || p.Images[0].MIMEType != "image/png" {
		t.Errorf("Images = %+v, want the png payload", p.Images)
	}
	if !strings.Contains(p.System, "Attached images") {
		t.Errorf("System missing image instruction: %q", p.System)
	}
	if strings.Contains(p.System, "Context from documents") {
		t.Errorf("System has an empty context block: %q", p.System)
	}
}

func TestPersonaPrompt_DefaultPersonality(t *testing.T) {
	got := personaPrompt(&storage.AssistantRecord{Name: "Bot"})
	if got != "You are Bot, a helpful assistant." {
		t.Errorf("personaPrompt() = %q", got)
	}
}
