package llm

// Message is one turn of conversation history.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// ImagePayload is a raw image attached to a generation request.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

// GenerateRequest carries everything needed to produce one answer.
// System holds the persona and any knowledge context; Images are appended to
// the final user turn as inline multimodal parts.
type GenerateRequest struct {
	System   string
	History  []Message
	Question string
	Images   []ImagePayload
}
