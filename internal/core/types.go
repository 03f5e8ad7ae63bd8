package core

// ReplyKind tags what a Provider returned on success
type ReplyKind string

const (
	// ReplyAnswer is a model answer (possibly empty)
	ReplyAnswer ReplyKind = "answer"
	// ReplyLoading means the hosted model is cold-starting and produced no answer
	ReplyLoading ReplyKind = "loading"
)

// Reply is a successful Provider result
type Reply struct {
	Kind ReplyKind
	Text string
}

// Answer is a convenience constructor for an answer reply
func Answer(text string) Reply {
	return Reply{Kind: ReplyAnswer, Text: text}
}

// Loading returns the cold-start reply
func Loading() Reply {
	return Reply{Kind: ReplyLoading}
}

// Outcome tags the result of a client-level ask.
// Every outcome is rendered as plain text for chat users; the tag keeps
// the cause visible to code and tests.
type Outcome string

const (
	OutcomeAnswer  Outcome = "answer"
	OutcomeLoading Outcome = "loading"
	OutcomeTooLong Outcome = "too_long"
	OutcomeTimeout Outcome = "timeout"
	OutcomeFailure Outcome = "failure"
)

// Result is what the ask client hands back to gateways
type Result struct {
	Outcome Outcome
	Text    string
}

// ChatRequest is the chat-completion request body shared by the
// OpenAI-compatible backends and the inference router
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// NewChatRequest builds the two-message (system + user) request
func NewChatRequest(model, persona, prompt string, maxTokens int) *ChatRequest {
	return &ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: persona},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxTokens,
	}
}

// Message represents a single message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents the chat completion response.
// Only the fields the bridge reads are declared.
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Index        int             `json:"index"`
}

// ResponseMessage is the assistant message of a choice.
// Content is a pointer so an absent field can be told apart from "".
type ResponseMessage struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}

// FirstContent returns the first choice's content, or "" when there is none
func (r *ChatResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	if c := r.Choices[0].Message.Content; c != nil {
		return *c
	}
	return ""
}
