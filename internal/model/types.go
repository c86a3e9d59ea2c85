package model

import "time"

// ChatCompletionsPath is the endpoint suffix used by the generators.
const ChatCompletionsPath = "/chat/completions"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message { return Message{Role: "system", Content: content} }
func UserMessage(content string) Message   { return Message{Role: "user", Content: content} }

type ChatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat constrains the model output to a JSON schema.
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// SchemaFormat builds a json_schema response format.
func SchemaFormat(name string, schema map[string]any) *ResponseFormat {
	return &ResponseFormat{
		Type:       "json_schema",
		JSONSchema: &JSONSchema{Name: name, Schema: schema},
	}
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	Text         string  `json:"text"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is one outbound call. UserID is only used for log correlation.
type Request struct {
	Path      string
	Body      ChatRequest
	UserID    int64
	RequestID string
}

// Response is a successful call. A nil *Response means no response is
// available.
type Response struct {
	RequestID string
	Content   string
	Model     string
	Usage     Usage
	Attempts  int
	Retries   []Attempt
	Elapsed   time.Duration
}

// Attempt records one failed attempt that was retried: its 1-based number,
// the backoff slept after it and the failure kind.
type Attempt struct {
	Number int
	Delay  time.Duration
	Cause  ErrorKind
}
