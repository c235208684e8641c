package gigachat

import "encoding/json"

// ── Request Envelope ─────────────────────────────────────────

// Role tags a chat message with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn in a chat request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FunctionSchema describes one structured-output function the model may call.
// Parameters is a JSON Schema object.
type FunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// CallMode selects how the model chooses among offered functions.
type CallMode string

const (
	CallAuto CallMode = "auto"
	CallNone CallMode = "none"
)

// CallFunction forces the model to call the named function.
func CallFunction(name string) CallMode { return CallMode(name) }

// RequestEnvelope is a single chat-completion request. It is built once per
// call and not mutated afterwards.
type RequestEnvelope struct {
	Model        string           `json:"model"`
	Messages     []Message        `json:"messages"`
	Temperature  float64          `json:"temperature"`
	MaxTokens    int              `json:"max_tokens,omitempty"`
	Stream       bool             `json:"stream"`
	Functions    []FunctionSchema `json:"functions,omitempty"`
	FunctionCall *CallMode        `json:"function_call,omitempty"`
}

// ── Raw Response ─────────────────────────────────────────────

// Finish reasons reported per completion choice.
const (
	FinishStop         = "stop"
	FinishFunctionCall = "function_call"
	FinishLength       = "length"
	FinishError        = "error"
)

// RawResponse is the gateway's chat-completion response, produced once per
// request and never mutated.
type RawResponse struct {
	Choices []Choice `json:"choices"`
	Model   string   `json:"model,omitempty"`
	Usage   *Usage   `json:"usage,omitempty"`

	// Attempts is how many transport attempts the call took, filled in by
	// the client rather than the wire.
	Attempts int `json:"-"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int           `json:"index"`
	FinishReason string        `json:"finish_reason"`
	Message      ChoiceMessage `json:"message"`
}

// ChoiceMessage carries either free text, a structured function call, or both.
type ChoiceMessage struct {
	Role         Role          `json:"role,omitempty"`
	Content      string        `json:"content,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// FunctionCall is the structured payload the model committed to emit.
// Arguments is the raw argument text, kept unparsed until extraction.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// UnmarshalJSON accepts arguments either as a JSON-encoded string (OpenAI
// style) or as an inline object (observed from some gateway versions), and
// normalizes both into the raw argument text.
func (fc *FunctionCall) UnmarshalJSON(data []byte) error {
	var probe struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	fc.Name = probe.Name
	if len(probe.Arguments) == 0 {
		fc.Arguments = ""
		return nil
	}
	if probe.Arguments[0] == '"' {
		var s string
		if err := json.Unmarshal(probe.Arguments, &s); err != nil {
			return err
		}
		fc.Arguments = s
		return nil
	}
	fc.Arguments = string(probe.Arguments)
	return nil
}

// Usage is the token accounting the gateway attaches to a response. Carried
// through for diagnostics, not interpreted.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
