package instruct

import (
	"context"
	"log/slog"
	"time"
)

// Config configures a Client.
type Config struct {
	// LLMClient is the agent call boundary.
	// Required.
	LLMClient LLMClient

	// Logger is the structured logger.
	// Optional - defaults to slog.Default().
	Logger *slog.Logger

	// Model is the default LLM model to use.
	// Defaults to "gpt-4o".
	Model string

	// Temperature is the default temperature for LLM calls.
	// Zero is sent as is.
	Temperature float32

	// MaxTokens limits the response length. Zero leaves it to the provider.
	MaxTokens int

	// MaxRetries is the number of agent calls made before giving up on a
	// payload that does not decode. Defaults to 3.
	MaxRetries int

	// RequestTimeout bounds every single agent call.
	// Defaults to 60 seconds.
	RequestTimeout time.Duration

	// ForceToolChoice asks the agent to call the record's tool instead of
	// leaving the choice to the model.
	ForceToolChoice bool

	// Hooks are optional per-record pre/post processing hooks.
	Hooks *HookRegistry
}

// withDefaults applies default values to the config.
func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	return c
}

// validate checks that required config fields are set.
func (c Config) validate() error {
	if c.LLMClient == nil {
		return NewConfigurationError("LLMClient is required", nil)
	}
	if c.MaxTokens < 0 {
		return NewConfigurationError("MaxTokens must be >= 0", nil)
	}
	return nil
}

// LLMClient is the interface for LLM providers.
// It abstracts the provider SDKs to allow for testing and alternative providers.
type LLMClient interface {
	// ChatCompletion sends a chat completion request.
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResult, error)
}

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolChoiceAuto leaves the tool choice to the model.
const ToolChoiceAuto = "auto"

// ChatCompletionRequest contains everything sent to the agent for one call.
type ChatCompletionRequest struct {
	// Model is the model to use.
	Model string

	// Messages are the conversation messages.
	Messages []LLMMessage

	// Tools are the available tools for function calling, in order.
	Tools []ToolDescriptor

	// ToolChoice is ToolChoiceAuto, empty, or the name of the tool to force.
	ToolChoice string

	// Temperature controls randomness.
	Temperature float32

	// MaxTokens limits the response length.
	MaxTokens int
}

// LLMMessage is a message in the conversation.
type LLMMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LLMToolCall is the agent's request to call a tool.
type LLMToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments ArgumentPayload `json:"arguments"`
}

// ChatCompletionResult is the result of a chat completion.
type ChatCompletionResult struct {
	// Content is the assistant's text response, if any.
	Content string

	// ToolCalls are the tool calls the assistant requested.
	ToolCalls []LLMToolCall

	// FinishReason indicates why the response ended.
	FinishReason string

	// Usage contains token usage information.
	Usage TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add accumulates another usage record.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// FindToolCall returns the arguments of the first call to the named tool.
// A false result is the no-tool-invoked outcome.
func FindToolCall(res ChatCompletionResult, toolName string) (ArgumentPayload, bool) {
	for _, tc := range res.ToolCalls {
		if tc.Name == toolName {
			return tc.Arguments, true
		}
	}
	return nil, false
}
