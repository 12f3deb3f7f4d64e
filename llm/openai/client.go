// Package openai adapts the OpenAI Chat Completions API, through
// github.com/sashabaranov/go-openai, to the instruct.LLMClient interface.
package openai

import (
	"context"
	"errors"
	"fmt"

	instruct "github.com/ourstudio-se/ai-instruct-sdk"
	oai "github.com/sashabaranov/go-openai"
)

// ChatClient captures the subset of the go-openai client used by the adapter.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request oai.ChatCompletionRequest) (oai.ChatCompletionResponse, error)
}

// Client wraps the OpenAI API client.
type Client struct {
	client ChatClient
}

// New creates a new OpenAI client.
func New(client ChatClient) *Client {
	return &Client{
		client: client,
	}
}

// NewFromAPIKey creates a client with the default go-openai HTTP client. The
// key is used as the bearer credential as is.
func NewFromAPIKey(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	return New(oai.NewClient(apiKey)), nil
}

// ChatCompletion sends a chat completion request.
func (c *Client) ChatCompletion(ctx context.Context, req instruct.ChatCompletionRequest) (instruct.ChatCompletionResult, error) {
	resp, err := c.client.CreateChatCompletion(ctx, buildRequest(req))
	if err != nil {
		return instruct.ChatCompletionResult{}, fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return instruct.ChatCompletionResult{}, errors.New("openai returned no choices")
	}

	choice := resp.Choices[0]
	result := instruct.ChatCompletionResult{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: instruct.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, instruct.LLMToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: instruct.ArgumentPayload(tc.Function.Arguments),
		})
	}

	return result, nil
}

func buildRequest(req instruct.ChatCompletionRequest) oai.ChatCompletionRequest {
	messages := make([]oai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, oai.ChatCompletionMessage{
			Role:    convertRole(msg.Role),
			Content: msg.Content,
		})
	}

	out := oai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if len(req.Tools) > 0 {
		tools := make([]oai.Tool, 0, len(req.Tools))
		for _, tool := range req.Tools {
			tools = append(tools, oai.Tool{
				Type: oai.ToolType(tool.Kind),
				Function: &oai.FunctionDefinition{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			})
		}
		out.Tools = tools
		out.ToolChoice = convertToolChoice(req.ToolChoice)
	}

	return out
}

func convertRole(role instruct.Role) string {
	switch role {
	case instruct.RoleSystem:
		return oai.ChatMessageRoleSystem
	case instruct.RoleAssistant:
		return oai.ChatMessageRoleAssistant
	default:
		return oai.ChatMessageRoleUser
	}
}

// convertToolChoice maps "" and "auto" to the string form and any other value
// to a forced function call.
func convertToolChoice(choice string) any {
	switch choice {
	case "", instruct.ToolChoiceAuto:
		return instruct.ToolChoiceAuto
	default:
		return oai.ToolChoice{
			Type:     oai.ToolTypeFunction,
			Function: oai.ToolFunction{Name: choice},
		}
	}
}
