// Package anthropic provides an Anthropic implementation of instruct.LLMClient.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	instruct "github.com/ourstudio-se/ai-instruct-sdk"
)

// defaultMaxTokens is sent when the request leaves MaxTokens unset; the
// Messages API requires a value.
const defaultMaxTokens = 1024

// Client implements instruct.LLMClient for Anthropic's Messages API.
type Client struct {
	client anthropic.Client
}

// Config for the Anthropic client.
type Config struct {
	// APIKey is the bearer credential. It is passed through unchanged.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for Azure Foundry.
	BaseURL string
}

// New creates a new Anthropic client with the given config.
func New(cfg Config) *Client {
	var opts []option.RequestOption

	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: anthropic.NewClient(opts...),
	}
}

// ChatCompletion sends the request to Anthropic and returns the response.
func (c *Client) ChatCompletion(ctx context.Context, req instruct.ChatCompletionRequest) (instruct.ChatCompletionResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	system, messages := toAnthropicMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(float64(req.Temperature)),
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
		params.ToolChoice = toAnthropicToolChoice(req.ToolChoice)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return instruct.ChatCompletionResult{}, fmt.Errorf("anthropic messages failed: %w", err)
	}

	return fromAnthropicResponse(resp), nil
}

// toAnthropicMessages splits out system messages and merges consecutive
// messages of the same role, since the API expects alternating turns.
func toAnthropicMessages(msgs []instruct.LLMMessage) (string, []anthropic.MessageParam) {
	var system []string
	var result []anthropic.MessageParam

	var role instruct.Role
	var blocks []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if role == instruct.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		} else {
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
		blocks = nil
	}

	for _, msg := range msgs {
		if msg.Role == instruct.RoleSystem {
			system = append(system, msg.Content)
			continue
		}

		r := msg.Role
		if r != instruct.RoleAssistant {
			r = instruct.RoleUser
		}
		if r != role {
			flush()
			role = r
		}
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	flush()

	return strings.Join(system, "\n\n"), result
}

// toAnthropicTools converts tool descriptors to Anthropic format.
func toAnthropicTools(tools []instruct.ToolDescriptor) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))

	for i, t := range tools {
		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Parameters.Properties,
					Required:   t.Parameters.Required,
				},
			},
		}
	}

	return result
}

func toAnthropicToolChoice(choice string) anthropic.ToolChoiceUnionParam {
	switch choice {
	case "", instruct.ToolChoiceAuto:
		return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	default:
		return anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: choice}}
	}
}

// fromAnthropicResponse converts an Anthropic response to our format.
func fromAnthropicResponse(resp *anthropic.Message) instruct.ChatCompletionResult {
	input := int(resp.Usage.InputTokens)
	output := int(resp.Usage.OutputTokens)

	result := instruct.ChatCompletionResult{
		FinishReason: string(resp.StopReason),
		Usage: instruct.TokenUsage{
			PromptTokens:     input,
			CompletionTokens: output,
			TotalTokens:      input + output,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, instruct.LLMToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: instruct.ArgumentPayload(block.Input),
			})
		}
	}

	return result
}
