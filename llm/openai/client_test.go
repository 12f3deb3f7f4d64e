package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	oai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	instruct "github.com/ourstudio-se/ai-instruct-sdk"
	"github.com/ourstudio-se/ai-instruct-sdk/llm/openai"
)

type mockChatClient struct {
	captured oai.ChatCompletionRequest
	response oai.ChatCompletionResponse
	err      error
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req oai.ChatCompletionRequest) (oai.ChatCompletionResponse, error) {
	m.captured = req
	return m.response, m.err
}

func userInfoTool(t *testing.T) instruct.ToolDescriptor {
	t.Helper()
	tool, err := instruct.BuildToolDescriptor(instruct.RecordType{
		Name:        "UserInfo",
		Description: "Information about a user",
		Fields: []instruct.FieldSpec{
			{Name: "name", Type: instruct.TagString, Required: true},
			{Name: "age", Type: instruct.TagUint8, Required: true},
		},
	}, "", "")
	require.NoError(t, err)
	return tool
}

func TestClientChatCompletion(t *testing.T) {
	mock := &mockChatClient{
		response: oai.ChatCompletionResponse{
			Choices: []oai.ChatCompletionChoice{
				{
					FinishReason: oai.FinishReasonToolCalls,
					Message: oai.ChatCompletionMessage{
						Role: oai.ChatMessageRoleAssistant,
						ToolCalls: []oai.ToolCall{
							{
								ID:   "call_1",
								Type: oai.ToolTypeFunction,
								Function: oai.FunctionCall{
									Name:      "UserInfo",
									Arguments: `{"name":"John Doe","age":30}`,
								},
							},
						},
					},
				},
			},
			Usage: oai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}
	client := openai.New(mock)

	res, err := client.ChatCompletion(context.Background(), instruct.ChatCompletionRequest{
		Model: "gpt-4o",
		Messages: []instruct.LLMMessage{
			{Role: instruct.RoleSystem, Content: "Extract the user."},
			{Role: instruct.RoleUser, Content: "John Doe is 30"},
		},
		Tools:       []instruct.ToolDescriptor{userInfoTool(t)},
		ToolChoice:  instruct.ToolChoiceAuto,
		Temperature: 0.2,
		MaxTokens:   256,
	})
	require.NoError(t, err)

	require.Len(t, res.ToolCalls, 1)
	require.Equal(t, "call_1", res.ToolCalls[0].ID)
	require.Equal(t, "UserInfo", res.ToolCalls[0].Name)
	require.JSONEq(t, `{"name":"John Doe","age":30}`, res.ToolCalls[0].Arguments.String())
	require.Equal(t, "tool_calls", res.FinishReason)
	require.Equal(t, 15, res.Usage.TotalTokens)

	req := mock.captured
	require.Equal(t, "gpt-4o", req.Model)
	require.Equal(t, float32(0.2), req.Temperature)
	require.Equal(t, 256, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	require.Equal(t, oai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Equal(t, oai.ChatMessageRoleUser, req.Messages[1].Role)
	require.Equal(t, "auto", req.ToolChoice)

	require.Len(t, req.Tools, 1)
	require.Equal(t, oai.ToolTypeFunction, req.Tools[0].Type)
	require.Equal(t, "UserInfo", req.Tools[0].Function.Name)

	params, err := json.Marshal(req.Tools[0].Function.Parameters)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "This is a name property that belongs to the object"},
			"age": {"type": "number", "description": "This is a age property that belongs to the object"}
		},
		"required": ["name", "age"]
	}`, string(params))
}

func TestClientChatCompletionForcedTool(t *testing.T) {
	mock := &mockChatClient{
		response: oai.ChatCompletionResponse{
			Choices: []oai.ChatCompletionChoice{{Message: oai.ChatCompletionMessage{Content: "ok"}}},
		},
	}
	client := openai.New(mock)

	res, err := client.ChatCompletion(context.Background(), instruct.ChatCompletionRequest{
		Model:      "gpt-4o",
		Messages:   []instruct.LLMMessage{{Role: instruct.RoleUser, Content: "hi"}},
		Tools:      []instruct.ToolDescriptor{userInfoTool(t)},
		ToolChoice: "UserInfo",
	})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Content)
	require.Empty(t, res.ToolCalls)

	choice, ok := mock.captured.ToolChoice.(oai.ToolChoice)
	require.True(t, ok)
	require.Equal(t, oai.ToolTypeFunction, choice.Type)
	require.Equal(t, "UserInfo", choice.Function.Name)
}

func TestClientChatCompletionWithoutTools(t *testing.T) {
	mock := &mockChatClient{
		response: oai.ChatCompletionResponse{
			Choices: []oai.ChatCompletionChoice{{Message: oai.ChatCompletionMessage{Content: "hello"}}},
		},
	}

	_, err := openai.New(mock).ChatCompletion(context.Background(), instruct.ChatCompletionRequest{
		Messages: []instruct.LLMMessage{{Role: instruct.RoleAssistant, Content: "hi"}},
	})
	require.NoError(t, err)
	require.Nil(t, mock.captured.Tools)
	require.Nil(t, mock.captured.ToolChoice)
	require.Equal(t, oai.ChatMessageRoleAssistant, mock.captured.Messages[0].Role)
}

func TestClientChatCompletionErrors(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		mock := &mockChatClient{err: errors.New("boom")}

		_, err := openai.New(mock).ChatCompletion(context.Background(), instruct.ChatCompletionRequest{})
		require.ErrorContains(t, err, "boom")
	})

	t.Run("no choices", func(t *testing.T) {
		mock := &mockChatClient{}

		_, err := openai.New(mock).ChatCompletion(context.Background(), instruct.ChatCompletionRequest{})
		require.ErrorContains(t, err, "no choices")
	})
}

func TestNewFromAPIKey(t *testing.T) {
	_, err := openai.NewFromAPIKey("")
	require.Error(t, err)

	client, err := openai.NewFromAPIKey("sk-test")
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestNewOpenRouter(t *testing.T) {
	_, err := openai.NewOpenRouter(openai.OpenRouterConfig{})
	require.Error(t, err)

	client, err := openai.NewOpenRouter(openai.OpenRouterConfig{APIKey: "or-test", SiteName: "tests"})
	require.NoError(t, err)
	require.NotNil(t, client)
}
