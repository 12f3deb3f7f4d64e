package instruct

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Client runs extractions against an agent: it advertises a record type as a
// tool, calls the agent and decodes the returned arguments.
type Client struct {
	config Config
	llm    LLMClient
	hooks  *HookRegistry
	logger *slog.Logger
}

// New creates a new Client.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: cfg,
		llm:    cfg.LLMClient,
		hooks:  cfg.Hooks,
		logger: cfg.Logger,
	}, nil
}

// Request describes a single extraction.
type Request struct {
	// Messages is the conversation sent to the agent. Required.
	Messages []LLMMessage

	// Model overrides Config.Model.
	Model string

	// ToolName overrides the record name as the advertised tool name.
	ToolName string

	// ToolDescription overrides the record description.
	ToolDescription string
}

// RecordResult is the outcome of ExtractRecord.
//
// Invoked is false when the agent answered without calling the tool; Text then
// holds its reply and Values is nil. That outcome is not an error.
type RecordResult struct {
	RunID    string
	Invoked  bool
	Values   Values
	Text     string
	Attempts int
	Usage    TokenUsage
	Duration time.Duration
}

// Err returns ErrNoToolInvoked for the no-tool outcome and nil otherwise.
func (r RecordResult) Err() error {
	if !r.Invoked {
		return ErrNoToolInvoked
	}
	return nil
}

// Result is the outcome of Extract. See RecordResult for the meaning of Invoked.
type Result[T any] struct {
	RunID    string
	Invoked  bool
	Value    T
	Text     string
	Attempts int
	Usage    TokenUsage
	Duration time.Duration
}

// Err returns ErrNoToolInvoked for the no-tool outcome and nil otherwise.
func (r Result[T]) Err() error {
	if !r.Invoked {
		return ErrNoToolInvoked
	}
	return nil
}

// ExtractRecord runs an extraction for an untyped record type.
func (c *Client) ExtractRecord(ctx context.Context, rt RecordType, req Request) (RecordResult, error) {
	var values Values
	out, err := c.run(ctx, rt, req, func(payload ArgumentPayload) error {
		v, err := DecodeArguments(rt, payload)
		if err != nil {
			return err
		}
		values = v
		return nil
	})

	if err == nil && out.Invoked {
		out.Values = values
	}
	return out, err
}

// Extract runs an extraction for a typed model and returns a populated T.
func Extract[T any](ctx context.Context, c *Client, m *Model[T], req Request) (Result[T], error) {
	var value T
	out, err := c.run(ctx, m.RecordType(), req, func(payload ArgumentPayload) error {
		v, err := m.Decode(payload)
		if err != nil {
			return err
		}
		value = v
		return nil
	})

	res := Result[T]{
		RunID:    out.RunID,
		Invoked:  out.Invoked,
		Text:     out.Text,
		Attempts: out.Attempts,
		Usage:    out.Usage,
		Duration: out.Duration,
	}
	if err == nil && res.Invoked {
		res.Value = value
	}
	return res, err
}

// run calls the agent until the payload decodes, the agent stops calling the
// tool, or MaxRetries calls have been made. The latest decode or validation
// failure is appended to the caller's messages as a user message on the next
// call; earlier failures are not repeated.
func (c *Client) run(ctx context.Context, rt RecordType, req Request, decode func(ArgumentPayload) error) (RecordResult, error) {
	start := time.Now()
	out := RecordResult{RunID: uuid.New().String()}

	if len(req.Messages) == 0 {
		return out, fmt.Errorf("%w: messages are required", ErrInvalidInput)
	}

	tool, err := BuildToolDescriptor(rt, req.ToolName, req.ToolDescription)
	if err != nil {
		return out, err
	}

	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	toolChoice := ToolChoiceAuto
	if c.config.ForceToolChoice {
		toolChoice = tool.Name
	}

	metadata := make(map[string]any)

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		out.Attempts = attempt

		// Every attempt starts from the caller's messages; only the latest
		// decode error is fed back.
		messages := make([]LLMMessage, len(req.Messages), len(req.Messages)+1)
		copy(messages, req.Messages)
		if lastErr != nil {
			messages = append(messages, LLMMessage{
				Role:    RoleUser,
				Content: feedbackMessage(lastErr),
			})
		}

		c.logger.Debug("calling agent",
			slog.String("run_id", out.RunID),
			slog.String("tool", tool.Name),
			slog.String("model", model),
			slog.Int("attempt", attempt),
			slog.Int("messages", len(messages)),
		)

		chatReq := ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			Tools:       []ToolDescriptor{tool},
			ToolChoice:  toolChoice,
			Temperature: c.config.Temperature,
			MaxTokens:   c.config.MaxTokens,
		}
		if hook, ok := c.hooks.GetPreprocess(rt.Name); ok {
			if err := hook(ctx, &PreprocessRequest{
				RunID:    out.RunID,
				Record:   rt.Name,
				Attempt:  attempt,
				Request:  &chatReq,
				Metadata: metadata,
			}); err != nil {
				out.Duration = time.Since(start)
				return out, fmt.Errorf("preprocess hook failed: %w", err)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		result, err := c.llm.ChatCompletion(callCtx, chatReq)
		cancel()
		if err != nil {
			out.Duration = time.Since(start)
			return out, fmt.Errorf("chat completion failed: %w", err)
		}
		out.Usage = out.Usage.Add(result.Usage)

		payload, ok := FindToolCall(result, tool.Name)
		if !ok {
			c.logger.Info("agent did not invoke tool",
				slog.String("run_id", out.RunID),
				slog.String("tool", tool.Name),
				slog.String("finish_reason", result.FinishReason),
			)
			out.Invoked = false
			out.Text = result.Content
			out.Duration = time.Since(start)
			return out, nil
		}
		out.Invoked = true

		err = decode(payload)
		if hook, ok := c.hooks.GetPostprocess(rt.Name); ok {
			if hookErr := hook(ctx, &PostprocessRequest{
				RunID:      out.RunID,
				Record:     rt.Name,
				Attempt:    attempt,
				Payload:    payload,
				Err:        err,
				TokensUsed: result.Usage,
				Metadata:   metadata,
			}); hookErr != nil {
				out.Duration = time.Since(start)
				return out, fmt.Errorf("postprocess hook failed: %w", hookErr)
			}
		}
		if err == nil {
			out.Duration = time.Since(start)
			c.logger.Debug("tool arguments decoded",
				slog.String("run_id", out.RunID),
				slog.String("tool", tool.Name),
				slog.Int("attempts", attempt),
				slog.Int("total_tokens", out.Usage.TotalTokens),
			)
			return out, nil
		}
		if !IsRecoverable(err) {
			out.Duration = time.Since(start)
			return out, err
		}

		lastErr = err
		c.logger.Warn("tool arguments rejected",
			slog.String("run_id", out.RunID),
			slog.String("tool", tool.Name),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	out.Duration = time.Since(start)
	return out, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, out.Attempts, lastErr)
}

func feedbackMessage(err error) string {
	return fmt.Sprintf("Validation Error: %v. Please fix the issue", err)
}
