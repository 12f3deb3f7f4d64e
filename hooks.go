package instruct

import (
	"context"
	"sync"
)

// PreprocessHook is called before every agent call of an extraction.
// It can modify the outgoing request, e.g. to add context messages.
type PreprocessHook func(ctx context.Context, req *PreprocessRequest) error

// PostprocessHook is called after every payload the agent returns, whether
// it decoded or not. Returning an error aborts the extraction.
type PostprocessHook func(ctx context.Context, req *PostprocessRequest) error

// PreprocessRequest contains data available before an agent call.
type PreprocessRequest struct {
	// RunID identifies the extraction.
	RunID string

	// Record is the record type being extracted.
	Record string

	// Attempt is the 1-based agent call number.
	Attempt int

	// Request is the outgoing agent request (can be modified by the hook).
	Request *ChatCompletionRequest

	// Metadata allows passing data between pre and post hooks.
	Metadata map[string]any
}

// PostprocessRequest contains data available after an agent call.
type PostprocessRequest struct {
	// RunID identifies the extraction.
	RunID string

	// Record is the record type being extracted.
	Record string

	// Attempt is the 1-based agent call number.
	Attempt int

	// Payload is the argument payload returned by the agent.
	Payload ArgumentPayload

	// Err is the decode error, nil when the payload decoded.
	Err error

	// TokensUsed is the token usage of this call.
	TokensUsed TokenUsage

	// Metadata from preprocessing.
	Metadata map[string]any
}

// HookRegistry manages pre/post processing hooks per record type.
type HookRegistry struct {
	mu          sync.RWMutex
	preprocess  map[string]PreprocessHook
	postprocess map[string]PostprocessHook
}

// NewHookRegistry creates a new hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		preprocess:  make(map[string]PreprocessHook),
		postprocess: make(map[string]PostprocessHook),
	}
}

// RegisterPreprocess registers a preprocessing hook for a record type.
func (r *HookRegistry) RegisterPreprocess(record string, hook PreprocessHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preprocess[record] = hook
}

// RegisterPostprocess registers a postprocessing hook for a record type.
func (r *HookRegistry) RegisterPostprocess(record string, hook PostprocessHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postprocess[record] = hook
}

// GetPreprocess returns the preprocessing hook for a record type.
func (r *HookRegistry) GetPreprocess(record string) (PreprocessHook, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	hook, ok := r.preprocess[record]
	return hook, ok
}

// GetPostprocess returns the postprocessing hook for a record type.
func (r *HookRegistry) GetPostprocess(record string) (PostprocessHook, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	hook, ok := r.postprocess[record]
	return hook, ok
}

// WithPreprocess is a fluent method to register a preprocessing hook.
func (r *HookRegistry) WithPreprocess(record string, hook PreprocessHook) *HookRegistry {
	r.RegisterPreprocess(record, hook)
	return r
}

// WithPostprocess is a fluent method to register a postprocessing hook.
func (r *HookRegistry) WithPostprocess(record string, hook PostprocessHook) *HookRegistry {
	r.RegisterPostprocess(record, hook)
	return r
}
