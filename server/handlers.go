package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	instruct "github.com/ourstudio-se/ai-instruct-sdk"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeValidation       = "validation_error"
	codeNotFound         = "not_found"
	codeMalformedPayload = "malformed_payload"
	codeMissingField     = "missing_field"
	codeTypeMismatch     = "type_mismatch"
	codeOutOfRange       = "value_out_of_range"
	codeRejected         = "validation_failed"
	codeInvalidRecord    = "invalid_record"
	codeNotImplemented   = "not_implemented"
	codeUpstream         = "upstream_error"
	codeTooLarge         = "request_too_large"
	codeInternal         = "internal_error"
)

// ErrorResponse is the HTTP error response body.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// DecodeResponse is the response body of the decode endpoint.
type DecodeResponse struct {
	Record string          `json:"record"`
	Values instruct.Values `json:"values"`
}

// ExtractRequest is the request body of the extract endpoint.
type ExtractRequest struct {
	Messages        []instruct.LLMMessage `json:"messages"`
	Model           string                `json:"model,omitempty"`
	ToolName        string                `json:"toolName,omitempty"`
	ToolDescription string                `json:"toolDescription,omitempty"`
}

// ExtractResponse is the response body of the extract endpoint. When Invoked
// is false the agent answered with Text instead of calling the tool.
type ExtractResponse struct {
	RunID      string              `json:"runId"`
	Record     string              `json:"record"`
	Invoked    bool                `json:"invoked"`
	Values     instruct.Values     `json:"values,omitempty"`
	Text       string              `json:"text,omitempty"`
	Attempts   int                 `json:"attempts"`
	TokensUsed instruct.TokenUsage `json:"tokensUsed"`
	DurationMs int64               `json:"durationMs"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) listRecordsHandler(w http.ResponseWriter, r *http.Request) {
	tools, err := s.registry.Tools()
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": tools})
}

func (s *Server) getRecordHandler(w http.ResponseWriter, r *http.Request) {
	rt, err := s.registry.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rt)
}

func (s *Server) schemaHandler(w http.ResponseWriter, r *http.Request) {
	rt, err := s.registry.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	doc, err := instruct.CompileSchema(rt)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// decodeHandler decodes the request body as an argument payload. With
// ?strict=true the payload is first checked by the JSON Schema engine.
func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	rt, err := s.registry.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	payload := instruct.ArgumentPayload(body)

	if r.URL.Query().Get("strict") == "true" {
		doc, err := instruct.CompileSchema(rt)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		if err := doc.ValidatePayload(payload); err != nil {
			if errors.Is(err, instruct.ErrMalformedPayload) {
				s.handleError(w, r, err)
				return
			}
			writeError(w, http.StatusUnprocessableEntity, err.Error(), codeValidation, nil)
			return
		}
	}

	values, err := instruct.DecodeArguments(rt, payload)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DecodeResponse{Record: rt.Name, Values: values})
}

func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if s.client == nil {
		writeError(w, http.StatusNotImplemented, "extraction is not configured", codeNotImplemented, nil)
		return
	}

	rt, err := s.registry.Lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", codeValidation, nil)
		return
	}

	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required", codeValidation, nil)
		return
	}

	res, err := s.client.ExtractRecord(r.Context(), rt, instruct.Request{
		Messages:        req.Messages,
		Model:           req.Model,
		ToolName:        req.ToolName,
		ToolDescription: req.ToolDescription,
	})
	if err != nil {
		if errors.Is(err, instruct.ErrRetriesExhausted) || errors.Is(err, instruct.ErrInvalidInput) {
			s.handleError(w, r, err)
			return
		}
		s.logger.Error("extraction failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("record", rt.Name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, err.Error(), codeUpstream, nil)
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		RunID:      res.RunID,
		Record:     rt.Name,
		Invoked:    res.Invoked,
		Values:     res.Values,
		Text:       res.Text,
		Attempts:   res.Attempts,
		TokensUsed: res.Usage,
		DurationMs: res.Duration.Milliseconds(),
	})
}

// handleError maps the error taxonomy to HTTP responses.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErr *instruct.FieldError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error(), codeTooLarge, nil)
	case errors.Is(err, instruct.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err.Error(), codeNotFound, nil)
	case errors.Is(err, instruct.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, err.Error(), codeMalformedPayload, nil)
	case errors.As(err, &fieldErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), fieldErrorCode(fieldErr), map[string]any{
			"field":    fieldErr.Field,
			"expected": fieldErr.Expected,
			"actual":   fieldErr.Actual,
		})
	case errors.Is(err, instruct.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), codeRejected, nil)
	case errors.Is(err, instruct.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error(), codeValidation, nil)
	case errors.Is(err, instruct.ErrInvalidTypeTag),
		errors.Is(err, instruct.ErrInvalidRecord),
		errors.Is(err, instruct.ErrDuplicateField):
		s.logger.Error("invalid record definition",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error(), codeInvalidRecord, nil)
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), codeInternal, nil)
	}
}

func fieldErrorCode(err *instruct.FieldError) string {
	switch {
	case errors.Is(err.Err, instruct.ErrMissingField):
		return codeMissingField
	case errors.Is(err.Err, instruct.ErrTypeMismatch):
		return codeTypeMismatch
	default:
		return codeOutOfRange
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
