package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nodus-ai/agentpool/pkg/a2a"
)

// maxBodyBytes bounds A2A request bodies.
const maxBodyBytes = 4 << 20

// handleA2A is the POST /{agent}/a2a endpoint: it validates the JSON-RPC
// envelope, forwards the call to the mounted handler, and guarantees the
// caller always receives a well-formed envelope no matter how the handler
// fails. The handler reference is read once, so the whole request runs
// against a single mount generation.
func (s *Server) handleA2A(w http.ResponseWriter, r *http.Request) {
	agentName := chi.URLParam(r, "agent")

	entry, ok := s.table.Get(agentName)
	if !ok || !entry.Routable() {
		s.respondNotFound(w, agentName)
		return
	}
	handler := entry.Handler

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.metrics.ObserveDispatch(agentName, "invalid_request")
		s.respondEnvelope(w, a2a.NewErrorResponse(nil,
			a2a.NewError(a2a.CodeInvalidRequest, "invalid request: unreadable body")))
		return
	}

	var req a2a.Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.metrics.ObserveDispatch(agentName, "invalid_request")
		s.respondEnvelope(w, a2a.NewErrorResponse(nil,
			a2a.NewError(a2a.CodeInvalidRequest, "invalid request: malformed JSON")))
		return
	}

	if err := req.Validate(); err != nil {
		s.metrics.ObserveDispatch(agentName, "invalid_request")
		s.respondEnvelope(w, a2a.NewErrorResponse(req.ID,
			a2a.NewError(a2a.CodeInvalidRequest, "invalid request: "+err.Error())))
		return
	}

	params := req.Params
	if params == nil {
		params = map[string]any{}
	}

	result, dispatchErr := dispatch(r.Context(), handler, req.Method, params)

	switch {
	case dispatchErr == nil:
		resp, err := a2a.NewResultResponse(req.ID, result)
		if err != nil {
			slog.Error("Failed to encode dispatch result", "agent", agentName, "method", req.Method, "error", err)
			s.metrics.ObserveDispatch(agentName, "internal_error")
			s.respondEnvelope(w, a2a.NewErrorResponse(req.ID,
				a2a.NewError(a2a.CodeInternalError, "internal error")))
			return
		}
		s.metrics.ObserveDispatch(agentName, "ok")
		s.respondEnvelope(w, resp)

	default:
		var rpcErr *a2a.Error
		if errors.As(dispatchErr, &rpcErr) {
			// Agent-level errors are surfaced verbatim.
			s.metrics.ObserveDispatch(agentName, "rpc_error")
			s.respondEnvelope(w, a2a.NewErrorResponse(req.ID, rpcErr))
			return
		}

		// Unexpected fault: isolate it here, expose no internal detail.
		slog.Error("Agent dispatch fault", "agent", agentName, "method", req.Method, "error", dispatchErr)
		s.metrics.ObserveDispatch(agentName, "internal_error")
		s.respondEnvelope(w, a2a.NewErrorResponse(req.ID,
			a2a.NewError(a2a.CodeInternalError, "internal error")))
	}
}

// dispatch invokes the handler with panic containment: a crashing agent must
// not take down the pool or leak across agent boundaries.
func dispatch(ctx context.Context, handler a2a.Handler, method string, params map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("dispatch panicked: %v", r)
		}
	}()
	return handler.Dispatch(ctx, method, params)
}

// respondEnvelope writes a JSON-RPC envelope. Envelope-level errors are still
// HTTP 200: the transport worked, the failure is inside the protocol.
func (s *Server) respondEnvelope(w http.ResponseWriter, resp *a2a.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
