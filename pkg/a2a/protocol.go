// Package a2a implements the agent-to-agent (A2A) wire protocol: a JSON-RPC 2.0
// envelope carried over HTTP, plus the agent card used for capability discovery.
// Every agent mounted in the pool speaks this protocol regardless of how it is
// implemented internally.
package a2a

import (
	"context"
	"encoding/json"
	"fmt"
)

// Version is the only accepted value of the "jsonrpc" envelope field.
const Version = "2.0"

// ============================================================================
// REQUEST / RESPONSE ENVELOPE
// ============================================================================

// Request is an inbound A2A request envelope.
//
// ID is kept as raw JSON so that any correlation value a caller chooses
// (number, string) is echoed back byte-for-byte. An absent ID is distinguished
// from an explicit null: both are invalid, but absence is the common caller bug.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  map[string]any  `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Validate checks the envelope invariants: version literal "2.0", a non-empty
// method, and a present, non-null id. Violations map to InvalidRequest (-32600)
// at the transport boundary.
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("jsonrpc must be %q, got %q", Version, r.JSONRPC)
	}
	if r.Method == "" {
		return fmt.Errorf("method is required")
	}
	if len(r.ID) == 0 || string(r.ID) == "null" {
		return fmt.Errorf("id is required")
	}
	return nil
}

// Response is an outbound A2A response envelope. Exactly one of Result or
// Error is populated; use NewResultResponse / NewErrorResponse to construct.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// NewResultResponse builds a success envelope. The result value is marshaled
// eagerly so that encoding failures surface as an internal error instead of a
// torn response body.
func NewResultResponse(id json.RawMessage, result any) (*Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &Response{JSONRPC: Version, Result: data, ID: normalizeID(id)}, nil
}

// NewErrorResponse builds an error envelope. A nil id is encoded as null, as
// required when the request id could not be recovered.
func NewErrorResponse(id json.RawMessage, rpcErr *Error) *Response {
	return &Response{JSONRPC: Version, Error: rpcErr, ID: normalizeID(id)}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// ============================================================================
// AGENT CARD
// ============================================================================

// AgentCard is the capability descriptor an agent exposes for discovery.
// Capabilities lists the JSON-RPC method names the agent dispatches, in the
// order the agent advertises them.
type AgentCard struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Version      string   `json:"version,omitempty"`
	Capabilities []string `json:"capabilities"`
	Endpoint     string   `json:"endpoint,omitempty"`
}

// ============================================================================
// HANDLER CONTRACT
// ============================================================================

// CardProvider exposes an agent's card for discovery.
type CardProvider interface {
	Card() *AgentCard
}

// Dispatcher executes a single A2A method call. Params is the open mapping
// from the request envelope; implementations typically decode it into a typed
// argument struct. A returned *Error is surfaced verbatim to the caller; any
// other error is masked as an internal fault by the router.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, params map[string]any) (any, error)
}

// Prober reports agent liveness. A nil return means healthy.
type Prober interface {
	Probe(ctx context.Context) error
}

// Handler is the runtime unit produced by loading an agent module: it can
// describe itself, dispatch requests, and answer liveness probes.
type Handler interface {
	CardProvider
	Dispatcher
	Prober
}
