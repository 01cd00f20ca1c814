package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Operation is the routing key of an inbound proxy request.
type Operation string

const (
	// OpRawSearch passes an arbitrary query through to the search backend.
	OpRawSearch Operation = "rawSearch"
	// OpAsk runs the retrieval pipeline and optionally synthesizes an answer.
	OpAsk Operation = "ask"
	// OpTest returns a liveness message without touching any backend.
	OpTest Operation = "test"
)

// Request is one of the disjoint per-operation request variants.
type Request interface {
	Op() Operation
}

// RawSearchRequest is a passthrough query against the search backend.
type RawSearchRequest struct {
	Method string          `json:"method"`
	Index  string          `json:"index"`
	Path   string          `json:"path"`
	Query  json.RawMessage `json:"query"`
	Body   json.RawMessage `json:"body"`
	Config *ConfigOverride `json:"searchConfig"`
}

// Op implements Request.
func (*RawSearchRequest) Op() Operation { return OpRawSearch }

// EffectiveMethod returns the HTTP verb for the passthrough, defaulting to POST.
func (r *RawSearchRequest) EffectiveMethod() string {
	if r.Method == "" {
		return http.MethodPost
	}
	return strings.ToUpper(r.Method)
}

// EffectivePath returns the request path, defaulting to /{index}/_search with
// the index taken from the request or the resolved configuration. Returns the
// empty string when neither a path nor any index is available.
func (r *RawSearchRequest) EffectivePath(cfg SearchConfig) string {
	if r.Path != "" {
		return r.Path
	}
	index := r.Index
	if index == "" {
		index = cfg.Index
	}
	if index == "" {
		return ""
	}
	return "/" + url.PathEscape(index) + "/_search"
}

// DefaultQuery is the payload used when a POST passthrough supplies neither
// body nor query.
var DefaultQuery = []byte(`{"query":{"match_all":{}}}`)

// EffectiveBody returns the payload to transmit: body wins over query. Nil
// means no payload was given. A JSON string value is unwrapped and sent as
// raw bytes.
func (r *RawSearchRequest) EffectiveBody() []byte {
	if len(r.Body) > 0 {
		return unwrapString(r.Body)
	}
	if len(r.Query) > 0 {
		return unwrapString(r.Query)
	}
	return nil
}

func unwrapString(raw json.RawMessage) []byte {
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return []byte(s)
		}
	}
	return raw
}

// AskRequest is a retrieval-augmented-generation query.
type AskRequest struct {
	Question       string          `json:"question"`
	GenerateAnswer bool            `json:"generateAnswer"`
	TopK           int             `json:"topK"`
	Config         *ConfigOverride `json:"searchConfig"`
}

// Op implements Request.
func (*AskRequest) Op() Operation { return OpAsk }

// TestRequest is a liveness probe.
type TestRequest struct{}

// Op implements Request.
func (*TestRequest) Op() Operation { return OpTest }

// ParseRequest decodes the inbound JSON object into the request variant
// selected by its operation tag.
func ParseRequest(raw []byte) (Request, error) {
	var envelope struct {
		Operation Operation `json:"operation"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", ErrValidation)
	}
	if envelope.Operation == "" {
		return nil, fmt.Errorf("operation parameter is required: %w", ErrValidation)
	}

	switch envelope.Operation {
	case OpRawSearch:
		var req RawSearchRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("invalid rawSearch request: %v: %w", err, ErrValidation)
		}
		return &req, nil
	case OpAsk:
		var req AskRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("invalid ask request: %v: %w", err, ErrValidation)
		}
		return &req, nil
	case OpTest:
		return &TestRequest{}, nil
	default:
		return nil, ErrUnsupportedOperation
	}
}
