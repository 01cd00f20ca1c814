package domain

import "time"

// AskResponse is the success payload of the ask operation.
type AskResponse struct {
	Chunks []RetrievedChunk `json:"chunks"`
	Answer string           `json:"answer,omitempty"`
}

// ErrorResponse is the uniform failure payload. The error key is the primary
// discriminant; kind carries the taxonomy class.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// TestResponse is the payload of the test operation.
type TestResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Endpoint  string    `json:"endpoint"`
	Region    string    `json:"region"`
}
