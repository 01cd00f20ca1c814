package searchproxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestAsk(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		_, _ = w.Write([]byte(`{"chunks":[{"content":"c1","score":0.9,"page_indices":[]}],"answer":"the answer"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithAPIKey("secret"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := c.Ask(context.Background(), "what?", &AskOptions{GenerateAnswer: true, TopK: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/v1/proxy" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotPayload["operation"] != "ask" || gotPayload["question"] != "what?" {
		t.Errorf("payload = %v", gotPayload)
	}
	if gotPayload["generateAnswer"] != true {
		t.Error("generateAnswer not sent")
	}
	if result.Answer != "the answer" {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.Chunks) != 1 || result.Chunks[0].Content != "c1" {
		t.Errorf("chunks = %v", result.Chunks)
	}
}

func TestAsk_BodyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"missing required configuration: endpoint","kind":"configuration"}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)

	_, err := c.Ask(context.Background(), "what?", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err type = %T, want *APIError", err)
	}
	if apiErr.Kind != "configuration" {
		t.Errorf("kind = %q", apiErr.Kind)
	}
}

func TestRawSearch_Verbatim(t *testing.T) {
	backendJSON := `{"took":2,"hits":{"total":{"value":7}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		if payload["operation"] != "rawSearch" {
			t.Errorf("operation = %v", payload["operation"])
		}
		if payload["method"] != "GET" {
			t.Errorf("method = %v", payload["method"])
		}
		_, _ = w.Write([]byte(backendJSON))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)

	out, err := c.RawSearch(context.Background(), RawSearchRequest{
		Method: "GET",
		Path:   "/docs/_doc/1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != backendJSON {
		t.Errorf("out = %s", out)
	}
}

func TestInvoke_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)

	_, err := c.Invoke(context.Background(), map[string]any{"operation": "test"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err should wrap *APIError, got %v", err)
	}
}
