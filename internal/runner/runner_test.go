package runner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateReplyDemoEchoesUserText(t *testing.T) {
	t.Parallel()
	r := New()
	reply, err := r.GenerateReply(context.Background(), GenerateConfig{ProviderID: ProviderDemo}, "", []Message{
		{Role: "user", Text: "hello"},
		{Role: "assistant", Text: "ignored"},
		{Role: "user", Text: "world"},
	})
	if err != nil {
		t.Fatalf("generate reply failed: %v", err)
	}
	if reply != "Echo: hello world" {
		t.Fatalf("unexpected demo reply: %q", reply)
	}
}

func TestGenerateReplyDemoAnswersInstructionPrompts(t *testing.T) {
	t.Parallel()
	r := New()

	reply, err := r.GenerateReply(context.Background(), GenerateConfig{}, "Classify the request into one label.", []Message{{Role: "user", Text: "plan a trip"}})
	if err != nil {
		t.Fatalf("generate reply failed: %v", err)
	}
	if reply != "generic" {
		t.Fatalf("expected classification fallback, got=%q", reply)
	}

	reply, err = r.GenerateReply(context.Background(), GenerateConfig{}, "Return a JSON object of fields.", []Message{{Role: "user", Text: "plan a trip"}})
	if err != nil {
		t.Fatalf("generate reply failed: %v", err)
	}
	if reply != "{}" {
		t.Fatalf("expected empty extraction, got=%q", reply)
	}
}

func TestGenerateReplyRequiresModelForConfiguredProvider(t *testing.T) {
	t.Parallel()
	r := New()
	_, err := r.GenerateReply(context.Background(), GenerateConfig{ProviderID: ProviderOpenAI}, "", []Message{{Role: "user", Text: "hi"}})
	var runnerErr *RunnerError
	if !errors.As(err, &runnerErr) {
		t.Fatalf("expected runner error, got=%v", err)
	}
	if runnerErr.Code != ErrorCodeProviderNotConfigured {
		t.Fatalf("expected provider_not_configured, got=%q", runnerErr.Code)
	}
}

func TestGenerateReplyOpenAICompatible(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"a reply"}}]}`))
	}))
	defer server.Close()

	r := New()
	reply, err := r.GenerateReply(context.Background(), GenerateConfig{
		ProviderID: ProviderOpenAI,
		Model:      "gpt-4o-mini",
		APIKey:     "sk-test",
		BaseURL:    server.URL,
	}, "you are helpful", []Message{{Role: "user", Text: "hi"}})
	if err != nil {
		t.Fatalf("generate reply failed: %v", err)
	}
	if reply != "a reply" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestGenerateReplyOpenAICompatibleSurfacesProviderStatus(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	r := New()
	_, err := r.GenerateReply(context.Background(), GenerateConfig{
		ProviderID: ProviderOpenAI,
		Model:      "gpt-4o-mini",
		APIKey:     "sk-test",
		BaseURL:    server.URL,
	}, "", []Message{{Role: "user", Text: "hi"}})
	var runnerErr *RunnerError
	if !errors.As(err, &runnerErr) {
		t.Fatalf("expected runner error, got=%v", err)
	}
	if runnerErr.Code != ErrorCodeProviderRequestFailed {
		t.Fatalf("expected provider_request_failed, got=%q", runnerErr.Code)
	}
}
