package vision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"visionlex-server-go/internal/platform/config"
	"visionlex-server-go/internal/platform/errors"
)

func completionBody(content string) string {
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.VisionConfig{
		ModelName: "moonshot-v1-8k-vision-preview",
		BaseURL:   server.URL,
		APIKey:    "test-key",
		Timeout:   timeout,
	}, nil)
}

func TestAnalyzeParsesWellFormedPayload(t *testing.T) {
	content := `{"representative_word":"cat","example_sentence":"A cat sleeps.","explanation":"Look at the cat.\nIt sleeps a lot."}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(content)))
	}, 5*time.Second)

	result, err := client.Analyze(context.Background(), "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if result.RepresentativeWord != "cat" {
		t.Fatalf("unexpected word: %s", result.RepresentativeWord)
	}
	if result.ExampleSentence != "A cat sleeps." {
		t.Fatalf("unexpected sentence: %s", result.ExampleSentence)
	}
	want := []string{"Look at the cat.", "It sleeps a lot."}
	if len(result.ExplanationLines) != len(want) {
		t.Fatalf("unexpected explanation lines: %v", result.ExplanationLines)
	}
	for i := range want {
		if result.ExplanationLines[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, result.ExplanationLines[i], want[i])
		}
	}
}

func TestAnalyzeInvalidInnerJSONIsParseError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("The image shows a cat sleeping on a couch.")))
	}, 5*time.Second)

	result, err := client.Analyze(context.Background(), "data:image/png;base64,AAAA")
	if !errors.IsKind(err, errors.KindParse) {
		t.Fatalf("expected parse_error, got %v", err)
	}
	if result != nil {
		t.Fatalf("no result must be produced on parse failure")
	}
}

func TestAnalyzeMissingWordIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody(`{"example_sentence":"A cat."}`)))
	}, 5*time.Second)

	_, err := client.Analyze(context.Background(), "data:image/png;base64,AAAA")
	if !errors.IsKind(err, errors.KindMalformedResponse) {
		t.Fatalf("expected malformed_response, got %v", err)
	}
}

func TestAnalyzeEmptyChoicesIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}, 5*time.Second)

	_, err := client.Analyze(context.Background(), "data:image/png;base64,AAAA")
	if !errors.IsKind(err, errors.KindMalformedResponse) {
		t.Fatalf("expected malformed_response, got %v", err)
	}
}

func TestAnalyzeUpstreamErrorIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}, 5*time.Second)

	_, err := client.Analyze(context.Background(), "data:image/png;base64,AAAA")
	if !errors.IsKind(err, errors.KindAPI) {
		t.Fatalf("expected api_error, got %v", err)
	}
	if msg := errors.UserMessage(err); msg != "rate limited" {
		t.Fatalf("remote message should pass through, got %q", msg)
	}
}

func TestAnalyzeTimeoutIsDistinct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The context only cancels on disconnect once the body is consumed.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}, 60*time.Millisecond)

	_, err := client.Analyze(context.Background(), "data:image/png;base64,AAAA")
	if !errors.IsKind(err, errors.KindTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestAnalyzeCancellationIsDistinct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := client.Analyze(ctx, "data:image/png;base64,AAAA")
	if !errors.IsKind(err, errors.KindCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
	if errors.IsKind(err, errors.KindTimeout) {
		t.Fatalf("cancellation must not be reported as timeout")
	}
}

func TestAnalyzeWithoutKeyIsConfigError(t *testing.T) {
	client := NewClient(config.VisionConfig{Timeout: time.Second}, nil)
	if client.Configured() {
		t.Fatalf("client without key must report unconfigured")
	}

	_, err := client.Analyze(context.Background(), "data:image/png;base64,AAAA")
	if !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config_error, got %v", err)
	}
}
