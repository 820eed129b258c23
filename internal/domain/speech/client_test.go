package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"visionlex-server-go/internal/platform/config"
	"visionlex-server-go/internal/platform/errors"
)

func testTTSConfig(url string) config.TTSConfig {
	return config.TTSConfig{
		BaseURL: url,
		AppID:   "app",
		Token:   "token",
		Cluster: "cluster",
		Voice:   "BV001",
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client := NewClient(testTTSConfig("http://unused"), NewRegistry(), nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := client.Synthesize(context.Background(), text)
		if !errors.IsKind(err, errors.KindEmptyInput) {
			t.Fatalf("%q: expected empty_input, got %v", text, err)
		}
	}
}

func TestSynthesizeRequiresAllCredentials(t *testing.T) {
	cfg := testTTSConfig("http://unused")
	cfg.Cluster = ""
	client := NewClient(cfg, NewRegistry(), nil)

	_, err := client.Synthesize(context.Background(), "A cat sleeps.")
	if !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config_error, got %v", err)
	}
}

func TestSynthesizeCancellationIsNotAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The context only cancels on disconnect once the body is consumed.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(testTTSConfig(server.URL), NewRegistry(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := client.Synthesize(ctx, "A cat sleeps.")
	if !errors.IsKind(err, errors.KindCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestSynthesizeSuccess(t *testing.T) {
	audio := []byte{0x4F, 0x67, 0x67, 0x53, 1, 2, 3, 4}

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer;token" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"data": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	defer server.Close()

	registry := NewRegistry()
	client := NewClient(testTTSConfig(server.URL), registry, nil)

	handle, err := client.Synthesize(context.Background(), "A cat sleeps.")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !bytes.Equal(handle.Bytes(), audio) {
		t.Fatalf("decoded audio mismatch")
	}
	if handle.MIME() != "audio/mp3" {
		t.Fatalf("unexpected mime: %s", handle.MIME())
	}

	if _, ok := registry.Lookup(handle.ID()); !ok {
		t.Fatalf("handle must be resolvable while live")
	}

	app := captured["app"].(map[string]any)
	if app["appid"] != "app" || app["cluster"] != "cluster" {
		t.Fatalf("unexpected app payload: %v", app)
	}
	audioParams := captured["audio"].(map[string]any)
	if audioParams["encoding"] != "ogg_opus" || audioParams["emotion"] != "happy" {
		t.Fatalf("unexpected audio payload: %v", audioParams)
	}
	if audioParams["rate"].(float64) != 24000 {
		t.Fatalf("unexpected sample rate: %v", audioParams["rate"])
	}
	reqParams := captured["request"].(map[string]any)
	if reqParams["text"] != "A cat sleeps." || reqParams["reqid"] == "" {
		t.Fatalf("unexpected request payload: %v", reqParams)
	}
	user := captured["user"].(map[string]any)
	if user["uid"] != "visionlex_user" {
		t.Fatalf("unexpected uid: %v", user["uid"])
	}
}

func TestSynthesizeUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid cluster"}`))
	}))
	defer server.Close()

	client := NewClient(testTTSConfig(server.URL), NewRegistry(), nil)
	_, err := client.Synthesize(context.Background(), "hello")
	if !errors.IsKind(err, errors.KindAPI) {
		t.Fatalf("expected api_error, got %v", err)
	}
	if msg := errors.UserMessage(err); msg != "invalid cluster" {
		t.Fatalf("upstream message should pass through, got %q", msg)
	}
}

func TestSynthesizeMissingDataIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok but empty"}`))
	}))
	defer server.Close()

	client := NewClient(testTTSConfig(server.URL), NewRegistry(), nil)
	_, err := client.Synthesize(context.Background(), "hello")
	if !errors.IsKind(err, errors.KindMalformedResponse) {
		t.Fatalf("expected malformed_response, got %v", err)
	}
}

func TestSynthesizeBadBase64IsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":"%%not-base64%%"}`))
	}))
	defer server.Close()

	client := NewClient(testTTSConfig(server.URL), NewRegistry(), nil)
	_, err := client.Synthesize(context.Background(), "hello")
	if !errors.IsKind(err, errors.KindDecode) {
		t.Fatalf("expected decode_error, got %v", err)
	}
}

func TestHandleReleaseIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	handle := registry.Register([]byte{1, 2, 3}, "audio/mp3")

	handle.Release()
	if _, ok := registry.Lookup(handle.ID()); ok {
		t.Fatalf("released handle must not resolve")
	}
	// Second release must be a no-op, not a panic or double-free.
	handle.Release()
}

func TestRegistryCloseReleasesEverything(t *testing.T) {
	registry := NewRegistry()
	a := registry.Register([]byte{1}, "audio/mp3")
	b := registry.Register([]byte{2}, "audio/mp3")

	registry.Close()
	if _, ok := registry.Lookup(a.ID()); ok {
		t.Fatalf("handle a still live after Close")
	}
	if _, ok := registry.Lookup(b.ID()); ok {
		t.Fatalf("handle b still live after Close")
	}
}
