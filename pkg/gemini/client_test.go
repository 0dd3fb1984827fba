package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"EmoFace/pkg/retry"

	"google.golang.org/genai"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func TestParseDetectResponseStripsCodeFence(t *testing.T) {
	resp := textResponse("```json\n{\"dominant_emotion\": \"happy\", \"confidence\": 0.92, \"all_scores\": {\"happy\": 0.92, \"neutral\": 0.05}}\n```")
	result, err := parseDetectResponse(resp)
	if err != nil {
		t.Fatalf("parseDetectResponse() error = %v", err)
	}
	if result.DominantEmotion != "happy" || result.Confidence != 0.92 {
		t.Errorf("result = %+v", result)
	}
	if result.AllScores["neutral"] != 0.05 {
		t.Errorf("all_scores = %v", result.AllScores)
	}
	if result.LowConfidence {
		t.Error("confidence 0.92 should not be flagged low")
	}
}

func TestParseDetectResponsePlainJSON(t *testing.T) {
	resp := textResponse(`{"dominant_emotion": "sad", "confidence": 0.61, "all_scores": {"sad": 0.61}}`)
	result, err := parseDetectResponse(resp)
	if err != nil {
		t.Fatalf("parseDetectResponse() error = %v", err)
	}
	if result.DominantEmotion != "sad" {
		t.Errorf("dominant = %q", result.DominantEmotion)
	}
}

func TestParseDetectResponseLowConfidence(t *testing.T) {
	tests := []struct {
		confidence string
		wantLow    bool
	}{
		{"0.42", true},
		{"0.75", false},
	}
	for _, tt := range tests {
		resp := textResponse(`{"dominant_emotion": "neutral", "confidence": ` + tt.confidence + `, "all_scores": {}}`)
		result, err := parseDetectResponse(resp)
		if err != nil {
			t.Fatalf("parseDetectResponse() error = %v", err)
		}
		if result.LowConfidence != tt.wantLow {
			t.Errorf("confidence %s: low = %v, want %v", tt.confidence, result.LowConfidence, tt.wantLow)
		}
	}
}

func TestParseDetectResponseMissingField(t *testing.T) {
	resp := textResponse(`{"dominant_emotion": "happy", "confidence": 0.9}`)
	_, err := parseDetectResponse(resp)
	var fe *ResponseFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("parseDetectResponse() error = %v, want *ResponseFormatError", err)
	}
	if !strings.Contains(fe.Snippet, "dominant_emotion") {
		t.Errorf("snippet should carry the offending text, got %q", fe.Snippet)
	}
}

func TestParseDetectResponseGarbage(t *testing.T) {
	resp := textResponse("the person looks happy to me!")
	_, err := parseDetectResponse(resp)
	var fe *ResponseFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("parseDetectResponse() error = %v, want *ResponseFormatError", err)
	}
}

func TestParseDetectResponseNoCandidates(t *testing.T) {
	_, err := parseDetectResponse(&genai.GenerateContentResponse{})
	var fe *ResponseFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("parseDetectResponse() error = %v, want *ResponseFormatError", err)
	}
}

func TestParseDetectResponseSnippetTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	resp := textResponse(long)
	_, err := parseDetectResponse(resp)
	var fe *ResponseFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("parseDetectResponse() error = %v", err)
	}
	if len(fe.Snippet) > 203 { // 200 字符 + "..."
		t.Errorf("snippet length = %d, want ≤ 203", len(fe.Snippet))
	}
}

func TestDefaultClientConfigBoundsRequests(t *testing.T) {
	cc := defaultClientConfig("test-key")
	if cc.HTTPClient == nil {
		t.Fatal("default config must carry an HTTP client with a timeout")
	}
	if cc.HTTPClient.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cc.HTTPClient.Timeout)
	}
	if cc.Backend != genai.BackendGeminiAPI {
		t.Errorf("backend = %v", cc.Backend)
	}
}

func TestDetectEmotionRetriesOn5xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"code": 500, "message": "internal"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"dominant_emotion\": \"happy\", \"confidence\": 0.9, \"all_scores\": {\"happy\": 0.9}}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := newClient(context.Background(), &genai.ClientConfig{
		APIKey:  "test-key",
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: srv.URL,
		},
	})
	if err != nil {
		t.Fatalf("newClient() error = %v", err)
	}
	c.retry = retry.Policy{Attempts: 2, Delay: time.Millisecond}

	result, err := c.DetectEmotion(context.Background(), []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("DetectEmotion() error = %v", err)
	}
	if result.DominantEmotion != "happy" {
		t.Errorf("result = %+v", result)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("attempts = %d, want exactly 2", got)
	}
}
