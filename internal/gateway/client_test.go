package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		FastModel: "fast-model",
		DeepModel: "deep-model",
		SiteName:  "clearity-test",
	})
}

func completionBody(model, content string) string {
	resp := map[string]interface{}{
		"id":    "gen-1",
		"model": model,
		"choices": []map[string]interface{}{
			{"index": 0, "message": map[string]interface{}{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 20, "completion_tokens": 10, "total_tokens": 30},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestCompleteReturnsContent(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionBody("fast-model", "  hello there  ")))
	})

	text, err := client.Complete(context.Background(), Request{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Tier:        TierFast,
		Temperature: 0.7,
		MaxTokens:   100,
	})
	require.NoError(t, err)
	require.Equal(t, "hello there", text)
	require.Equal(t, "fast-model", gotReq.Model)
	require.Nil(t, gotReq.ResponseFormat)
}

func TestCompleteTierSelection(t *testing.T) {
	var gotModel string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Write([]byte(completionBody(req.Model, "ok")))
	})

	_, err := client.Complete(context.Background(), Request{Tier: TierDeep, MaxTokens: 50})
	require.NoError(t, err)
	require.Equal(t, "deep-model", gotModel)
}

func TestCompleteErrorEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "model overloaded", "code": 502}}`))
	})

	_, err := client.Complete(context.Background(), Request{Tier: TierFast, MaxTokens: 50})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model overloaded")
}

func TestCompleteHTTPFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), Request{Tier: TierFast, MaxTokens: 50})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 502")
}

func TestCompleteNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "gen-2", "model": "fast-model", "choices": []}`))
	})

	_, err := client.Complete(context.Background(), Request{Tier: TierFast, MaxTokens: 50})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestCompleteModelSubstitutionContinues(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("other-model", "still fine")))
	})

	text, err := client.Complete(context.Background(), Request{Tier: TierFast, MaxTokens: 50})
	require.NoError(t, err)
	require.Equal(t, "still fine", text)
}

func TestCompleteReasoningFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "gen-3",
			"model": "deep-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "", "reasoning": "the actual answer"}, "finish_reason": "stop"}]
		}`))
	})

	text, err := client.Complete(context.Background(), Request{Tier: TierDeep, MaxTokens: 50})
	require.NoError(t, err)
	require.Equal(t, "the actual answer", text)
}

func TestCompleteReasoningDetailsFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "gen-4",
			"model": "deep-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "", "reasoning_details": [{"text": "part one"}, {"text": "part two"}]}, "finish_reason": "stop"}]
		}`))
	})

	text, err := client.Complete(context.Background(), Request{Tier: TierDeep, MaxTokens: 50})
	require.NoError(t, err)
	require.Equal(t, "part one\npart two", text)
}

func TestCompleteJSONSetsModeAndDecodes(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(completionBody("fast-model", "```json\n{\"emotion\": \"hope\"}\n```")))
	})

	var out struct {
		Emotion string `json:"emotion"`
	}
	err := client.CompleteJSON(context.Background(), Request{Tier: TierFast, MaxTokens: 500}, &out)
	require.NoError(t, err)
	require.Equal(t, "hope", out.Emotion)
	require.NotNil(t, gotReq.ResponseFormat)
	require.Equal(t, "json_object", gotReq.ResponseFormat.Type)
}

func TestCompleteMissingAPIKey(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:0", FastModel: "f", DeepModel: "d"})
	_, err := client.Complete(context.Background(), Request{Tier: TierFast})
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")
}
