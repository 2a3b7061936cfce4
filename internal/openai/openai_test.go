package openai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasilisp/pagechat/internal/chat"
	"github.com/vasilisp/pagechat/internal/credential"
	"go.uber.org/zap"
)

var testMessages = []chat.Message{
	{Role: chat.RoleSystem, Content: "system"},
	{Role: chat.RoleUser, Content: "q1"},
	{Role: chat.RoleAssistant, Content: "a1"},
	{Role: chat.RoleUser, Content: "q2"},
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/v1/", zap.NewNop()), &hits
}

func TestCompleteSuccess(t *testing.T) {
	var body map[string]any
	var auth, path string

	client, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "**Hi**"}}]
		}`))
	})

	reply, err := client.Complete(t.Context(), testMessages, credential.Credential{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "**Hi**", reply)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, 1000, body["max_tokens"])
	assert.EqualValues(t, 0.7, body["temperature"])

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)
	roles := make([]string, 0, len(messages))
	for _, m := range messages {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}

func TestCompleteClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   chat.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, chat.InvalidCredential},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"requests"}}`, chat.RateLimited},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"oops","type":"server_error"}}`, chat.RemoteFailure},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad","type":"invalid_request_error"}}`, chat.RemoteFailure},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`, chat.RemoteFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.Complete(t.Context(), testMessages, credential.Credential{APIKey: "sk-test"})
			require.Error(t, err)
			assert.Equal(t, tt.want, chat.KindOf(err))
			assert.EqualValues(t, 1, atomic.LoadInt32(hits), "no retries")
		})
	}
}

func TestCompleteUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/v1/"
	server.Close()

	client := NewClient(baseURL, zap.NewNop())
	_, err := client.Complete(t.Context(), testMessages, credential.Credential{APIKey: "sk-test"})
	require.Error(t, err)
	assert.Equal(t, chat.Unreachable, chat.KindOf(err))
}
