package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/model"
)

func newServer(t *testing.T, reply string) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var requests []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"llama3.1","object":"model"}]}`))
		case "/v1/chat/completions":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			requests = append(requests, body)
			resp := map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  "llama3.1",
				"choices": []any{map[string]any{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": reply},
					"finish_reason": "stop",
				}},
				"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 4, "total_tokens": 9},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestProvider_ProbeAndComplete(t *testing.T) {
	srv, requests := newServer(t, "  local answer ")
	p := NewProvider(func(o *Options) { o.BaseURL = srv.URL + "/v1/" })

	require.NoError(t, p.Probe(context.Background()))

	c, err := p.Complete(context.Background(), []core.Message{
		core.NewSystemMessage("sys"),
		core.NewUserMessage("hello"),
	}, model.Options{MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "local answer", c.Text)
	assert.Equal(t, 9, c.TokensUsed)
	assert.Equal(t, "stop", c.FinishReason)

	require.Len(t, *requests, 1)
	assert.EqualValues(t, 64, (*requests)[0]["max_tokens"])
	assert.Len(t, (*requests)[0]["messages"], 2)
}

func TestProvider_EmptyCompletion(t *testing.T) {
	srv, _ := newServer(t, "   ")
	p := NewProvider(func(o *Options) { o.BaseURL = srv.URL + "/v1" })

	_, err := p.Complete(context.Background(), []core.Message{core.NewUserMessage("hi")}, model.Options{})
	assert.ErrorIs(t, err, model.ErrEmptyCompletion)
}

func TestProvider_ProbeUnreachable(t *testing.T) {
	p := NewProvider(func(o *Options) { o.BaseURL = "http://127.0.0.1:1/v1" })
	assert.Error(t, p.Probe(context.Background()))
}

func TestProvider_Info(t *testing.T) {
	p := NewProvider(func(o *Options) { o.Name = "local"; o.Model = "qwen2" })
	assert.Equal(t, model.Info{Name: "local", Provider: "ollama", Model: "qwen2"}, p.Info())
}
