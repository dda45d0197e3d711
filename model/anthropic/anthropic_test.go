package anthropic

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

func TestBuildMessages_AlternationAndLeadingAssistant(t *testing.T) {
	turns := []core.Message{
		core.NewAssistantMessage("orphaned reply", core.MessageMetadata{}),
		core.NewUserMessage("a"),
		core.NewUserMessage("b"),
		core.NewAssistantMessage("c", core.MessageMetadata{}),
	}
	msgs := buildMessages(turns)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
}

func TestProvider_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-20241022",
			"content":[{"type":"text","text":"hello from claude"}],
			"stop_reason":"end_turn","usage":{"input_tokens":4,"output_tokens":3}}`))
	}))
	defer srv.Close()

	p := NewProvider(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
	c, err := p.Complete(context.Background(), []core.Message{
		core.NewSystemMessage("be brief"),
		core.NewUserMessage("hi"),
	}, model.Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello from claude", c.Text)
	assert.Equal(t, 7, c.TokensUsed)
	assert.Equal(t, "end_turn", c.FinishReason)
	assert.NotNil(t, got["system"])
}

func TestProvider_NoUserTurn(t *testing.T) {
	p := NewProvider(func(o *Options) { o.APIKey = "test"; o.BaseURL = "http://127.0.0.1:1" })
	_, err := p.Complete(context.Background(), []core.Message{core.NewSystemMessage("only system")}, model.Options{})
	assert.Error(t, err)
}
