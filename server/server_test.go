package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore"
	"github.com/mrarejimmyz/chatcore/action/paper"
	"github.com/mrarejimmyz/chatcore/backend"
	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/metrics"
	"github.com/mrarejimmyz/chatcore/model"
	"github.com/mrarejimmyz/chatcore/portfolio"
	"github.com/mrarejimmyz/chatcore/proof"
)

func newTestServer(t *testing.T) (*Server, *chatcore.ChatCore) {
	t.Helper()
	book := portfolio.New(func(o *portfolio.Options) {
		o.Cash = 1000
		o.Prices = map[string]float64{"FOO": 10}
	})
	proofs := proof.NewInMemoryStore()
	prom := metrics.NewPrometheus(metrics.DefaultConfig())
	cc := chatcore.New(func(o *chatcore.Options) {
		o.Backends = []backend.Candidate{{Provider: model.NewMockProvider("primary")}}
		o.Executor = paper.New(book, func(po *paper.Options) { po.Proofs = proofs })
		o.Proofs = proofs
		o.StreamPace = 0
		o.Metrics = prom
	})
	return New(cc, func(o *Options) { o.Metrics = prom.Handler() }), cc
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPostMessage(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/conversations/c1/messages", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp core.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "c1", resp.ConversationID)
	assert.Equal(t, "primary", resp.Backend)
	assert.Equal(t, "Mock response from primary to: hello", resp.Content)

	rec = do(t, s, http.MethodGet, "/v1/conversations/c1/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []core.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 2)
}

func TestPostMessage_Validation(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/conversations/c1/messages", `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/conversations/c1/messages", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActionAndProof(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/conversations/c2/messages", `{"message":"buy 3 FOO"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp core.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.ActionExecuted)
	require.NotEmpty(t, resp.Proof)

	rec = do(t, s, http.MethodGet, "/v1/conversations/c2/proofs/"+resp.Proof, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var receipt proof.Receipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, core.ActionTrade, receipt.Action.Type)

	rec = do(t, s, http.MethodGet, "/v1/conversations/other/proofs/"+resp.Proof, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStream(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/conversations/c3/stream", `{"message":"stream me"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var tokens strings.Builder
	var events []StreamEvent
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
		tokens.WriteString(ev.Content)
	}
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "done", last.Type)
	require.NotNil(t, last.Response)
	assert.Equal(t, last.Response.Content, tokens.String())
}

func TestClear(t *testing.T) {
	s, cc := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/conversations/c4/messages", `{"message":"hi"}`)
	rec := do(t, s, http.MethodDelete, "/v1/conversations/c4/messages", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	history, err := cc.GetHistory(t.Context(), "c4")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBackendsAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/backends?probe=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var descs []backend.Descriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &descs))
	require.Len(t, descs, 1)
	assert.Equal(t, "primary", descs[0].Name)
	assert.True(t, descs[0].Available)

	do(t, s, http.MethodPost, "/v1/conversations/c5/messages", `{"message":"hello"}`)
	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "requests_total")
}
