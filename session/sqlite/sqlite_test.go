package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/internal/testutil"
	"github.com/mrarejimmyz/chatcore/session"
)

func openStore(t *testing.T, window int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat.db"), window)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendTrimsWindow(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 4)

	require.NoError(t, s.Append(ctx, "c1", core.NewSystemMessage("sys")))
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Append(ctx, "c1", core.NewUserMessage(fmt.Sprintf("m%d", i))))
	}

	h, err := s.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, h, 4)
	assert.Equal(t, core.RoleSystem, h[0].Role)
	assert.Equal(t, []string{"m3", "m4", "m5"}, []string{h[1].Content, h[2].Content, h[3].Content})
}

func TestStore_MetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 10)

	md := core.MessageMetadata{
		Backend:        "action",
		Confidence:     0.95,
		ActionExecuted: true,
		Proof:          "rcpt-1",
		Action:         &core.ActionDescriptor{Type: core.ActionTrade, Target: "FOO", Params: map[string]any{"quantity": 10.0}},
	}
	require.NoError(t, s.Append(ctx, "c", core.NewAssistantMessage("done", md)))

	h, err := s.History(ctx, "c")
	require.NoError(t, err)
	require.Len(t, h, 1)
	require.NotNil(t, h[0].Metadata)
	assert.True(t, h[0].Metadata.ActionExecuted)
	assert.Equal(t, "rcpt-1", h[0].Metadata.Proof)
	assert.Equal(t, "FOO", h[0].Metadata.Action.Target)
	assert.False(t, h[0].Timestamp.IsZero())
}

func TestStore_SystemReplacementStaysFirst(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 5)
	require.NoError(t, s.Append(ctx, "c", core.NewSystemMessage("v1")))
	require.NoError(t, s.Append(ctx, "c", core.NewUserMessage("hi")))
	require.NoError(t, s.Append(ctx, "c", core.NewSystemMessage("v2")))

	h, err := s.History(ctx, "c")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "v2", h[0].Content)
	assert.Equal(t, "hi", h[1].Content)
}

func TestStore_ClearAndIsolation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 5)
	require.NoError(t, s.Append(ctx, "a", core.NewUserMessage("for a")))
	require.NoError(t, s.Append(ctx, "b", core.NewUserMessage("for b")))

	require.NoError(t, s.Clear(ctx, "a"))
	require.NoError(t, s.Clear(ctx, "unknown"))

	h, err := s.History(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Empty(t, h)

	h, err = s.History(ctx, "b")
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, "for b", h[0].Content)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open("", 4)
	assert.Error(t, err)
}

func TestStore_MatchesInMemoryStore(t *testing.T) {
	ctx := context.Background()
	for _, window := range []int{2, 3, 5, 8} {
		durable := openStore(t, window)
		volatile := session.NewInMemoryStore(func(o *session.Options) { o.Window = window })

		for _, m := range testutil.Conversation("sys", 11) {
			require.NoError(t, durable.Append(ctx, "c", m))
			require.NoError(t, volatile.Append(ctx, "c", m))
		}
		reply := testutil.NewMessageBuilder().Assistant("final").Backend("primary").Confidence(0.9).Build()
		require.NoError(t, durable.Append(ctx, "c", reply))
		require.NoError(t, volatile.Append(ctx, "c", reply))

		got, err := durable.History(ctx, "c")
		require.NoError(t, err)
		want, err := volatile.History(ctx, "c")
		require.NoError(t, err)
		require.Len(t, got, len(want), "window %d", window)
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID)
			assert.Equal(t, want[i].Content, got[i].Content)
		}
		assert.Equal(t, "primary", got[len(got)-1].Metadata.Backend)
	}
}
