package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore/core"
)

func TestInMemoryStore_WindowKeepsSystemAndRecentTurns(t *testing.T) {
	for _, window := range []int{2, 3, 4, 7, 20} {
		t.Run(fmt.Sprintf("window=%d", window), func(t *testing.T) {
			ctx := context.Background()
			s := NewInMemoryStore(func(o *Options) { o.Window = window })
			require.NoError(t, s.Append(ctx, "c", core.NewSystemMessage("sys")))

			total := window * 3
			for i := 0; i < total; i++ {
				require.NoError(t, s.Append(ctx, "c", core.NewUserMessage(fmt.Sprintf("m%d", i))))
			}

			h, err := s.History(ctx, "c")
			require.NoError(t, err)
			require.Len(t, h, window)
			assert.Equal(t, core.RoleSystem, h[0].Role)
			assert.Equal(t, "sys", h[0].Content)
			for i, m := range h[1:] {
				assert.Equal(t, fmt.Sprintf("m%d", total-(window-1)+i), m.Content)
			}
		})
	}
}

func TestInMemoryStore_WindowWithoutSystem(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(func(o *Options) { o.Window = 3 })
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, "c", core.NewUserMessage(fmt.Sprint(i))))
	}
	h, _ := s.History(ctx, "c")
	require.Len(t, h, 3)
	assert.Equal(t, "2", h[0].Content)
	assert.Equal(t, "4", h[2].Content)
}

func TestInMemoryStore_SystemReplacedAndFirst(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Append(ctx, "c", core.NewUserMessage("hi")))
	require.NoError(t, s.Append(ctx, "c", core.NewSystemMessage("v1")))
	require.NoError(t, s.Append(ctx, "c", core.NewSystemMessage("v2")))

	h, _ := s.History(ctx, "c")
	require.Len(t, h, 2)
	assert.Equal(t, "v2", h[0].Content)
	assert.Equal(t, "hi", h[1].Content)
}

func TestInMemoryStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Append(ctx, "c", core.NewUserMessage("hi")))

	require.NoError(t, s.Clear(ctx, "c"))
	require.NoError(t, s.Clear(ctx, "c"))
	require.NoError(t, s.Clear(ctx, "never-seen"))

	h, err := s.History(ctx, "c")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Empty(t, h)
}

func TestInMemoryStore_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	msg := core.NewAssistantMessage("reply", core.MessageMetadata{Backend: "a"})
	require.NoError(t, s.Append(ctx, "c", msg))

	msg.Metadata.Backend = "mutated"
	h, _ := s.History(ctx, "c")
	h[0].Content = "changed"

	again, _ := s.History(ctx, "c")
	assert.Equal(t, "reply", again[0].Content)
	assert.Equal(t, "a", again[0].Metadata.Backend)
}

func TestInMemoryStore_ConcurrentDistinctConversations(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(func(o *Options) { o.Window = 50 })

	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", c)
			for i := 0; i < 25; i++ {
				_ = s.Append(ctx, id, core.NewUserMessage(fmt.Sprintf("%s-%d", id, i)))
			}
		}(c)
	}
	wg.Wait()

	assert.Len(t, s.Conversations(), 8)
	for c := 0; c < 8; c++ {
		id := fmt.Sprintf("conv-%d", c)
		h, _ := s.History(ctx, id)
		require.Len(t, h, 25)
		for i, m := range h {
			assert.Equal(t, fmt.Sprintf("%s-%d", id, i), m.Content)
		}
	}
}

func TestNormalizeWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, NormalizeWindow(0))
	assert.Equal(t, DefaultWindow, NormalizeWindow(-3))
	assert.Equal(t, MinWindow, NormalizeWindow(1))
	assert.Equal(t, 4, NormalizeWindow(4))
}
