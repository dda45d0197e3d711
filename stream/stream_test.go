package stream

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore/core"
)

func TestSegment_ConcatenatesToInput(t *testing.T) {
	for _, text := range []string{
		"",
		"one",
		"hello world",
		"  leading and trailing  ",
		"multi\nline\n\ntext with\ttabs",
		"unicode çà et là ✓",
		"price \xff\xfe up",
		"\xc3 truncated",
	} {
		segs := Segment(text)
		assert.Equal(t, text, strings.Join(segs, ""), "%q", text)
		for _, s := range segs {
			assert.NotEmpty(t, s)
		}
	}
	assert.Equal(t, []string{"hello ", "world"}, Segment("hello world"))
	assert.Nil(t, Segment(""))
	assert.Equal(t, []string{"   "}, Segment("   "))
	assert.Equal(t, []string{"price ", "\xff\xfe ", "up"}, Segment("price \xff\xfe up"))
}

func TestStream_YieldsDeltasThenDone(t *testing.T) {
	resp := &core.Response{Content: "buy order filled", Backend: "action"}
	s := New(resp, func(o *Options) { o.Pace = 0 })

	var deltas []string
	var final *core.Response
	for {
		chunk, ok := s.Next(context.Background())
		if !ok {
			break
		}
		if chunk.Done {
			assert.Empty(t, chunk.Delta)
			final = chunk.Response
			continue
		}
		deltas = append(deltas, chunk.Delta)
	}
	assert.Equal(t, []string{"buy ", "order ", "filled"}, deltas)
	require.NotNil(t, final)
	assert.Same(t, resp, final)

	_, ok := s.Next(context.Background())
	assert.False(t, ok, "stream is not restartable")
}

func TestStream_EmptyContentOnlyDone(t *testing.T) {
	s := New(&core.Response{}, func(o *Options) { o.Pace = 0 })
	chunk, ok := s.Next(context.Background())
	require.True(t, ok)
	assert.True(t, chunk.Done)
	_, ok = s.Next(context.Background())
	assert.False(t, ok)
}

func TestStream_Paced(t *testing.T) {
	s := New(&core.Response{Content: "a b c d"}, func(o *Options) { o.Pace = 15 * time.Millisecond })
	start := time.Now()
	n := 0
	for chunk := range s.Chan(context.Background()) {
		n++
		_ = chunk
	}
	assert.Equal(t, 5, n)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestStream_ChanStopsOnCancel(t *testing.T) {
	s := New(&core.Response{Content: strings.Repeat("word ", 100)}, func(o *Options) { o.Pace = 10 * time.Millisecond })
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.Chan(ctx)
	<-ch
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
