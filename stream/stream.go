// Package stream re-segments a fully computed response into a lazy, finite,
// non-restartable sequence of chunks for incremental display.
//
// This is simulated streaming: the response already exists (and is already
// recorded in history) before the first chunk is produced, so abandoning a
// stream does not save any backend work.
package stream

import (
	"context"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/mrarejimmyz/chatcore/core"
)

// DefaultPace is the delay between two chunks.
const DefaultPace = 20 * time.Millisecond

// Options configures a Stream.
type Options struct {
	// Pace between chunks; zero or negative disables pacing.
	Pace time.Duration
}

// Stream yields the response content word by word, then one Done chunk
// carrying the complete response. Once exhausted it yields nothing further.
// It is safe for concurrent use, though chunks are handed out once.
type Stream struct {
	resp    *core.Response
	limiter *rate.Limiter

	mu       sync.Mutex
	segments []string
	next     int
	done     bool
}

// New creates a stream over resp.
func New(resp *core.Response, optFns ...func(o *Options)) *Stream {
	opts := Options{Pace: DefaultPace}
	for _, fn := range optFns {
		fn(&opts)
	}
	if resp == nil {
		resp = &core.Response{}
	}
	s := &Stream{resp: resp, segments: Segment(resp.Content)}
	if opts.Pace > 0 {
		s.limiter = rate.NewLimiter(rate.Every(opts.Pace), 1)
	}
	return s
}

// Response returns the complete response behind the stream.
func (s *Stream) Response() *core.Response { return s.resp }

// Next returns the next chunk. ok is false once the Done chunk has been
// returned, or when ctx ends while waiting for the pacer.
func (s *Stream) Next(ctx context.Context) (core.StreamChunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return core.StreamChunk{}, false
	}
	if s.limiter != nil && s.next > 0 {
		if err := s.limiter.Wait(ctx); err != nil {
			return core.StreamChunk{}, false
		}
	}
	if s.next < len(s.segments) {
		delta := s.segments[s.next]
		s.next++
		return core.StreamChunk{Delta: delta}, true
	}
	s.done = true
	return core.StreamChunk{Done: true, Response: s.resp}, true
}

// Chan adapts the stream to a channel that is closed after the Done chunk
// or when ctx ends.
func (s *Stream) Chan(ctx context.Context) <-chan core.StreamChunk {
	ch := make(chan core.StreamChunk)
	go func() {
		defer close(ch)
		for {
			chunk, ok := s.Next(ctx)
			if !ok {
				return
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.Done {
				return
			}
		}
	}()
	return ch
}

// Segment splits text into word-preserving segments whose concatenation is
// text. Each segment is a word followed by the whitespace after it; leading
// whitespace is attached to the first segment.
func Segment(text string) []string {
	var out []string
	start, i := 0, skip(text, 0, true)
	for i < len(text) {
		i = skip(text, i, false)
		i = skip(text, i, true)
		out = append(out, text[start:i])
		start = i
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// skip advances from i over runes whose whitespace-ness equals space.
// Offsets are bytes so invalid UTF-8 passes through untouched.
func skip(text string, i int, space bool) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) != space {
			break
		}
		i += size
	}
	return i
}
