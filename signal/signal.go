// Package signal provides an in-memory core.SignalSource.
package signal

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mrarejimmyz/chatcore/core"
)

// Options configures a Store.
type Options struct {
	// MaxAge drops signals older than this from results. Zero keeps everything.
	MaxAge time.Duration
	// Now is the clock used for MaxAge.
	Now func() time.Time
}

// Store is a process-local signal feed keyed by symbol. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	signals map[string][]core.Signal // symbol -> signals
	opts    Options
}

var _ core.SignalSource = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{signals: make(map[string][]core.Signal), opts: opts}
}

// Add records signals. Symbols are normalised to upper case and a zero AsOf
// is stamped with the current time.
func (s *Store) Add(signals ...core.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range signals {
		sig.Symbol = strings.ToUpper(sig.Symbol)
		if sig.AsOf.IsZero() {
			sig.AsOf = s.opts.Now()
		}
		s.signals[sig.Symbol] = append(s.signals[sig.Symbol], sig)
	}
}

// Clear removes all signals for symbol, or every signal when symbol is empty.
func (s *Store) Clear(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if symbol == "" {
		s.signals = make(map[string][]core.Signal)
		return
	}
	delete(s.signals, strings.ToUpper(symbol))
}

// RelevantSignals returns signals for the given symbols, strongest first. An
// empty symbol list returns every stored signal.
func (s *Store) RelevantSignals(ctx context.Context, symbols []string) ([]core.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Signal
	collect := func(list []core.Signal) {
		for _, sig := range list {
			if s.opts.MaxAge > 0 && s.opts.Now().Sub(sig.AsOf) > s.opts.MaxAge {
				continue
			}
			out = append(out, sig)
		}
	}
	if len(symbols) == 0 {
		for _, list := range s.signals {
			collect(list)
		}
	} else {
		seen := make(map[string]struct{}, len(symbols))
		for _, sym := range symbols {
			sym = strings.ToUpper(sym)
			if _, dup := seen[sym]; dup {
				continue
			}
			seen[sym] = struct{}{}
			collect(s.signals[sym])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength > out[j].Strength
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}
