package backend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mrarejimmyz/chatcore/logging"
	"github.com/mrarejimmyz/chatcore/metrics"
	"github.com/mrarejimmyz/chatcore/model"
)

// NoneName is the name carried by the sentinel descriptor.
const NoneName = "none"

// None is returned by SelectActive when no backend is reachable.
var None = Descriptor{Name: NoneName, Rank: -1}

// Endpoint is the non-secret part of a backend's connection config.
type Endpoint struct {
	BaseURL string `json:"base_url,omitempty"`
}

// Descriptor describes one configured backend.
type Descriptor struct {
	Name       string    `json:"name"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Rank       int       `json:"rank"`
	Available  bool      `json:"available"`
	LastProbed time.Time `json:"last_probed,omitempty"`
	Endpoint   Endpoint  `json:"endpoint"`
}

// IsNone reports whether d is the "no backend reachable" sentinel.
func (d Descriptor) IsNone() bool { return d.Name == NoneName }

// Candidate is a provider together with its priority rank. Lower ranks are
// tried first.
type Candidate struct {
	Provider model.Provider
	Rank     int
	Endpoint Endpoint
}

// Options configures a Prober.
type Options struct {
	// ProbeTimeout bounds every individual liveness check.
	ProbeTimeout time.Duration
	Logger       logging.Logger
	Metrics      metrics.Recorder
}

type entry struct {
	provider model.Provider
	desc     Descriptor
}

// Prober owns the backend descriptor table.
type Prober struct {
	opts Options
	log  logging.DomainLogger

	mu      sync.Mutex
	entries []*entry
	active  int // index into entries, -1 when nothing is cached
	cursor  int // where the next selection pass starts
}

// New creates a Prober. Candidates are ordered by rank; equal ranks keep
// their configured order.
func New(candidates []Candidate, optFns ...func(o *Options)) *Prober {
	opts := Options{ProbeTimeout: 3 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 3 * time.Second
	}
	opts.Metrics = metrics.OrNoOp(opts.Metrics)

	sorted := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Provider != nil {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	entries := make([]*entry, 0, len(sorted))
	for _, c := range sorted {
		info := c.Provider.Info()
		entries = append(entries, &entry{
			provider: c.Provider,
			desc: Descriptor{
				Name:     info.Name,
				Provider: info.Provider,
				Model:    info.Model,
				Rank:     c.Rank,
				Endpoint: c.Endpoint,
			},
		})
	}

	return &Prober{
		opts:    opts,
		log:     logging.Domain(opts.Logger),
		entries: entries,
		active:  -1,
	}
}

// Len returns the number of configured backends.
func (p *Prober) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// SelectActive returns the cached active backend, probing candidates in
// priority order when nothing is cached. It returns None when no candidate
// responds; probe failures are never surfaced.
func (p *Prober) SelectActive(ctx context.Context) Descriptor {
	p.mu.Lock()
	if p.active >= 0 {
		d := p.entries[p.active].desc
		p.mu.Unlock()
		return d
	}
	n, from := len(p.entries), p.cursor
	p.mu.Unlock()

	idx := selectFirst(n, from, func(i int) bool { return p.probe(ctx, i) })

	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < 0 {
		p.cursor = 0
		return None
	}
	p.active = idx
	p.cursor = idx
	return p.entries[idx].desc
}

// MarkFailed records that a generation call against the named backend
// failed. If it was the active backend the cache is dropped and the next
// selection starts at the following candidate.
func (p *Prober) MarkFailed(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.entries {
		if e.desc.Name != name {
			continue
		}
		e.desc.Available = false
		if p.active == i || p.active < 0 {
			p.active = -1
			p.cursor = (i + 1) % len(p.entries)
		}
		return
	}
}

// Provider returns the provider registered under name.
func (p *Prober) Provider(name string) (model.Provider, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.desc.Name == name {
			return e.provider, true
		}
	}
	return nil, false
}

// Descriptors returns a snapshot of the descriptor table in priority order.
func (p *Prober) Descriptors() []Descriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Descriptor, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.desc
	}
	return out
}

// ProbeAll probes every backend and refreshes the table without touching
// the active selection.
func (p *Prober) ProbeAll(ctx context.Context) []Descriptor {
	for i := 0; i < p.Len(); i++ {
		p.probe(ctx, i)
	}
	return p.Descriptors()
}

func (p *Prober) probe(ctx context.Context, i int) bool {
	p.mu.Lock()
	e := p.entries[i]
	p.mu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, p.opts.ProbeTimeout)
	defer cancel()

	start := time.Now()
	err := e.provider.Probe(pctx)
	available := err == nil

	p.mu.Lock()
	e.desc.Available = available
	e.desc.LastProbed = time.Now()
	name := e.desc.Name
	p.mu.Unlock()

	p.log.LogProbe(name, time.Since(start), available, err)
	p.opts.Metrics.ObserveProbe(name, available)
	return available
}

// selectFirst returns the first index, scanning n candidates circularly from
// `from`, for which probe reports true, or -1.
func selectFirst(n, from int, probe func(i int) bool) int {
	if n <= 0 {
		return -1
	}
	if from < 0 || from >= n {
		from = 0
	}
	for k := 0; k < n; k++ {
		i := (from + k) % n
		if probe(i) {
			return i
		}
	}
	return -1
}
