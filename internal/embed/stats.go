package embed

import (
	"context"
	"slices"
	"sync"
	"time"
)

// maxSamples bounds memory when calls arrive faster than the window expires.
const maxSamples = 10000

type call struct {
	at      time.Time
	latency time.Duration
	texts   int
	failed  bool
}

// StatsSnapshot aggregates the embedding calls inside the window. Latency
// figures cover successful calls only.
type StatsSnapshot struct {
	Count  int     `json:"count"`
	Failed int     `json:"failed"`
	Texts  int     `json:"texts"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
	Window string  `json:"window"`
}

// Stats keeps a rolling window of embedding calls.
type Stats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
	now    func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window, now: time.Now}
}

// Record adds one call that embedded texts inputs in latency. A non-nil err
// counts the call as failed.
func (s *Stats) Record(latency time.Duration, texts int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expire(now)
	if len(s.calls) >= maxSamples {
		s.calls = slices.Delete(s.calls, 0, len(s.calls)-maxSamples+1)
	}
	s.calls = append(s.calls, call{
		at:      now,
		latency: max(latency, 0),
		texts:   texts,
		failed:  err != nil,
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(s.now())

	snap := StatsSnapshot{Window: s.window.String()}
	var ms []int64
	var total int64
	for _, c := range s.calls {
		if c.failed {
			snap.Failed++
			continue
		}
		v := c.latency.Milliseconds()
		ms = append(ms, v)
		total += v
		snap.Texts += c.texts
	}
	if len(ms) == 0 {
		return snap
	}
	slices.Sort(ms)

	snap.Count = len(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(total) / float64(len(ms))
	snap.P50Ms = percentile(ms, 0.50)
	snap.P95Ms = percentile(ms, 0.95)
	snap.P99Ms = percentile(ms, 0.99)
	return snap
}

func (s *Stats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	s.calls = slices.DeleteFunc(s.calls, func(c call) bool { return c.at.Before(cutoff) })
}

// percentile interpolates linearly between the two nearest ranks of sorted.
// q is a fraction in [0, 1].
func percentile(sorted []int64, q float64) float64 {
	switch n := len(sorted); {
	case n == 0:
		return 0
	case q <= 0:
		return float64(sorted[0])
	case q >= 1:
		return float64(sorted[n-1])
	}
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	if i+1 >= len(sorted) {
		return float64(sorted[i])
	}
	frac := pos - float64(i)
	return float64(sorted[i]) + frac*float64(sorted[i+1]-sorted[i])
}

// Instrument wraps an embedder so every call is recorded in stats.
func Instrument(emb Embedder, stats *Stats) Embedder {
	return &instrumented{Embedder: emb, stats: stats}
}

type instrumented struct {
	Embedder
	stats *Stats
}

func (e *instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.Embedder.Embed(ctx, text)
	e.stats.Record(time.Since(start), 1, err)
	return vec, err
}

func (e *instrumented) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := e.Embedder.EmbedBatch(ctx, texts)
	e.stats.Record(time.Since(start), len(texts), err)
	return vecs, err
}
