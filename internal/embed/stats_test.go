package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []time.Duration{100, 200, 300, 400, 500} {
		stats.Record(ms*time.Millisecond, 2, nil)
	}

	snap := stats.Snapshot()
	assert.Equal(t, 5, snap.Count)
	assert.Equal(t, 0, snap.Failed)
	assert.Equal(t, 10, snap.Texts)
	assert.Equal(t, int64(100), snap.MinMs)
	assert.Equal(t, int64(500), snap.MaxMs)
	assert.Equal(t, 300.0, snap.AvgMs)
	assert.Equal(t, 300.0, snap.P50Ms)
	assert.InDelta(t, 480.0, snap.P95Ms, 1e-9)
	assert.InDelta(t, 496.0, snap.P99Ms, 1e-9)
	assert.Equal(t, "1h0m0s", snap.Window)
}

func TestStatsExpiresOldCalls(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := NewStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(100*time.Millisecond, 1, nil)
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 0, stats.Snapshot().Count)

	stats.Record(200*time.Millisecond, 1, nil)
	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, int64(200), snap.MinMs)
}

func TestStatsFailedCallsExcludedFromLatency(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(50*time.Millisecond, 1, nil)
	stats.Record(5*time.Second, 4, errors.New("timeout"))

	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 1, snap.Texts)
	assert.Equal(t, int64(50), snap.MaxMs)
}

func TestStatsClampsNegativeLatency(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Record(-10*time.Millisecond, 1, nil)
	assert.Equal(t, int64(0), stats.Snapshot().MinMs)
}

func TestStatsBoundedSamples(t *testing.T) {
	stats := NewStats(time.Hour)
	for range maxSamples + 5 {
		stats.Record(time.Millisecond, 1, nil)
	}
	assert.Equal(t, maxSamples, stats.Snapshot().Count)
}

func TestPercentileEdges(t *testing.T) {
	assert.Equal(t, 0.0, percentile(nil, 0.5))
	assert.Equal(t, 7.0, percentile([]int64{7}, 0.99))
	assert.Equal(t, 1.0, percentile([]int64{1, 9}, 0))
	assert.Equal(t, 9.0, percentile([]int64{1, 9}, 1))
	assert.Equal(t, 5.0, percentile([]int64{1, 9}, 0.5))
}

func TestInstrument(t *testing.T) {
	stats := NewStats(time.Hour)
	emb := Instrument(NewHash(16, "h"), stats)

	_, err := emb.Embed(context.Background(), "one")
	require.NoError(t, err)
	_, err = emb.EmbedBatch(context.Background(), []string{"two", "three"})
	require.NoError(t, err)

	snap := stats.Snapshot()
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, 3, snap.Texts)
	assert.Equal(t, 16, emb.Dimension())
	assert.Equal(t, "h", emb.Model())
}
