package refetch_test

import (
	"context"
	"testing"
	"time"

	"github.com/creativecreature/refetch"
)

func TestSweepEvictsExpiredEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ttl := time.Minute
	clock := refetch.NewTestClock(time.Now())
	server, _ := newCountingServer(t)
	recorder := newTestMetricsRecorder()
	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, ttl,
		refetch.WithHTTPClient(newHTTPClient(t)),
		refetch.WithClock(clock),
		refetch.WithShards(1),
		refetch.WithSweepInterval(ttl),
		refetch.WithMetrics(recorder),
	)
	t.Cleanup(executor.Close)

	if _, err := executor.Execute(ctx, server.URL+"/posts", refetch.RequestOptions{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := executor.Execute(ctx, server.URL+"/comments", refetch.RequestOptions{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if executor.Size() != 2 {
		t.Fatalf("expected 2 cache entries, got %d", executor.Size())
	}

	// Move past the TTL so that the next sweep tick finds both entries expired.
	clock.Add(ttl + 1)
	eventually(t, func() bool {
		return executor.Size() == 0
	})

	recorder.Lock()
	defer recorder.Unlock()
	if recorder.evictedEntries != 2 {
		t.Errorf("expected 2 evicted entries to be reported, got %d", recorder.evictedEntries)
	}
	if recorder.observedSize == nil {
		t.Fatal("expected the cache size observer to be registered")
	}
}

func TestDisabledSweepStillRefusesStaleEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ttl := time.Minute
	clock := refetch.NewTestClock(time.Now())
	server, calls := newCountingServer(t)
	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, ttl,
		refetch.WithHTTPClient(newHTTPClient(t)),
		refetch.WithClock(clock),
		refetch.WithNoContinuousSweeping(),
	)
	t.Cleanup(executor.Close)

	if _, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	clock.Add(ttl + 1)

	// The entry stays in memory but is never served.
	if executor.Size() != 1 {
		t.Errorf("expected the stale entry to remain, got %d entries", executor.Size())
	}
	if _, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected the stale entry to force a network call, got %d calls", calls.Load())
	}
}
