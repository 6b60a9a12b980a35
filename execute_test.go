package refetch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/creativecreature/refetch"
)

func TestSecondCallWithinTTLIsServedFromCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server, calls := newCountingServer(t)
	recorder := newTestMetricsRecorder()
	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
		refetch.WithMetrics(recorder),
	)
	t.Cleanup(executor.Close)

	first, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	second, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 network call, got %d", calls.Load())
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("expected the cached payload to be returned:\n%s", diff)
	}

	state := executor.State()
	if state.Loading || state.Err != nil {
		t.Errorf("expected a settled state, got %+v", state)
	}
	if diff := cmp.Diff(first, state.Data); diff != "" {
		t.Errorf("state payload mismatch:\n%s", diff)
	}

	recorder.Lock()
	defer recorder.Unlock()
	if recorder.cacheMisses != 1 || recorder.cacheHits != 1 {
		t.Errorf("expected 1 miss and 1 hit, got %d misses and %d hits", recorder.cacheMisses, recorder.cacheHits)
	}
	if recorder.requestsStarted != 1 {
		t.Errorf("expected 1 request to be started, got %d", recorder.requestsStarted)
	}
}

func TestStaleEntryIsReplacedByAFreshCall(t *testing.T) {
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

	first, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	clock.Add(ttl + 1)

	second, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("expected 2 network calls, got %d", calls.Load())
	}
	if cmp.Equal(first, second) {
		t.Error("expected the stale entry to be replaced with a fresh payload")
	}
	if diff := cmp.Diff(second, executor.State().Data); diff != "" {
		t.Errorf("state payload mismatch:\n%s", diff)
	}
}

func TestLastCallToStartWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	arrived := make(chan struct{})
	release := make(chan struct{})
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			close(arrived)
			<-release
			//nolint:errcheck
			json.NewEncoder(w).Encode(testPayload{Value: "slow"})
			return
		}
		//nolint:errcheck
		json.NewEncoder(w).Encode(testPayload{Value: "fast"})
	}))
	t.Cleanup(server.Close)

	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
	)
	t.Cleanup(executor.Close)

	firstDone := make(chan error, 1)
	go func() {
		_, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{Method: http.MethodGet, Query: map[string][]string{"page": {"1"}}})
		firstDone <- err
	}()
	<-arrived

	// This call supersedes the slow one.
	data, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{Method: http.MethodGet, Query: map[string][]string{"page": {"2"}}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if data.Value != "fast" {
		t.Errorf("expected the second response, got %q", data.Value)
	}

	close(release)
	if err := <-firstDone; !errors.Is(err, refetch.ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}

	// The slow call's resolution must not have overwritten the state.
	state := executor.State()
	if state.Data.Value != "fast" || state.Loading || state.Err != nil {
		t.Errorf("expected the state to reflect the winning call, got %+v", state)
	}
}

func TestRefetchAlwaysPerformsANetworkCall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server, calls := newCountingServer(t)
	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
	)
	t.Cleanup(executor.Close)

	for i := 0; i < 3; i++ {
		if _, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 network call, got %d", calls.Load())
	}

	data, err := executor.Refetch(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected the refetch to hit the network, got %d calls", calls.Load())
	}
	if data.Value != "response-2" {
		t.Errorf("expected the fresh payload, got %q", data.Value)
	}
}

func TestNonSuccessStatusKeepsPriorData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		//nolint:errcheck
		json.NewEncoder(w).Encode(testPayload{Value: "good"})
	}))
	t.Cleanup(server.Close)

	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
	)
	t.Cleanup(executor.Close)

	if _, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err := executor.Execute(ctx, server.URL+"/missing", refetch.RequestOptions{})
	var requestErr *refetch.RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected a RequestError, got %v", err)
	}
	if requestErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", requestErr.StatusCode)
	}

	state := executor.State()
	if state.Err == nil || !errors.As(state.Err, &requestErr) {
		t.Errorf("expected the state to carry the request error, got %v", state.Err)
	}
	if state.Data.Value != "good" {
		t.Errorf("expected data to keep its prior value, got %q", state.Data.Value)
	}
	if state.Loading {
		t.Error("expected loading to be false after a failed request")
	}
}

func TestTransportFailureYieldsNetworkError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serverURL := server.URL
	server.Close()

	executor := refetch.New[testPayload](serverURL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
	)
	t.Cleanup(executor.Close)

	_, err := executor.Execute(ctx, serverURL, refetch.RequestOptions{})
	var networkErr *refetch.NetworkError
	if !errors.As(err, &networkErr) {
		t.Fatalf("expected a NetworkError, got %v", err)
	}
	if state := executor.State(); state.Err == nil || state.Loading {
		t.Errorf("expected the state to carry the network error, got %+v", state)
	}
}

func TestCancellationByTheCallerLeavesTheStateUntouched(t *testing.T) {
	t.Parallel()

	arrived := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
	)
	t.Cleanup(executor.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := executor.Execute(ctx, server.URL, refetch.RequestOptions{})
		done <- err
	}()
	<-arrived
	cancel()

	if err := <-done; !errors.Is(err, refetch.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	state := executor.State()
	if state.Err != nil {
		t.Errorf("expected cancellation to not be recorded as an error, got %v", state.Err)
	}
	if state.Loading {
		t.Error("expected loading to be false once the request settled")
	}
}

func TestCloseDuringFlightFreezesTheState(t *testing.T) {
	t.Parallel()

	arrived := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(arrived)
		<-release
		//nolint:errcheck
		json.NewEncoder(w).Encode(testPayload{Value: "late"})
	}))
	t.Cleanup(server.Close)

	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
	)

	done := make(chan error, 1)
	go func() {
		_, err := executor.Execute(context.Background(), server.URL, refetch.RequestOptions{})
		done <- err
	}()
	<-arrived

	executor.Close()
	frozen := executor.State()
	close(release)

	if err := <-done; !errors.Is(err, refetch.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if diff := cmp.Diff(frozen, executor.State(), cmp.Comparer(func(a, b error) bool { return errors.Is(a, b) })); diff != "" {
		t.Errorf("expected no state mutation after teardown:\n%s", diff)
	}
	if state := executor.State(); state.Data.Value != "" || state.Err != nil {
		t.Errorf("expected the late response to be discarded, got %+v", state)
	}
}

func TestExecuteAfterCloseReturnsErrClosed(t *testing.T) {
	t.Parallel()

	server, calls := newCountingServer(t)
	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
	)
	executor.Close()

	if _, err := executor.Execute(context.Background(), server.URL, refetch.RequestOptions{}); !errors.Is(err, refetch.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := executor.Refetch(context.Background()); !errors.Is(err, refetch.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no network calls, got %d", calls.Load())
	}
}

func TestImmediateExecutionRunsWithTheDefaults(t *testing.T) {
	t.Parallel()

	server, calls := newCountingServer(t)
	executor := refetch.New[testPayload](server.URL, refetch.RequestOptions{}, time.Minute,
		refetch.WithHTTPClient(newHTTPClient(t)),
		refetch.WithImmediateExecution(),
	)
	t.Cleanup(executor.Close)

	eventually(t, func() bool {
		state := executor.State()
		return !state.Loading && state.Data.Value == "response-1"
	})
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 network call, got %d", calls.Load())
	}

	// The immediate execution should have primed the cache for the defaults.
	if _, err := executor.Execute(context.Background(), server.URL, refetch.RequestOptions{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected the cache to serve the second call, got %d calls", calls.Load())
	}
}
