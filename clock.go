package refetch

import (
	"sync"
	"time"
)

// Clock is the source of time for an executor. It exists so that cache
// expirations can be tested without sleeping.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

// NewClock returns a Clock backed by the time package.
func NewClock() Clock {
	return &realClock{}
}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func (c *realClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(d)
	return ticker.C, ticker.Stop
}

type testTicker struct {
	ch       chan time.Time
	next     time.Time
	interval time.Duration
	stopped  bool
}

// TestClock is a Clock where time only moves when you tell it to.
type TestClock struct {
	mu      sync.Mutex
	time    time.Time
	tickers []*testTicker
}

// NewTestClock returns a TestClock set to the given time.
func NewTestClock(t time.Time) *TestClock {
	return &TestClock{time: t}
}

func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

func (c *TestClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		panic("refetch: ticker interval must be greater than 0")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ticker := &testTicker{
		ch:       make(chan time.Time, 1),
		next:     c.time.Add(d),
		interval: d,
	}
	c.tickers = append(c.tickers, ticker)

	stop := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		ticker.stopped = true
	}
	return ticker.ch, stop
}

// Set moves the clock to the given time, firing any tickers that come due.
func (c *TestClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.time = t
	for _, ticker := range c.tickers {
		for !ticker.stopped && !ticker.next.After(c.time) {
			ticker.next = ticker.next.Add(ticker.interval)
			// Like time.Ticker, drop the tick if the receiver is behind.
			select {
			case ticker.ch <- c.time:
			default:
			}
		}
	}
}

// Add moves the clock forward, firing any tickers that come due.
func (c *TestClock) Add(d time.Duration) {
	c.Set(c.Now().Add(d))
}
