package sequencer

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle to a pending or repeating callback
type Timer interface {
	Stop()
}

// Clock supplies time and timers to the scheduler
type Clock interface {
	Now() time.Time
	// Every calls fn every d, first after d
	Every(d time.Duration, fn func()) Timer
	AfterFunc(d time.Duration, fn func()) Timer
}

// WallClock is the real time Clock
func WallClock() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := time.AfterFunc(d, fn)
	return stopFunc(func() { t.Stop() })
}

// stopFunc adapts a func to Timer; *time.Timer.Stop returns a bool
type stopFunc func()

func (f stopFunc) Stop() { f() }

func (wallClock) Every(d time.Duration, fn func()) Timer {
	t := &ticker{t: time.NewTicker(d), stopChan: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.stopChan:
				return
			case <-t.t.C:
				fn()
			}
		}
	}()
	return t
}

type ticker struct {
	t        *time.Ticker
	stopChan chan struct{}
	once     sync.Once
}

func (t *ticker) Stop() {
	t.once.Do(func() {
		t.t.Stop()
		close(t.stopChan)
	})
}

// ManualClock only moves when Advance is called. Callbacks run on the
// caller's goroutine in due order, so scheduler tests are deterministic.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	c       *ManualClock
	at      time.Time
	every   time.Duration
	fn      func()
	seq     int
	stopped bool
}

func (t *manualTimer) Stop() {
	t.c.mu.Lock()
	t.stopped = true
	t.c.mu.Unlock()
}

// NewManualClock starts at a fixed instant
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Every(d time.Duration, fn func()) Timer {
	return c.add(d, d, fn)
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) Timer {
	return c.add(d, 0, fn)
}

func (c *ManualClock) add(d, every time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{c: c, at: c.now.Add(d), every: every, fn: fn, seq: c.seq}
	c.timers = append(c.timers, t)
	return t
}

// Pending counts live timers
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, firing every callback that falls due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		live := c.timers[:0]
		for _, t := range c.timers {
			if !t.stopped {
				live = append(live, t)
			}
		}
		c.timers = live
		sort.SliceStable(c.timers, func(i, j int) bool {
			if c.timers[i].at.Equal(c.timers[j].at) {
				return c.timers[i].seq < c.timers[j].seq
			}
			return c.timers[i].at.Before(c.timers[j].at)
		})
		if len(c.timers) == 0 || c.timers[0].at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		next := c.timers[0]
		c.now = next.at
		if next.every > 0 {
			next.at = next.at.Add(next.every)
		} else {
			next.stopped = true
		}
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}
