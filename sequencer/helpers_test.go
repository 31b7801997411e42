package sequencer

import (
	"sync"
	"time"
)

// recorder is an Instrument that remembers every call
type recorder struct {
	mu       sync.Mutex
	attacks  []string
	releases []string
	previews []string
	velocity []float64
}

func (r *recorder) Attack(pitch string, velocity float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attacks = append(r.attacks, pitch)
	r.velocity = append(r.velocity, velocity)
}

func (r *recorder) Release(pitch string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases = append(r.releases, pitch)
}

func (r *recorder) AttackRelease(pitch string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previews = append(r.previews, pitch)
}

func (r *recorder) Close() error { return nil }

func (r *recorder) counts() (attacks, releases, previews int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attacks), len(r.releases), len(r.previews)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attacks, r.releases, r.previews, r.velocity = nil, nil, nil, nil
}

// eventLog collects scheduler events
type eventLog struct {
	events []Event
}

func (l *eventLog) emit(ev Event) { l.events = append(l.events, ev) }

func (l *eventLog) kinds() []EventKind {
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func (l *eventLog) last(kind EventKind) (Event, bool) {
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind == kind {
			return l.events[i], true
		}
	}
	return Event{}, false
}
