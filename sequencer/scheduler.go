package sequencer

import (
	"sort"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"

	"go-pianoroll/debug"
	"go-pianoroll/instrument"
)

// ErrNothingToPlay is returned by Play when no visible column has a note.
var ErrNothingToPlay = fault.New("nothing to play", fmsg.WithDesc("nothing to play",
	"No notes to play in this workspace!"))

// WaitPollInterval is how often gated playback checks the held notes
const WaitPollInterval = 50 * time.Millisecond

// EventKind tags scheduler events
type EventKind int

const (
	EventCursor  EventKind = iota // fixed tempo: cursor moves to Row over Duration
	EventScroll                   // gated: grid scrolls to Row over Duration
	EventWaiting                  // gated: Waiting changed
	EventPaused
	EventStopped // cursor returns home
	EventLoop    // gated playback restarted from the top
)

func (k EventKind) String() string {
	switch k {
	case EventCursor:
		return "cursor"
	case EventScroll:
		return "scroll"
	case EventWaiting:
		return "waiting"
	case EventPaused:
		return "paused"
	case EventStopped:
		return "stopped"
	case EventLoop:
		return "loop"
	}
	return "unknown"
}

// Event is a discrete transport change. Animation is left to the renderer.
type Event struct {
	Kind     EventKind
	Row      int
	Duration time.Duration
	At       time.Time
	Waiting  bool
}

// RowDuration is 60000/tempo ms; tempo <= 0 means DefaultTempo. Tempos
// above MaxTempo play at MaxTempo so the duration stays positive.
func RowDuration(tempo int) time.Duration {
	if tempo <= 0 {
		tempo = DefaultTempo
	}
	tempo = min(tempo, MaxTempo)
	return time.Minute / time.Duration(tempo)
}

// Scheduler walks grid rows and drives the instrument. Its methods expect
// the caller to hold lock; timer callbacks take it themselves and drop out
// if playback was restarted or cancelled since they were scheduled.
type Scheduler struct {
	lock     sync.Locker
	clock    Clock
	grid     *Grid
	inst     instrument.Instrument
	held     *HeldNotes
	settings func() Settings
	emit     func(Event)

	mode     PlayMode
	tempo    int
	ticker   Timer
	restart  Timer
	gen      uint64
	rowPtr   int
	lastRow  int
	sounding map[string]bool
	waiting  bool
	beatEnd  time.Time
}

// NewScheduler wires a scheduler to its collaborators. settings is read at
// every Play.
func NewScheduler(lock sync.Locker, clock Clock, grid *Grid, inst instrument.Instrument,
	held *HeldNotes, settings func() Settings, emit func(Event)) *Scheduler {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Scheduler{
		lock:     lock,
		clock:    clock,
		grid:     grid,
		inst:     inst,
		held:     held,
		settings: settings,
		emit:     emit,
		lastRow:  -1,
		sounding: make(map[string]bool),
	}
}

// Running is true while a row timer or a pending restart exists
func (s *Scheduler) Running() bool {
	return s.ticker != nil || s.restart != nil
}

// Row is the row pointer
func (s *Scheduler) Row() int { return s.rowPtr }

// Waiting reports the gated "waiting for input" flag
func (s *Scheduler) Waiting() bool { return s.waiting }

// Mode is the mode of the current or last run
func (s *Scheduler) Mode() PlayMode { return s.mode }

// Sounding lists pitches attacked by playback and not yet released
func (s *Scheduler) Sounding() []string {
	out := make([]string, 0, len(s.sounding))
	for p := range s.sounding {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Play starts from row 0. It is a no-op while running and fails with
// ErrNothingToPlay when the visible columns are empty.
func (s *Scheduler) Play() error {
	if s.Running() {
		return nil
	}
	s.rowPtr = 0
	s.lastRow = s.grid.LastActiveRow()
	if s.lastRow < 0 {
		return ErrNothingToPlay
	}

	st := s.settings()
	s.mode = st.PlayMode
	s.tempo = st.Tempo
	s.gen++
	gen := s.gen
	now := s.clock.Now()
	dur := RowDuration(s.tempo)

	debug.For("play").Info("play", "mode", s.mode, "tempo", s.tempo, "lastRow", s.lastRow)

	if s.mode == PlayModeWait {
		s.setWaiting(true)
		s.beatEnd = now
		s.stepWait()
		if s.gen == gen && s.restart == nil {
			s.ticker = s.clock.Every(WaitPollInterval, s.guard(gen, s.stepWait))
		}
		return nil
	}

	s.setWaiting(false)
	s.beatEnd = now.Add(dur)
	s.stepPlayback()
	if s.gen == gen {
		s.ticker = s.clock.Every(dur, s.guard(gen, s.stepPlayback))
	}
	return nil
}

// Pause stops the timers and releases everything playback attacked. No-op
// when idle.
func (s *Scheduler) Pause() {
	if !s.Running() {
		return
	}
	s.cancel()
	s.releaseAll()
	s.setWaiting(false)
	s.emit(Event{Kind: EventPaused, Row: s.rowPtr, At: s.clock.Now()})
	debug.For("play").Info("paused", "row", s.rowPtr)
}

// Stop pauses and sends the cursor home
func (s *Scheduler) Stop() {
	s.Pause()
	s.rowPtr = 0
	s.emit(Event{Kind: EventStopped, At: s.clock.Now()})
}

func (s *Scheduler) cancel() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.restart != nil {
		s.restart.Stop()
		s.restart = nil
	}
	s.gen++
}

func (s *Scheduler) guard(gen uint64, fn func()) func() {
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		if gen != s.gen {
			return
		}
		fn()
	}
}

func (s *Scheduler) setWaiting(w bool) {
	if s.waiting == w {
		return
	}
	s.waiting = w
	s.emit(Event{Kind: EventWaiting, Row: s.rowPtr, Waiting: w, At: s.clock.Now()})
}

func (s *Scheduler) releaseAll() {
	for _, p := range s.Sounding() {
		s.inst.Release(p)
	}
	s.sounding = make(map[string]bool)
}

// stepPlayback sounds the row under the pointer. The last active row
// sounds for a full interval before playback pauses.
func (s *Scheduler) stepPlayback() {
	now := s.clock.Now()
	dur := RowDuration(s.tempo)
	if s.rowPtr > s.lastRow {
		s.emit(Event{Kind: EventCursor, Row: s.rowPtr, At: now})
		s.Pause()
		return
	}
	s.emit(Event{Kind: EventCursor, Row: s.rowPtr, Duration: dur, At: now})

	want := make(map[string]bool)
	for _, p := range s.grid.NotesInRow(s.rowPtr) {
		want[p] = true
	}
	for _, p := range s.Sounding() {
		if !want[p] {
			s.inst.Release(p)
			delete(s.sounding, p)
		}
	}
	for _, p := range s.grid.NotesInRow(s.rowPtr) {
		if !s.sounding[p] {
			s.inst.Attack(p, instrument.DefaultVelocity)
			s.sounding[p] = true
		}
	}
	s.rowPtr++
}

// stepWait advances one row once every required pitch is held and the
// previous row's duration has elapsed. Past the last row it waits one more
// row and starts again from the top.
func (s *Scheduler) stepWait() {
	now := s.clock.Now()
	if now.Before(s.beatEnd) {
		return
	}
	need := s.grid.NotesInRow(s.rowPtr)
	if !s.held.HasAll(need) {
		s.setWaiting(true)
		debug.LogEvery(40, "play", "waiting row=%d need=%v", s.rowPtr, need)
		return
	}

	s.setWaiting(false)
	for _, p := range need {
		if !s.sounding[p] {
			s.inst.Attack(p, instrument.DefaultVelocity)
			s.sounding[p] = true
		}
	}
	dur := RowDuration(s.tempo)
	s.beatEnd = now.Add(dur)
	s.emit(Event{Kind: EventScroll, Row: s.rowPtr + 1, Duration: dur, At: now})
	s.rowPtr++

	if s.rowPtr > s.lastRow {
		if s.ticker != nil {
			s.ticker.Stop()
			s.ticker = nil
		}
		gen := s.gen
		s.restart = s.clock.AfterFunc(dur, s.guard(gen, s.loop))
	}
}

func (s *Scheduler) loop() {
	s.restart = nil
	s.releaseAll()
	s.rowPtr = 0
	s.emit(Event{Kind: EventLoop, At: s.clock.Now()})
	if err := s.Play(); err != nil {
		debug.For("play").Warn("loop restart failed", "err", err)
		s.setWaiting(false)
		s.emit(Event{Kind: EventStopped, At: s.clock.Now()})
	}
}
