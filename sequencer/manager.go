package sequencer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Southclaws/fault/fmsg"

	"go-pianoroll/debug"
	"go-pianoroll/instrument"
	"go-pianoroll/midi"
	"go-pianoroll/storage"
	"go-pianoroll/theory"
)

// PreviewDuration is how long a clicked or lassoed cell sounds
const PreviewDuration = 250 * time.Millisecond

// Options configures a Manager. Zero fields get defaults.
type Options struct {
	Octaves      []int
	Store        storage.Store
	Instrument   instrument.Instrument
	Clock        Clock
	DefaultTempo int
	MIDI         *midi.Connection
}

// Manager is the application context: it owns the grid, the workspace
// list, calibration, the held-note set and the scheduler, and applies
// every input as a Command under one lock.
type Manager struct {
	mu sync.Mutex

	grid     *Grid
	editor   *Editor
	held     *HeldNotes
	calib    Calibration
	sched    *Scheduler
	ws       *Workspaces
	inst     instrument.Instrument
	clock    Clock
	settings Settings

	conn   *midi.Connection
	device string

	cursor  int
	notice  string
	events  chan Event
	running bool

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// NewManager builds the context in order grid, workspaces (loading the
// persisted list), calibration, scheduler. A load failure is logged and
// leaves one empty workspace.
func NewManager(opts Options) *Manager {
	if len(opts.Octaves) == 0 {
		opts.Octaves = theory.DefaultOctaves
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemoryStore()
	}
	if opts.Instrument == nil {
		opts.Instrument = instrument.Silent{}
	}
	if opts.Clock == nil {
		opts.Clock = WallClock()
	}

	m := &Manager{
		grid:       NewGrid(Rows, opts.Octaves),
		held:       NewHeldNotes(),
		inst:       opts.Instrument,
		clock:      opts.Clock,
		settings:   DefaultSettings(),
		conn:       opts.MIDI,
		events:     make(chan Event, 64),
		UpdateChan: make(chan struct{}, 1),
	}
	if opts.DefaultTempo > 0 {
		m.settings.Tempo = opts.DefaultTempo
	}
	m.editor = NewEditor(m.grid)

	m.ws = newWorkspaces(opts.Store, managerSession{m})
	if err := m.ws.load(); err != nil {
		debug.For("workspace").Warn("load failed, starting fresh", "err", err)
	}

	m.sched = NewScheduler(&m.mu, m.clock, m.grid, m.inst, m.held,
		func() Settings { return m.settings }, m.onEvent)

	if m.conn != nil {
		m.conn.OnDisconnect(m.midiLost)
	}
	return m
}

// managerSession exposes the live grid and transport to Workspaces. Every
// call happens with m.mu held.
type managerSession struct{ m *Manager }

func (s managerSession) Stop() {
	if s.m.sched != nil {
		s.m.sched.Stop()
	}
}

func (s managerSession) Capture() *State {
	m := s.m
	green, blue, fings := m.grid.Snapshot()
	return &State{
		Key:      m.settings.Tonic,
		Mode:     m.settings.Mode,
		Tempo:    Tempo(m.settings.Tempo),
		PlayMode: m.settings.PlayMode,
		Green:    green,
		Blue:     blue,
		Fings:    fings,
		Octaves:  m.grid.Layout(),
	}
}

// Restore loads st into the grid. A nil state empties the grid and keeps
// the current settings.
func (s managerSession) Restore(st *State) {
	m := s.m
	m.grid.Apply(st)
	m.editor.Reset()
	if n := m.grid.OffGrid(); n > 0 {
		debug.For("workspace").Info("keeping cells outside the configured octaves", "count", n, "octaves", m.grid.Octaves())
	}
	if st != nil {
		m.settings = st.Settings()
	}
}

// Apply runs cmd under the manager lock, persists if it changed the
// workspace and notifies listeners. A user-facing error becomes the notice.
func (m *Manager) Apply(cmd Command) error {
	m.mu.Lock()
	changed, err := cmd.apply(m)
	if changed {
		if perr := m.ws.persist(); perr != nil {
			debug.For("workspace").Error("persist failed", "err", perr)
			if err == nil {
				err = perr
			}
		}
	}
	switch {
	case err != nil:
		m.notice = UserMessage(err)
		debug.For("cmd").Info("command failed", "cmd", fmt.Sprintf("%T", cmd), "err", err)
	case changed:
		m.notice = ""
	}
	m.mu.Unlock()

	m.notifyUpdate()
	return err
}

// UserMessage returns the friendly text of err if it carries one
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	return err.Error()
}

// Events delivers scheduler events. Events are dropped when nobody reads.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// onEvent runs with m.mu held
func (m *Manager) onEvent(ev Event) {
	switch ev.Kind {
	case EventCursor, EventScroll:
		m.cursor = ev.Row
	case EventStopped, EventLoop:
		m.cursor = 0
	}
	select {
	case m.events <- ev:
	default:
	}
	m.notifyUpdate()
}

// notifyUpdate signals the TUI without blocking
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

// preview sounds the pitch of each cell briefly
func (m *Manager) preview(cells ...Pos) {
	for _, p := range cells {
		if pitch := m.grid.Pitch(p.Col); pitch != "" {
			m.inst.AttackRelease(pitch, PreviewDuration)
		}
	}
}

// Playing reports whether the scheduler is running
func (m *Manager) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sched.Running()
}

// Settings returns the live transport and key settings
func (m *Manager) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Workspace returns a copy of workspace i with its saved state
func (m *Manager) Workspace(i int) (Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ws.Get(i)
}

// Available reports whether col's key lies inside the calibrated range
// while highlighting is shown.
func (m *Manager) Available(col int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available(col)
}

func (m *Manager) available(col int) bool {
	n, err := theory.NoteNameToMIDI(m.grid.Pitch(col))
	if err != nil {
		return false
	}
	return m.calib.Available(n)
}

// ConnectMIDI binds the configured MIDI input. Calibration starts on its
// own the first time a device connects.
func (m *Manager) ConnectMIDI(ctx context.Context) (string, error) {
	var (
		name string
		err  error = midi.ErrNoDeviceFound
	)
	if m.conn != nil {
		name, err = m.conn.Connect(ctx)
	}

	m.mu.Lock()
	if err != nil {
		m.notice = UserMessage(err)
	} else {
		m.device = name
		m.notice = "Connected to " + name
		if !m.calib.Range().Set {
			m.calib.Start()
		}
	}
	m.mu.Unlock()

	m.notifyUpdate()
	return name, err
}

// DisconnectMIDI unbinds the input and drops the range highlighting
func (m *Manager) DisconnectMIDI() {
	if m.conn == nil {
		return
	}
	m.conn.Disconnect()

	m.mu.Lock()
	m.resetMIDILocked()
	m.mu.Unlock()
	m.notifyUpdate()
}

// midiLost is called by the connection watcher when the device vanishes
func (m *Manager) midiLost(name string) {
	m.mu.Lock()
	m.resetMIDILocked()
	m.notice = fmt.Sprintf("MIDI device %q disconnected", name)
	m.mu.Unlock()
	m.notifyUpdate()
}

func (m *Manager) resetMIDILocked() {
	m.device = ""
	m.calib.Cancel()
	m.calib.ClearHighlight()
	for _, p := range m.held.ReleaseAll(SourceMIDI) {
		m.inst.Release(p)
	}
}

// Run consumes MIDI input until ctx is done. Call it once, in its own
// goroutine.
func (m *Manager) Run(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	var in <-chan midi.Message
	if m.conn != nil {
		in = m.conn.Messages()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-in:
			m.HandleMIDI(msg)
		}
	}
}

// Close stops playback, releases every held note, saves and unbinds MIDI
func (m *Manager) Close() error {
	if m.conn != nil {
		m.conn.Disconnect()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sched.Stop()
	for _, p := range m.held.ReleaseAll(SourceMouse | SourceMIDI) {
		m.inst.Release(p)
	}
	return m.ws.persist()
}
