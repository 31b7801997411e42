package sequencer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go-pianoroll/midi"
	"go-pianoroll/storage"
)

func TestToggleCellPersistsAndPreviews(t *testing.T) {
	store := storage.NewMemoryStore()
	m, rec, _ := newTestManager(t, store)

	apply(t, m, ToggleCell{Pos{2, 24}, Note})
	if !reflect.DeepEqual(rec.previews, []string{"C4"}) {
		t.Fatalf("previews = %v", rec.previews)
	}
	if list := savedList(t, store); !reflect.DeepEqual(list[0].State.Green, []int{2*48 + 24}) {
		t.Fatalf("persisted green = %v", list[0].State.Green)
	}

	apply(t, m, ToggleCell{Pos{2, 24}, Note})
	if len(rec.previews) != 1 {
		t.Fatalf("clearing a cell previewed it")
	}
	if list := savedList(t, store); len(list[0].State.Green) != 0 {
		t.Fatalf("persisted green = %v", list[0].State.Green)
	}
}

func TestPointerGestures(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)

	// press and release on one cell is a click with the button's variant
	apply(t, m, BeginSelect{Pos{0, 0}}, EndSelect{Accidental})
	apply(t, m, BeginSelect{Pos{1, 1}}, EndSelect{Note})
	if v := m.Snapshot(); v.Cell(Pos{0, 0}).Variant != Accidental || v.Cell(Pos{1, 1}).Variant != Note {
		t.Fatalf("clicks not applied")
	}
	rec.reset()

	apply(t, m, BeginSelect{Pos{0, 0}}, ExtendSelect{Pos{0, 1}}, ExtendSelect{Pos{2, 2}})
	v := m.Snapshot()
	if !v.Lassoing || !v.Selected(Pos{1, 1}) {
		t.Fatalf("lasso not visible in snapshot")
	}
	apply(t, m, EndSelect{Note})
	if !reflect.DeepEqual(rec.previews, []string{"C2", "C#2"}) {
		t.Fatalf("lasso previews = %v", rec.previews)
	}

	apply(t, m, MoveSelection{DRow: 3})
	v = m.Snapshot()
	if v.Cell(Pos{3, 0}).Variant != Accidental || v.Cell(Pos{4, 1}).Variant != Note || v.Cell(Pos{0, 0}).Variant != Empty {
		t.Fatalf("selection not moved")
	}
	apply(t, m, MoveSelection{DRow: -10})
	if m.Snapshot().Cell(Pos{3, 0}).Variant != Accidental {
		t.Fatalf("out of bounds move applied")
	}

	// with a selection present a click only clears it
	apply(t, m, BeginSelect{Pos{9, 9}}, EndSelect{Note})
	v = m.Snapshot()
	if v.Cell(Pos{9, 9}).Variant != Empty || v.Selected(Pos{3, 0}) {
		t.Fatalf("click with selection should only deselect")
	}

	apply(t, m, Hover{Pos{4, 1}}, AddFingering{'2'}, AddFingering{'4'})
	if f := m.Snapshot().Cell(Pos{4, 1}).Fingering; f != "24" {
		t.Fatalf("fingering = %q", f)
	}
	apply(t, m, ClearFingering{})
	if f := m.Snapshot().Cell(Pos{4, 1}).Fingering; f != "" {
		t.Fatalf("fingering not cleared: %q", f)
	}
}

func TestMousePiano(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	apply(t, m, PressKey{"C4"}, PressKey{"E4"})
	if v := m.Snapshot(); !v.Held["C4"] || !v.Held["E4"] {
		t.Fatalf("held = %v", v.Held)
	}
	apply(t, m, ReleaseKey{"E4"})
	apply(t, m, ReleaseKey{"E4"})
	if !reflect.DeepEqual(rec.releases, []string{"E4"}) {
		t.Fatalf("releases = %v", rec.releases)
	}
	apply(t, m, ReleaseKey{})
	if !reflect.DeepEqual(rec.releases, []string{"E4", "C4"}) {
		t.Fatalf("releases = %v", rec.releases)
	}
	if err := m.Apply(PressKey{"X9"}); err == nil {
		t.Fatalf("bad pitch accepted")
	}
}

func TestSettingsCommands(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	apply(t, m, SetTempo{5})
	if m.Settings().Tempo != MinTempo {
		t.Fatalf("tempo = %d", m.Settings().Tempo)
	}
	apply(t, m, SetTempo{1000})
	if m.Settings().Tempo != MaxTempo {
		t.Fatalf("tempo = %d", m.Settings().Tempo)
	}
	if err := m.Apply(SetPlayMode{"shuffle"}); !errors.Is(err, ErrBadPlayMode) {
		t.Fatalf("SetPlayMode err = %v", err)
	}
	if err := m.Apply(SetTonic{"H"}); err == nil {
		t.Fatalf("bad tonic accepted")
	}
	apply(t, m, SetTonic{"Bb"}, SetMode{"minor"})
	v := m.Snapshot()
	if v.Settings.Tonic != "Bb" || v.Settings.Mode != "minor" {
		t.Fatalf("settings = %+v", v.Settings)
	}
	// B♭ minor has G♭ but not G
	if !v.InKey(6) || v.InKey(7) || v.Label(6) != "G♭" {
		t.Fatalf("key shading wrong: InKey(F#)=%v InKey(G)=%v label %q", v.InKey(6), v.InKey(7), v.Label(6))
	}
}

func TestPlayThroughManager(t *testing.T) {
	m, rec, clock := newTestManager(t, nil)
	err := m.Apply(Play{})
	if !errors.Is(err, ErrNothingToPlay) {
		t.Fatalf("Play on empty grid: %v", err)
	}
	if m.Snapshot().Notice != "No notes to play in this workspace!" {
		t.Fatalf("notice = %q", m.Snapshot().Notice)
	}

	apply(t, m, ToggleCell{Pos{1, 24}, Note}, Play{})
	if !m.Playing() {
		t.Fatalf("not playing")
	}
	clock.Advance(500 * time.Millisecond)
	if m.Snapshot().Cursor != 1 || len(rec.attacks) != 1 {
		t.Fatalf("cursor %d attacks %v", m.Snapshot().Cursor, rec.attacks)
	}

	apply(t, m, CreateWorkspace{})
	if m.Playing() || clock.Pending() != 0 {
		t.Fatalf("switching workspaces must stop playback")
	}
	if !reflect.DeepEqual(rec.releases, []string{"C4"}) {
		t.Fatalf("releases = %v", rec.releases)
	}
	if m.Snapshot().Cursor != 0 {
		t.Fatalf("cursor not home")
	}

	var kinds []EventKind
	for {
		select {
		case ev := <-m.Events():
			kinds = append(kinds, ev.Kind)
			continue
		default:
		}
		break
	}
	if len(kinds) == 0 || kinds[len(kinds)-1] != EventStopped {
		t.Fatalf("events = %v", kinds)
	}
}

func TestPlayWithHugeStoredTempo(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Set(StoreKey, `[{"name":"Fast","state":{"tempo":1e11,"playMode":"playback","green":[24]}}]`)
	m, rec, clock := newTestManager(t, store)
	if got := m.Settings().Tempo; got != MaxTempo {
		t.Fatalf("tempo = %d, want %d", got, MaxTempo)
	}

	apply(t, m, Play{})
	clock.Advance(RowDuration(MaxTempo))
	if len(rec.attacks) != 1 || rec.attacks[0] != "C4" {
		t.Fatalf("attacks = %v", rec.attacks)
	}
	apply(t, m, Stop{})
}

func TestTogglePlayAndWindow(t *testing.T) {
	m, _, clock := newTestManager(t, nil)
	// B5 sits in the top octave
	apply(t, m, ToggleCell{Pos{0, 47}, Note}, ContractWindow{})
	if err := m.Apply(TogglePlay{}); !errors.Is(err, ErrNothingToPlay) {
		t.Fatalf("hidden octave played: %v", err)
	}
	apply(t, m, ExpandWindow{}, TogglePlay{})
	if !m.Playing() {
		t.Fatalf("not playing")
	}
	apply(t, m, TogglePlay{})
	if m.Playing() || clock.Pending() != 0 {
		t.Fatalf("TogglePlay did not stop")
	}
	apply(t, m, Play{}, Pause{})
	if m.Playing() {
		t.Fatalf("Pause did not stop")
	}
	apply(t, m, Stop{})
}

func TestHandleMIDI(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)

	m.HandleMIDI(noteOn(60, 127))
	m.HandleMIDI(noteOn(64, 0)) // note-off for a key never pressed
	m.HandleMIDI(noteOff(62))
	m.HandleMIDI(controlChange(64))
	if !reflect.DeepEqual(rec.attacks, []string{"C4"}) || rec.velocity[0] != 1 {
		t.Fatalf("attacks %v velocity %v", rec.attacks, rec.velocity)
	}
	if len(rec.releases) != 0 {
		t.Fatalf("released unheld notes: %v", rec.releases)
	}
	if !m.Snapshot().Held["C4"] {
		t.Fatalf("C4 not held")
	}
	m.HandleMIDI(noteOn(60, 0))
	if !reflect.DeepEqual(rec.releases, []string{"C4"}) || m.Snapshot().Held["C4"] {
		t.Fatalf("zero velocity note-on did not release")
	}

	// the mouse and MIDI hold the same key independently
	apply(t, m, PressKey{"D4"})
	m.HandleMIDI(noteOff(62))
	if !m.Snapshot().Held["D4"] || len(rec.releases) != 1 {
		t.Fatalf("MIDI note-off released a mouse-held key")
	}
}

func TestCalibrationThroughMIDI(t *testing.T) {
	m, rec, _ := newTestManager(t, nil)
	apply(t, m, StartCalibration{})
	if v := m.Snapshot(); !v.Calibrating || !strings.Contains(v.Prompt, "LOWEST") {
		t.Fatalf("prompt = %q", v.Prompt)
	}
	m.HandleMIDI(noteOn(48, 80))
	m.HandleMIDI(noteOff(48))
	m.HandleMIDI(noteOn(71, 80))

	v := m.Snapshot()
	if v.Calibrating || v.Range != (Range{48, 71, true}) {
		t.Fatalf("range = %+v calibrating %v", v.Range, v.Calibrating)
	}
	if len(rec.attacks) != 2 {
		t.Fatalf("calibration taps should still sound: %v", rec.attacks)
	}
	c3, c4, c5 := 12, 24, 36
	if !v.Available(c3) || !v.Available(c4) || v.Available(c5) || v.Available(c3-1) {
		t.Fatalf("availability wrong")
	}
	if !strings.Contains(v.Notice, "C3") || !strings.Contains(v.Notice, "B4") {
		t.Fatalf("notice = %q", v.Notice)
	}
}

type fakePort struct {
	name string

	mu    sync.Mutex
	onMsg func(midi.Message)
}

func (p *fakePort) Name() string { return p.name }

func (p *fakePort) Listen(onMsg func(midi.Message), onErr func(error)) (func(), error) {
	p.mu.Lock()
	p.onMsg = onMsg
	p.mu.Unlock()
	return func() {}, nil
}

func (p *fakePort) Close() error { return nil }

func (p *fakePort) send(m midi.Message) {
	p.mu.Lock()
	fn := p.onMsg
	p.mu.Unlock()
	fn(m)
}

type fakeAccess struct {
	mu    sync.Mutex
	ports []midi.Port
}

func (a *fakeAccess) Inputs() ([]midi.Port, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]midi.Port(nil), a.ports...), nil
}

func (a *fakeAccess) unplug() {
	a.mu.Lock()
	a.ports = nil
	a.mu.Unlock()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMIDIConnectionLifecycle(t *testing.T) {
	port := &fakePort{name: "Digital Piano"}
	access := &fakeAccess{ports: []midi.Port{port}}
	conn := midi.NewConnection(access, "")
	conn.SetPollRate(10 * time.Millisecond)

	rec := &recorder{}
	m := NewManager(Options{Instrument: rec, Clock: NewManualClock(), MIDI: conn})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	name, err := m.ConnectMIDI(ctx)
	if err != nil || name != "Digital Piano" {
		t.Fatalf("ConnectMIDI = %q, %v", name, err)
	}
	if v := m.Snapshot(); !v.Calibrating || v.Device != "Digital Piano" {
		t.Fatalf("first connect should start calibration: %+v", v.Prompt)
	}

	port.send(noteOn(36, 100))
	port.send(noteOn(84, 100))
	waitFor(t, "calibration", func() bool { return m.Snapshot().Range.Set })
	if !m.Available(24) {
		t.Fatalf("C4 should be available")
	}

	port.send(noteOn(60, 100))
	waitFor(t, "held C4", func() bool { return m.Snapshot().Held["C4"] })

	access.unplug()
	waitFor(t, "disconnect", func() bool { return m.Snapshot().Device == "" })

	v := m.Snapshot()
	if v.Available(24) || !v.Range.Set {
		t.Fatalf("unplug should drop highlighting and keep the range")
	}
	if v.Held["C4"] {
		t.Fatalf("MIDI-held note survived the unplug")
	}
	if !strings.Contains(v.Notice, "disconnected") {
		t.Fatalf("notice = %q", v.Notice)
	}
	rec.mu.Lock()
	released := append([]string(nil), rec.releases...)
	rec.mu.Unlock()
	// the two calibration taps were never released either
	if !reflect.DeepEqual(released, []string{"C2", "C4", "C6"}) {
		t.Fatalf("releases = %v", released)
	}

	// reconnecting does not recalibrate once a range exists
	access.mu.Lock()
	access.ports = []midi.Port{port}
	access.mu.Unlock()
	if _, err := m.ConnectMIDI(ctx); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if m.Snapshot().Calibrating {
		t.Fatalf("reconnect restarted calibration")
	}
	m.DisconnectMIDI()
	if m.Snapshot().Device != "" {
		t.Fatalf("DisconnectMIDI kept the device")
	}
}

func TestConnectWithoutMIDI(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	if _, err := m.ConnectMIDI(context.Background()); !errors.Is(err, midi.ErrNoDeviceFound) {
		t.Fatalf("err = %v", err)
	}
	if got := m.Snapshot().Notice; got != UserMessage(midi.ErrNoDeviceFound) {
		t.Fatalf("notice = %q", got)
	}
	m.DisconnectMIDI()
}

func TestCloseReleasesEverything(t *testing.T) {
	store := storage.NewMemoryStore()
	m, rec, _ := newTestManager(t, store)
	apply(t, m, PressKey{"A4"}, ToggleCell{Pos{0, 0}, Note}, Play{})
	m.HandleMIDI(noteOn(62, 90))
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.Playing() || len(m.Snapshot().Held) != 0 {
		t.Fatalf("Close left playback or held notes")
	}
	got := append([]string(nil), rec.releases...)
	for _, want := range []string{"A4", "D4", "C2"} {
		found := false
		for _, r := range got {
			found = found || r == want
		}
		if !found {
			t.Fatalf("Close did not release %s: %v", want, got)
		}
	}
	if _, err := store.Get(StoreKey); err != nil {
		t.Fatalf("Close did not persist: %v", err)
	}
}
