package sequencer

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go-pianoroll/storage"
	"go-pianoroll/theory"
)

func newTestManager(t *testing.T, store storage.Store) (*Manager, *recorder, *ManualClock) {
	t.Helper()
	if store == nil {
		store = storage.NewMemoryStore()
	}
	rec := &recorder{}
	clock := NewManualClock()
	m := NewManager(Options{Store: store, Instrument: rec, Clock: clock})
	return m, rec, clock
}

func apply(t *testing.T, m *Manager, cmds ...Command) {
	t.Helper()
	for _, c := range cmds {
		if err := m.Apply(c); err != nil {
			t.Fatalf("Apply(%T): %v", c, err)
		}
	}
}

func savedList(t *testing.T, store storage.Store) []Workspace {
	t.Helper()
	raw, err := store.Get(StoreKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var list []Workspace
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.Fatalf("stored document: %v", err)
	}
	return list
}

func TestLoadDefaults(t *testing.T) {
	for name, raw := range map[string]string{
		"missing": "",
		"corrupt": "{not json",
		"empty":   "[]",
		"null":    "null",
	} {
		store := storage.NewMemoryStore()
		if raw != "" {
			store.Set(StoreKey, raw)
		}
		m, _, _ := newTestManager(t, store)
		v := m.Snapshot()
		if !reflect.DeepEqual(v.Workspaces, []string{"Workspace 1"}) || v.Current != 0 {
			t.Fatalf("%s: workspaces %v current %d", name, v.Workspaces, v.Current)
		}
		if v.Settings != DefaultSettings() {
			t.Fatalf("%s: settings %+v", name, v.Settings)
		}
	}
}

func TestLoadBrowserDocument(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Set(StoreKey, `[{"name":"Etude","state":{"key":"F","mode":"major","tempo":"72",
		"playMode":"playback","green":[5],"blue":[100],"fings":[[5,"3"]]}},{"name":"Other","state":null}]`)

	m, _, _ := newTestManager(t, store)
	v := m.Snapshot()
	if !reflect.DeepEqual(v.Workspaces, []string{"Etude", "Other"}) {
		t.Fatalf("names = %v", v.Workspaces)
	}
	if v.Settings.Tonic != "F" || v.Settings.Tempo != 72 {
		t.Fatalf("settings = %+v", v.Settings)
	}
	if c := v.Cell(Pos{0, 5}); c.Variant != Note || c.Fingering != "3" {
		t.Fatalf("cell 5 = %+v", c)
	}
	if c := v.Cell(Pos{100 / 48, 100 % 48}); c.Variant != Accidental {
		t.Fatalf("cell 100 = %+v", c)
	}
}

func TestWorkspaceLimit(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	for i := 1; i < MaxWorkspaces; i++ {
		apply(t, m, CreateWorkspace{})
	}
	v := m.Snapshot()
	if len(v.Workspaces) != MaxWorkspaces || v.Current != MaxWorkspaces-1 {
		t.Fatalf("%d workspaces, current %d", len(v.Workspaces), v.Current)
	}
	if v.Workspaces[9] != "Workspace 10" {
		t.Fatalf("last name %q", v.Workspaces[9])
	}
	if err := m.Apply(CreateWorkspace{}); !errors.Is(err, ErrWorkspaceLimit) {
		t.Fatalf("create at capacity: %v", err)
	}
	if n := len(m.Snapshot().Workspaces); n != MaxWorkspaces {
		t.Fatalf("count changed to %d", n)
	}
}

func TestDeleteLastWorkspaceRejected(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	if err := m.Apply(DeleteWorkspace{Index: 0}); !errors.Is(err, ErrLastWorkspace) {
		t.Fatalf("delete only workspace: %v", err)
	}
	if n := len(m.Snapshot().Workspaces); n != 1 {
		t.Fatalf("count = %d", n)
	}
	if err := m.Apply(DeleteWorkspace{Index: 3}); !errors.Is(err, ErrNoWorkspace) {
		t.Fatalf("delete out of range: %v", err)
	}
}

// threeWorkspaces builds workspaces whose only note sits in column i
func threeWorkspaces(t *testing.T) (*Manager, storage.Store) {
	store := storage.NewMemoryStore()
	m, _, _ := newTestManager(t, store)
	apply(t, m, ToggleCell{Pos{0, 0}, Note})
	apply(t, m, CreateWorkspace{}, ToggleCell{Pos{0, 1}, Note})
	apply(t, m, CreateWorkspace{}, ToggleCell{Pos{0, 2}, Note})
	return m, store
}

func currentColumn(m *Manager) int {
	v := m.Snapshot()
	for c := 0; c < v.Cols; c++ {
		if v.Cell(Pos{0, c}).Variant != Empty {
			return c
		}
	}
	return -1
}

func TestDeleteKeepsCurrentIdentity(t *testing.T) {
	tests := []struct {
		name       string
		current    int
		del        int
		wantIdx    int
		wantColumn int
	}{
		{"before current", 2, 0, 1, 2},
		{"after current", 0, 2, 0, 0},
		{"current in the middle", 1, 1, 1, 2},
		{"current at the end", 2, 2, 1, 1},
	}
	for _, tt := range tests {
		m, store := threeWorkspaces(t)
		apply(t, m, SwitchWorkspace{tt.current})
		apply(t, m, DeleteWorkspace{tt.del})

		v := m.Snapshot()
		if len(v.Workspaces) != 2 || v.Current != tt.wantIdx {
			t.Fatalf("%s: %d workspaces, current %d, want %d", tt.name, len(v.Workspaces), v.Current, tt.wantIdx)
		}
		if got := currentColumn(m); got != tt.wantColumn {
			t.Fatalf("%s: live grid has column %d, want %d", tt.name, got, tt.wantColumn)
		}
		if n := len(savedList(t, store)); n != 2 {
			t.Fatalf("%s: persisted %d workspaces", tt.name, n)
		}
	}
}

func TestSwitchSavesOutgoingGrid(t *testing.T) {
	m, store := threeWorkspaces(t)
	apply(t, m, SwitchWorkspace{0})
	if currentColumn(m) != 0 {
		t.Fatalf("workspace 0 did not come back")
	}
	apply(t, m, ToggleCell{Pos{0, 7}, Accidental}, SwitchWorkspace{1}, SwitchWorkspace{0})
	if m.Snapshot().Cell(Pos{0, 7}).Variant != Accidental {
		t.Fatalf("edit lost across switch")
	}
	list := savedList(t, store)
	if !reflect.DeepEqual(list[0].State.Blue, []int{7}) {
		t.Fatalf("persisted blue = %v", list[0].State.Blue)
	}
}

func TestClearWorkspace(t *testing.T) {
	m, store := threeWorkspaces(t)
	apply(t, m, SetTempo{90}, ClearWorkspace{2})
	v := m.Snapshot()
	if currentColumn(m) != -1 {
		t.Fatalf("grid not cleared")
	}
	if v.Settings.Tempo != 90 || v.Workspaces[2] != "Workspace 3" {
		t.Fatalf("clear changed settings or name: %+v %v", v.Settings, v.Workspaces)
	}

	apply(t, m, ClearWorkspace{0}, SwitchWorkspace{0})
	if currentColumn(m) != -1 {
		t.Fatalf("cleared background workspace still has notes")
	}
	if list := savedList(t, store); list[0].State != nil && len(list[0].State.Green) != 0 {
		t.Fatalf("persisted notes after clear: %v", list[0].State.Green)
	}
}

func TestRenameWorkspace(t *testing.T) {
	store := storage.NewMemoryStore()
	m, _, _ := newTestManager(t, store)

	for _, blank := range []string{"", "   ", "\t\n"} {
		if err := m.Apply(RenameWorkspace{0, blank}); !errors.Is(err, ErrBlankName) {
			t.Fatalf("rename to %q: %v", blank, err)
		}
	}
	if m.Snapshot().Notice != "Workspace names can't be blank." {
		t.Fatalf("notice = %q", m.Snapshot().Notice)
	}

	apply(t, m, RenameWorkspace{0, "  Cafe\u0301 etude "})
	want := "Caf\u00e9 etude"
	if got := m.Snapshot().Workspaces[0]; got != want {
		t.Fatalf("name = %q, want %q", got, want)
	}
	if got := savedList(t, store)[0].Name; got != want {
		t.Fatalf("persisted name = %q", got)
	}
}

func TestReloadFromStore(t *testing.T) {
	m, store := threeWorkspaces(t)
	apply(t, m, SetPlayMode{PlayModeWait}, SwitchWorkspace{0})

	again, _, _ := newTestManager(t, store)
	v := again.Snapshot()
	if len(v.Workspaces) != 3 || v.Current != 0 {
		t.Fatalf("reloaded %v current %d", v.Workspaces, v.Current)
	}
	for i := 0; i < 3; i++ {
		ws, err := again.Workspace(i)
		if err != nil {
			t.Fatalf("Workspace(%d): %v", i, err)
		}
		if !reflect.DeepEqual(ws.State.Green, []int{i}) {
			t.Fatalf("workspace %d green = %v", i, ws.State.Green)
		}
	}
	ws, _ := again.Workspace(2)
	if ws.State.PlayMode != PlayModeWait {
		t.Fatalf("play mode not saved: %+v", ws.State)
	}
	if _, err := again.Workspace(9); !errors.Is(err, ErrNoWorkspace) {
		t.Fatalf("Workspace(9) err = %v", err)
	}
}

func TestOversizedListTrimmed(t *testing.T) {
	list := make([]Workspace, 14)
	for i := range list {
		list[i].Name = fmt.Sprintf("W%d", i)
	}
	raw, _ := json.Marshal(list)
	store := storage.NewMemoryStore()
	store.Set(StoreKey, string(raw))
	m, _, _ := newTestManager(t, store)
	if n := len(m.Snapshot().Workspaces); n != MaxWorkspaces {
		t.Fatalf("loaded %d workspaces", n)
	}
}

func TestReopenWithFewerOctavesKeepsNotes(t *testing.T) {
	store := storage.NewMemoryStore()
	open := func(octaves []int) *Manager {
		return NewManager(Options{Store: store, Octaves: octaves, Instrument: &recorder{}, Clock: NewManualClock()})
	}

	m := open(theory.DefaultOctaves)
	apply(t, m, ToggleCell{Pos{150, 40}, Note})
	if got := savedList(t, store)[0].State.Green; !reflect.DeepEqual(got, []int{7240}) {
		t.Fatalf("saved green = %v", got)
	}

	m = open([]int{4})
	apply(t, m, SetTempo{BPM: 90})
	if list := savedList(t, store); !reflect.DeepEqual(list[0].State.Octaves, []int{4, 5}) {
		t.Fatalf("saved layout = %v", list[0].State.Octaves)
	}

	m = open(theory.DefaultOctaves)
	if c := m.Snapshot().Cell(Pos{150, 40}); c.Variant != Note {
		t.Fatalf("E5 lost after reopening: %+v", c)
	}
	apply(t, m, SetTempo{BPM: 100})
	if got := savedList(t, store)[0].State.Green; !reflect.DeepEqual(got, []int{7240}) {
		t.Fatalf("green after reopening = %v", got)
	}
}
