package sequencer

import (
	"go-pianoroll/theory"
)

// View is an immutable copy of everything the renderer draws
type View struct {
	Rows    int
	Cols    int
	Pitches []string
	Octaves []int
	cells   []Cell

	WindowLo, WindowHi int

	Hover    Pos
	HasHover bool
	Lasso    Rect
	Lassoing bool
	selected map[Pos]bool

	Settings Settings
	Scale    theory.Scale

	Playing bool
	Waiting bool
	Cursor  int

	Workspaces []string
	Current    int

	Calibrating bool
	Prompt      string
	Range       Range
	available   []bool

	Device string
	Held   map[string]bool
	Notice string
}

// Snapshot copies the model for rendering
func (m *Manager) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := m.grid
	v := View{
		Rows:        g.Rows(),
		Cols:        g.Cols(),
		Pitches:     append([]string(nil), g.pitches...),
		Octaves:     append([]int(nil), g.octaves...),
		cells:       append([]Cell(nil), g.cells...),
		Settings:    m.settings,
		Playing:     m.sched.Running(),
		Waiting:     m.sched.Waiting(),
		Cursor:      m.cursor,
		Workspaces:  m.ws.Names(),
		Current:     m.ws.Current(),
		Calibrating: m.calib.Active(),
		Prompt:      m.calib.Prompt(),
		Range:       m.calib.Range(),
		available:   make([]bool, g.Cols()),
		Device:      m.device,
		Held:        make(map[string]bool),
		Notice:      m.notice,
		selected:    make(map[Pos]bool),
	}
	v.WindowLo, v.WindowHi = g.Window()
	v.Hover, v.HasHover = m.editor.Hovered()
	v.Lasso, v.Lassoing = m.editor.Lasso()

	if sc, err := theory.SpelledScale(m.settings.Tonic, m.settings.Mode); err == nil {
		v.Scale = sc
	}
	for _, p := range m.editor.Selection() {
		v.selected[p] = true
	}
	for _, p := range m.editor.lasso {
		v.selected[p] = true
	}
	for c := range v.available {
		v.available[c] = m.available(c)
	}
	for _, p := range m.held.Pitches() {
		v.Held[p] = true
	}
	return v
}

// Cell returns the cell at p
func (v View) Cell(p Pos) Cell {
	if p.Row < 0 || p.Row >= v.Rows || p.Col < 0 || p.Col >= v.Cols {
		return Cell{}
	}
	return v.cells[p.Row*v.Cols+p.Col]
}

// Selected reports whether p is selected or lassoed
func (v View) Selected(p Pos) bool { return v.selected[p] }

// HasSelection reports whether any cell is selected or lassoed
func (v View) HasSelection() bool { return len(v.selected) > 0 }

// Available reports whether col is inside the calibrated keyboard range
func (v View) Available(col int) bool {
	return col >= 0 && col < len(v.available) && v.available[col]
}

// Visible reports whether col lies in the playback window
func (v View) Visible(col int) bool {
	o := col / len(theory.NoteNames)
	return col >= 0 && col < v.Cols && o >= v.WindowLo && o <= v.WindowHi
}

// InKey reports whether col's pitch class belongs to the selected scale
func (v View) InKey(col int) bool {
	if col < 0 || col >= v.Cols || v.Scale.Tonic == "" {
		return true
	}
	return v.Scale.Contains(col % len(theory.NoteNames))
}

// Label is the key-signature spelling of col's pitch class, e.g. "B♭"
func (v View) Label(col int) string {
	if col < 0 || col >= v.Cols {
		return ""
	}
	return v.Scale.Label(col % len(theory.NoteNames))
}
