package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"go-pianoroll/debug"
	"go-pianoroll/sequencer"
	"go-pianoroll/theme"
	"go-pianoroll/theory"
	"go-pianoroll/widgets"
)

const (
	headerLines = 2 // title, workspace tabs
	pianoLines  = 3
	footerLines = 2 // status, help bar
	gutterWidth = 5 // "123▶ "
	tempoStep   = 5
)

// layoutBounds holds the screen rows of each region, for hit testing
type layoutBounds struct {
	gridTop  int
	gridRows int
	pianoTop int
}

type confirmation struct {
	prompt string
	cmd    sequencer.Command
}

type Model struct {
	Manager *sequencer.Manager
	Theme   *theme.Theme

	// ExportPath is where "e" writes; empty derives a name from the workspace
	ExportPath string

	ctx      context.Context
	keys     keyMap
	help     help.Model
	rename   textinput.Model
	renaming bool
	confirm  *confirmation
	showHelp bool
	marking  bool

	view          sequencer.View
	width, height int
	top           int

	dragging  bool
	dragWith  sequencer.Variant
	pianoHeld bool
	quitting  bool
}

type UpdateMsg struct{}

type EventMsg sequencer.Event

type releaseKeyMsg struct{ pitch string }

func NewModel(ctx context.Context, manager *sequencer.Manager, th *theme.Theme) Model {
	ti := textinput.New()
	ti.Prompt = "Rename: "
	ti.CharLimit = 64

	return Model{
		Manager: manager,
		Theme:   th,
		ctx:     ctx,
		keys:    newKeyMap(),
		help:    help.New(),
		rename:  ti,
		view:    manager.Snapshot(),
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForEvents(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		return EventMsg(<-manager.Events())
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Manager),
		ListenForEvents(m.Manager),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.follow(m.hoverPos().Row)

	case UpdateMsg:
		m.refresh()
		return m, ListenForUpdates(m.Manager)

	case EventMsg:
		m.onEvent(sequencer.Event(msg))
		return m, ListenForEvents(m.Manager)

	case releaseKeyMsg:
		m.apply(sequencer.ReleaseKey{Pitch: msg.pitch})

	case tea.MouseMsg:
		m.mouse(msg)

	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m *Model) refresh() {
	m.view = m.Manager.Snapshot()
}

// apply runs commands against the manager. Rejections already surface as
// the manager's notice, so they are only logged here.
func (m *Model) apply(cmds ...sequencer.Command) {
	for _, c := range cmds {
		if err := m.Manager.Apply(c); err != nil {
			debug.For("tui").Debug("command rejected", "cmd", fmt.Sprintf("%T", c), "err", err)
		}
	}
	m.refresh()
}

func (m *Model) onEvent(ev sequencer.Event) {
	switch ev.Kind {
	case sequencer.EventCursor, sequencer.EventScroll:
		m.follow(ev.Row)
	case sequencer.EventStopped, sequencer.EventLoop:
		m.top = 0
	}
	m.refresh()
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.renaming {
		return m.renameKey(msg)
	}
	if c := m.confirm; c != nil {
		m.confirm = nil
		if msg.String() == "y" || msg.String() == "Y" {
			m.apply(c.cmd)
		}
		return m, nil
	}
	if m.showHelp && !key.Matches(msg, m.keys.Quit) {
		m.showHelp = false
		return m, nil
	}

	k := m.keys
	v := m.view
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		m.apply(sequencer.Stop{})
		return m, tea.Quit

	case key.Matches(msg, k.Help):
		m.showHelp = true

	case key.Matches(msg, k.Up):
		m.arrow(-1, 0)
	case key.Matches(msg, k.Down):
		m.arrow(1, 0)
	case key.Matches(msg, k.Left):
		m.arrow(0, -1)
	case key.Matches(msg, k.Right):
		m.arrow(0, 1)
	case key.Matches(msg, k.PageUp):
		m.moveHover(-m.layout().gridRows, 0)
	case key.Matches(msg, k.PageDown):
		m.moveHover(m.layout().gridRows, 0)
	case key.Matches(msg, k.Top):
		m.moveHover(-v.Rows, 0)

	case key.Matches(msg, k.Note):
		m.apply(sequencer.ToggleCell{Pos: m.hoverPos(), Variant: sequencer.Note})
	case key.Matches(msg, k.Accidental):
		m.apply(sequencer.ToggleCell{Pos: m.hoverPos(), Variant: sequencer.Accidental})
	case key.Matches(msg, k.Mark):
		if m.marking {
			m.marking = false
			m.apply(sequencer.EndSelect{Variant: sequencer.Note})
		} else {
			m.marking = true
			m.apply(sequencer.BeginSelect{Pos: m.hoverPos()})
		}
	case key.Matches(msg, k.Finger):
		m.apply(sequencer.Hover{Pos: m.hoverPos()}, sequencer.AddFingering{Digit: msg.String()[0]})
	case key.Matches(msg, k.ClearFinger):
		m.apply(sequencer.ClearFingering{})
	case key.Matches(msg, k.Escape):
		m.marking = false
		m.apply(sequencer.ClearSelection{})
	case key.Matches(msg, k.Sound):
		col := m.hoverPos().Col
		if col < 0 || col >= len(v.Pitches) {
			break
		}
		pitch := v.Pitches[col]
		m.apply(sequencer.PressKey{Pitch: pitch})
		return m, tea.Tick(sequencer.PreviewDuration, func(time.Time) tea.Msg {
			return releaseKeyMsg{pitch}
		})

	case key.Matches(msg, k.Play):
		m.apply(sequencer.TogglePlay{})
	case key.Matches(msg, k.Stop):
		m.apply(sequencer.Stop{})
	case key.Matches(msg, k.Wait):
		mode := sequencer.PlayModeWait
		if v.Settings.PlayMode == sequencer.PlayModeWait {
			mode = sequencer.PlayModePlayback
		}
		m.apply(sequencer.SetPlayMode{Mode: mode})
	case key.Matches(msg, k.Faster):
		m.apply(sequencer.SetTempo{BPM: v.Settings.Tempo + tempoStep})
	case key.Matches(msg, k.Slower):
		m.apply(sequencer.SetTempo{BPM: v.Settings.Tempo - tempoStep})
	case key.Matches(msg, k.Tonic):
		m.apply(sequencer.SetTonic{Tonic: cycle(theory.Tonics, v.Settings.Tonic, 1)})
	case key.Matches(msg, k.TonicBack):
		m.apply(sequencer.SetTonic{Tonic: cycle(theory.Tonics, v.Settings.Tonic, -1)})
	case key.Matches(msg, k.Mode):
		mode := theory.Minor
		if v.Settings.Mode == theory.Minor {
			mode = theory.Major
		}
		m.apply(sequencer.SetMode{Mode: mode})
	case key.Matches(msg, k.Expand):
		m.apply(sequencer.ExpandWindow{})
	case key.Matches(msg, k.Contract):
		m.apply(sequencer.ContractWindow{})

	case key.Matches(msg, k.NextWS):
		m.apply(sequencer.SwitchWorkspace{Index: (v.Current + 1) % len(v.Workspaces)})
	case key.Matches(msg, k.PrevWS):
		m.apply(sequencer.SwitchWorkspace{Index: (v.Current + len(v.Workspaces) - 1) % len(v.Workspaces)})
	case key.Matches(msg, k.NewWS):
		m.apply(sequencer.CreateWorkspace{})
	case key.Matches(msg, k.RenameWS):
		m.renaming = true
		m.rename.SetValue("")
		m.rename.Placeholder = v.Workspaces[v.Current]
		return m, m.rename.Focus()
	case key.Matches(msg, k.ClearWS):
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Clear all notes in %q? (y/n)", v.Workspaces[v.Current]),
			cmd:    sequencer.ClearWorkspace{Index: v.Current},
		}
	case key.Matches(msg, k.DeleteWS):
		m.confirm = &confirmation{
			prompt: fmt.Sprintf("Delete %q? (y/n)", v.Workspaces[v.Current]),
			cmd:    sequencer.DeleteWorkspace{Index: v.Current},
		}

	case key.Matches(msg, k.Calibrate):
		m.apply(sequencer.StartCalibration{})
	case key.Matches(msg, k.Connect):
		mgr, ctx := m.Manager, m.ctx
		if v.Device != "" {
			return m, func() tea.Msg {
				mgr.DisconnectMIDI()
				return nil
			}
		}
		return m, func() tea.Msg {
			mgr.ConnectMIDI(ctx)
			return nil
		}
	case key.Matches(msg, k.Export):
		mgr, path := m.Manager, m.exportPath()
		return m, func() tea.Msg {
			mgr.ExportSMF(path)
			return nil
		}
	}
	return m, nil
}

func (m Model) renameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.renaming = false
		m.rename.Blur()
		m.apply(sequencer.RenameWorkspace{Index: m.view.Current, Name: m.rename.Value()})
		return m, nil
	case tea.KeyEsc:
		m.renaming = false
		m.rename.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

// arrow moves the selection when there is one, else the hover cell
func (m *Model) arrow(dRow, dCol int) {
	if m.view.HasSelection() && !m.marking {
		m.apply(sequencer.MoveSelection{DRow: dRow, DCol: dCol})
		return
	}
	m.moveHover(dRow, dCol)
}

func (m *Model) moveHover(dRow, dCol int) {
	p := m.hoverPos()
	p.Row = max(0, min(m.view.Rows-1, p.Row+dRow))
	p.Col = max(0, min(m.view.Cols-1, p.Col+dCol))
	if m.marking {
		m.apply(sequencer.ExtendSelect{Pos: p})
	} else {
		m.apply(sequencer.Hover{Pos: p})
	}
	m.follow(p.Row)
}

// hoverPos is the hover cell, starting on middle C of the top visible row
func (m Model) hoverPos() sequencer.Pos {
	if m.view.HasHover {
		return m.view.Hover
	}
	col := m.view.Cols / 2
	for i, p := range m.view.Pitches {
		if p == "C4" {
			col = i
		}
	}
	return sequencer.Pos{Row: m.top, Col: col}
}

func (m *Model) mouse(msg tea.MouseMsg) {
	p, onGrid := m.cellAt(msg.X, msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.scroll(-3)
	case msg.Button == tea.MouseButtonWheelDown:
		m.scroll(3)

	case msg.Action == tea.MouseActionPress:
		if onGrid && (msg.Button == tea.MouseButtonLeft || msg.Button == tea.MouseButtonRight) {
			m.dragging = true
			m.dragWith = sequencer.Note
			if msg.Button == tea.MouseButtonRight {
				m.dragWith = sequencer.Accidental
			}
			m.apply(sequencer.BeginSelect{Pos: p})
			return
		}
		if pitch, ok := m.keyAt(msg.X, msg.Y); ok && msg.Button == tea.MouseButtonLeft {
			m.pianoHeld = true
			m.apply(sequencer.PressKey{Pitch: pitch})
		}

	case msg.Action == tea.MouseActionMotion:
		if !onGrid {
			return
		}
		if m.dragging {
			m.apply(sequencer.ExtendSelect{Pos: p})
		} else if !m.view.HasHover || m.view.Hover != p {
			m.apply(sequencer.Hover{Pos: p})
		}

	case msg.Action == tea.MouseActionRelease:
		if m.dragging {
			m.dragging = false
			if onGrid {
				m.apply(sequencer.ExtendSelect{Pos: p})
			}
			m.apply(sequencer.EndSelect{Variant: m.dragWith})
		}
		if m.pianoHeld {
			m.pianoHeld = false
			m.apply(sequencer.ReleaseKey{})
		}
	}
}

func (m Model) layout() layoutBounds {
	rows := 24
	if m.height > 0 {
		rows = m.height
	}
	rows -= headerLines + pianoLines + footerLines
	if m.view.Rows > 0 {
		rows = min(rows, m.view.Rows)
	}
	rows = max(rows, 4)
	return layoutBounds{
		gridTop:  headerLines,
		gridRows: rows,
		pianoTop: headerLines + rows,
	}
}

// cellAt maps a screen position to a grid cell
func (m Model) cellAt(x, y int) (sequencer.Pos, bool) {
	b := m.layout()
	if y < b.gridTop || y >= b.gridTop+b.gridRows {
		return sequencer.Pos{}, false
	}
	col, ok := widgets.KeyAt(x, gutterWidth, m.view.Cols)
	row := m.top + y - b.gridTop
	if !ok || row >= m.view.Rows {
		return sequencer.Pos{}, false
	}
	return sequencer.Pos{Row: row, Col: col}, true
}

// keyAt maps a screen position on the piano strip to a pitch
func (m Model) keyAt(x, y int) (string, bool) {
	b := m.layout()
	if y < b.pianoTop || y >= b.pianoTop+pianoLines {
		return "", false
	}
	col, ok := widgets.KeyAt(x, gutterWidth, len(m.view.Pitches))
	if !ok {
		return "", false
	}
	return m.view.Pitches[col], true
}

func (m *Model) scroll(d int) {
	m.top = m.clampTop(m.top + d)
}

// follow scrolls the smallest amount that keeps row on screen
func (m *Model) follow(row int) {
	h := m.layout().gridRows
	switch {
	case row < m.top:
		m.top = row
	case row >= m.top+h:
		m.top = row - h + 1
	}
	m.top = m.clampTop(m.top)
}

func (m Model) clampTop(top int) int {
	return max(0, min(top, m.view.Rows-m.layout().gridRows))
}

func (m Model) exportPath() string {
	if m.ExportPath != "" {
		return m.ExportPath
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, m.view.Workspaces[m.view.Current])
	return name + ".mid"
}

func cycle(list []string, cur string, d int) string {
	for i, s := range list {
		if s == cur {
			return list[(i+d+len(list))%len(list)]
		}
	}
	return list[0]
}
