package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-pianoroll/sequencer"
	"go-pianoroll/theory"
	"go-pianoroll/widgets"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	v := m.view
	st := m.Theme.Styles

	var out strings.Builder
	out.WriteString(m.header())
	out.WriteString("\n")
	out.WriteString(widgets.RenderTabs(v.Workspaces, v.Current, st.Workspace, st.Current))
	out.WriteString("\n")

	if m.showHelp {
		out.WriteString(widgets.RenderKeyHelp(m.keys.sections()))
		out.WriteString("\n\n")
		out.WriteString(st.Help.Render("press any key to close"))
		return out.String()
	}

	b := m.layout()
	for row := m.top; row < m.top+b.gridRows && row < v.Rows; row++ {
		out.WriteString(m.renderRow(row))
		out.WriteString("\n")
	}
	out.WriteString(widgets.RenderPiano(m.pianoKeys(), widgets.PianoStyles{
		White:     st.WhiteKey,
		Black:     st.BlackKey,
		Held:      st.HeldKey,
		Available: st.Available,
		Hidden:    st.Hidden,
		Octave:    st.Muted,
	}, gutterWidth))
	out.WriteString("\n")
	out.WriteString(m.status())
	out.WriteString("\n")
	out.WriteString(m.help.View(m.keys))
	return out.String()
}

func (m Model) header() string {
	v := m.view
	st := m.Theme.Styles

	state := "■ STOP"
	switch {
	case v.Waiting:
		state = m.Theme.Symbols.Waiting + " WAIT"
	case v.Playing:
		state = m.Theme.Symbols.Playhead + " PLAY"
	}

	tonic := v.Settings.Tonic
	if v.Scale.Tonic != "" {
		tonic = v.Scale.Names[0]
	}
	mode := "fixed tempo"
	if v.Settings.PlayMode == sequencer.PlayModeWait {
		mode = "wait for me"
	}

	parts := []string{
		st.Header.Render("go-pianoroll"),
		state,
		fmt.Sprintf("%d bpm", v.Settings.Tempo),
		tonic + " " + v.Settings.Mode,
		mode,
	}
	if v.WindowLo >= 0 && v.WindowHi < len(v.Octaves) {
		parts = append(parts, fmt.Sprintf("octaves %d-%d", v.Octaves[v.WindowLo], v.Octaves[v.WindowHi]))
	}
	if v.Device != "" {
		dev := "MIDI: " + v.Device
		if v.Range.Set {
			dev += fmt.Sprintf(" (%s-%s)", theory.MIDIToNoteName(v.Range.Low), theory.MIDIToNoteName(v.Range.High))
		}
		parts = append(parts, dev)
	} else {
		parts = append(parts, st.Muted.Render("no MIDI"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderRow(row int) string {
	v := m.view
	st := m.Theme.Styles

	onCursor := (v.Playing || v.Cursor > 0) && row == v.Cursor
	marker := " "
	if onCursor {
		marker = m.Theme.Symbols.Playhead
		if v.Waiting {
			marker = m.Theme.Symbols.Waiting
		}
	}

	var b strings.Builder
	b.WriteString(st.Muted.Render(fmt.Sprintf("%3d", row)))
	b.WriteString(marker)
	b.WriteString(" ")
	for col := 0; col < v.Cols; col++ {
		b.WriteString(m.renderCell(sequencer.Pos{Row: row, Col: col}, onCursor))
	}
	return b.String()
}

func (m Model) renderCell(p sequencer.Pos, onCursor bool) string {
	v := m.view
	st := m.Theme.Styles
	sym := m.Theme.Symbols
	c := v.Cell(p)

	var glyph string
	var s lipgloss.Style
	switch c.Variant {
	case sequencer.Note:
		glyph, s = sym.Note, st.Note
	case sequencer.Accidental:
		glyph, s = sym.Accidental, st.Accidental
	default:
		glyph, s = sym.Empty, st.Empty
		if !v.InKey(p.Col) {
			glyph, s = sym.OutOfKey, st.OutOfKey
		}
	}
	if c.Fingering != "" {
		glyph = c.Fingering
		s = s.Bold(true)
	}
	if !v.Visible(p.Col) {
		s = st.Hidden
	}

	switch {
	case v.HasHover && v.Hover == p:
		s = st.Hover.Inherit(s)
	case v.Selected(p):
		s = st.Selected
	case v.Lassoing && v.Lasso.Contains(p):
		s = s.Background(st.Lasso.GetBackground())
	case onCursor:
		s = s.Background(st.CursorRow.GetBackground())
	}
	return s.Width(widgets.KeyWidth).MaxWidth(widgets.KeyWidth).Render(glyph)
}

func (m Model) pianoKeys() []widgets.PianoKey {
	v := m.view
	keys := make([]widgets.PianoKey, len(v.Pitches))
	for col, pitch := range v.Pitches {
		label := v.Label(col)
		if label == "" {
			label = strings.Replace(theory.NoteNames[col%len(theory.NoteNames)], "#", "♯", 1)
		}
		octave := 0
		if o := col / len(theory.NoteNames); o < len(v.Octaves) {
			octave = v.Octaves[o]
		}
		keys[col] = widgets.PianoKey{
			Letter:     label[:1],
			Accidental: label[1:],
			Octave:     octave,
			Black:      theory.IsBlack(pitch),
			Held:       v.Held[pitch],
			Available:  v.Available(col),
			Hidden:     !v.Visible(col),
		}
	}
	return keys
}

func (m Model) status() string {
	v := m.view
	st := m.Theme.Styles
	switch {
	case m.renaming:
		return m.rename.View()
	case m.confirm != nil:
		return st.Warning.Render(m.confirm.prompt)
	case v.Calibrating:
		return st.Notice.Render(v.Prompt)
	case v.Notice != "":
		return st.Notice.Render(v.Notice)
	case v.Waiting:
		return st.Notice.Render("Waiting for you to play the highlighted notes")
	case v.HasHover:
		p := v.Hover
		info := fmt.Sprintf("row %d  %s", p.Row, v.Pitches[p.Col])
		if c := v.Cell(p); c.Fingering != "" {
			info += "  fingering " + c.Fingering
		}
		return st.Muted.Render(info)
	}
	return ""
}
