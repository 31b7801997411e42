package widgets

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// KeyWidth is the terminal width of one grid column and one piano key
const KeyWidth = 2

// PianoKey is one column of the on-screen keyboard
type PianoKey struct {
	Letter     string // key-signature spelling, e.g. "B"
	Accidental string // "♭", "♯♯" or ""
	Octave     int
	Black      bool
	Held       bool
	Available  bool
	Hidden     bool // outside the octave window
}

type PianoStyles struct {
	White     lipgloss.Style
	Black     lipgloss.Style
	Held      lipgloss.Style
	Available lipgloss.Style
	Hidden    lipgloss.Style
	Octave    lipgloss.Style
}

// RenderPiano draws the keyboard strip under the grid: octave numbers over
// each C, then the spelled letter, then its accidental. prefix is the width
// of the row gutter to its left.
func RenderPiano(keys []PianoKey, st PianoStyles, prefix int) string {
	pad := strings.Repeat(" ", prefix)
	var octaves, letters, accs strings.Builder
	octaves.WriteString(pad)
	letters.WriteString(pad)
	accs.WriteString(pad)

	cell := lipgloss.NewStyle().Width(KeyWidth).MaxWidth(KeyWidth)
	for i, k := range keys {
		o := ""
		if i == 0 || k.Octave != keys[i-1].Octave {
			o = strconv.Itoa(k.Octave)
		}
		octaves.WriteString(st.Octave.Inherit(cell).Render(o))

		s := st.White
		switch {
		case k.Held:
			s = st.Held
		case k.Available:
			s = st.Available
		case k.Hidden:
			s = st.Hidden
		case k.Black:
			s = st.Black
		}
		s = s.Inherit(cell)
		letters.WriteString(s.Render(k.Letter))
		accs.WriteString(s.Render(k.Accidental))
	}
	return octaves.String() + "\n" + letters.String() + "\n" + accs.String()
}

// KeyAt maps a terminal x offset inside the strip to a key index
func KeyAt(x, prefix, n int) (int, bool) {
	x -= prefix
	if x < 0 {
		return 0, false
	}
	i := x / KeyWidth
	return i, i < n
}

// RenderTabs renders the workspace names, highlighting current
func RenderTabs(names []string, current int, normal, active lipgloss.Style) string {
	parts := make([]string, len(names))
	for i, n := range names {
		label := strconv.Itoa(i+1) + ":" + n
		if i == current {
			parts[i] = active.Render(label)
		} else {
			parts[i] = normal.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
