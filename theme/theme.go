package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
	Styles  Styles
}

type Symbols struct {
	Empty      string // · empty cell
	Note       string // ● note
	Accidental string // ◆ accidental note
	OutOfKey   string // empty cell in a column outside the key
	Playhead   string // ▶ gutter marker on the playing row
	Waiting    string // ◌ gutter marker while gated playback waits
}

// Styles are the lipgloss styles the piano roll is drawn with
type Styles struct {
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Notice  lipgloss.Style
	Warning lipgloss.Style
	Help    lipgloss.Style

	Empty      lipgloss.Style
	OutOfKey   lipgloss.Style
	Note       lipgloss.Style
	Accidental lipgloss.Style
	Fingering  lipgloss.Style

	Hover     lipgloss.Style
	Selected  lipgloss.Style
	Lasso     lipgloss.Style
	CursorRow lipgloss.Style
	Hidden    lipgloss.Style // columns outside the octave window

	WhiteKey  lipgloss.Style
	BlackKey  lipgloss.Style
	HeldKey   lipgloss.Style
	Available lipgloss.Style
	Workspace lipgloss.Style
	Current   lipgloss.Style
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG         = 0.0
	RoleSurface    = 1.0 / 9
	RoleMuted      = 2.0 / 9
	RoleDim        = 3.0 / 9
	RoleFG         = 4.0 / 9
	RoleAccidental = 5.0 / 9
	RoleCursor     = 6.0 / 9
	RoleNote       = 7.0 / 9
	RoleWarning    = 8.0 / 9
	RoleHighlight  = 1.0
)

func New(palette *Palette) *Theme {
	if palette == nil || len(palette.Colors) == 0 {
		palette = Default()
	}
	t := &Theme{
		Palette: palette,
		Symbols: Symbols{
			Empty:      "·",
			Note:       "●",
			Accidental: "◆",
			OutOfKey:   " ",
			Playhead:   "▶",
			Waiting:    "◌",
		},
	}
	t.Styles = t.styles()
	return t
}

func (t *Theme) styles() Styles {
	fg := t.Color(RoleFG)
	return Styles{
		Header:  lipgloss.NewStyle().Foreground(t.Color(RoleHighlight)).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(t.Color(RoleDim)),
		Notice:  lipgloss.NewStyle().Foreground(t.Color(RoleCursor)),
		Warning: lipgloss.NewStyle().Foreground(t.Color(RoleWarning)).Bold(true),
		Help:    lipgloss.NewStyle().Foreground(t.Color(RoleDim)),

		Empty:      lipgloss.NewStyle().Foreground(t.Color(RoleMuted)),
		OutOfKey:   lipgloss.NewStyle().Foreground(t.Color(RoleSurface)),
		Note:       lipgloss.NewStyle().Foreground(t.Color(RoleNote)),
		Accidental: lipgloss.NewStyle().Foreground(t.Color(RoleAccidental)),
		Fingering:  lipgloss.NewStyle().Foreground(t.Color(RoleBG)).Bold(true),

		Hover:     lipgloss.NewStyle().Reverse(true),
		Selected:  lipgloss.NewStyle().Background(t.Color(RoleCursor)).Foreground(t.Color(RoleBG)),
		Lasso:     lipgloss.NewStyle().Background(t.Color(RoleMuted)),
		CursorRow: lipgloss.NewStyle().Background(t.Color(RoleSurface)),
		Hidden:    lipgloss.NewStyle().Foreground(t.Color(RoleSurface)).Faint(true),

		WhiteKey:  lipgloss.NewStyle().Foreground(t.Color(RoleBG)).Background(fg),
		BlackKey:  lipgloss.NewStyle().Foreground(fg).Background(t.Color(RoleBG)),
		HeldKey:   lipgloss.NewStyle().Foreground(t.Color(RoleBG)).Background(t.Color(RoleNote)).Bold(true),
		Available: lipgloss.NewStyle().Foreground(t.Color(RoleBG)).Background(t.Color(RoleAccidental)),
		Workspace: lipgloss.NewStyle().Foreground(t.Color(RoleDim)).Padding(0, 1),
		Current:   lipgloss.NewStyle().Foreground(t.Color(RoleBG)).Background(t.Color(RoleCursor)).Padding(0, 1),
	}
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return lipgloss.Color(t.Palette.Lookup(norm).Hex())
}

func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleHighlight) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleDim) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
