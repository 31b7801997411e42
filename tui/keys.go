package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"go-pianoroll/widgets"
)

type keyMap struct {
	Up, Down, Left, Right key.Binding
	PageUp, PageDown, Top key.Binding

	Note, Accidental, Mark key.Binding
	Finger, ClearFinger    key.Binding
	Escape, Sound          key.Binding

	Play, Stop, Wait  key.Binding
	Faster, Slower    key.Binding
	Tonic, TonicBack  key.Binding
	Mode              key.Binding
	Expand, Contract  key.Binding
	NextWS, PrevWS    key.Binding
	NewWS, RenameWS   key.Binding
	ClearWS, DeleteWS key.Binding

	Calibrate, Connect, Export key.Binding
	Help, Quit                 key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up (moves selection)")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "lower pitch")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "higher pitch")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Top:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first row")),

		Note:        key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle note")),
		Accidental:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle accidental note")),
		Mark:        key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "start/end lasso")),
		Finger:      key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "add fingering")),
		ClearFinger: key.NewBinding(key.WithKeys("backspace", "delete", "0"), key.WithHelp("bksp", "clear fingering")),
		Escape:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection")),
		Sound:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sound pitch")),

		Play:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play/stop")),
		Stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Wait:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "fixed tempo / wait for me")),
		Faster:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "tempo up")),
		Slower:    key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "tempo down")),
		Tonic:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t/T", "next/previous key")),
		TonicBack: key.NewBinding(key.WithKeys("T")),
		Mode:      key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "major/minor")),
		Expand:    key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "play one more octave")),
		Contract:  key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "play one octave less")),

		NextWS:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]/[", "next/previous workspace")),
		PrevWS:   key.NewBinding(key.WithKeys("[")),
		NewWS:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new workspace")),
		RenameWS: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename workspace")),
		ClearWS:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear workspace")),
		DeleteWS: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete workspace")),

		Calibrate: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calibrate keyboard")),
		Connect:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "connect/disconnect MIDI")),
		Export:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export .mid")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp is the one-line help bar
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Note, k.Accidental, k.Play, k.Wait, k.Faster, k.NextWS, k.Connect, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.PageUp, k.PageDown, k.Top},
		{k.Note, k.Accidental, k.Mark, k.Finger, k.ClearFinger, k.Escape, k.Sound},
		{k.Play, k.Stop, k.Wait, k.Faster, k.Slower, k.Tonic, k.Mode, k.Expand, k.Contract},
		{k.NextWS, k.NewWS, k.RenameWS, k.ClearWS, k.DeleteWS},
		{k.Calibrate, k.Connect, k.Export, k.Help, k.Quit},
	}
}

// sections is the full help page
func (k keyMap) sections() []widgets.KeySection {
	titles := []string{"Move", "Edit", "Playback", "Workspaces", "Other"}
	full := k.FullHelp()
	out := make([]widgets.KeySection, len(full))
	for i, group := range full {
		out[i] = widgets.Section(titles[i], group...)
	}
	out = append(out, widgets.KeySection{Title: "Mouse", Keys: []widgets.KeyBinding{
		{Key: "left click", Desc: "toggle note"},
		{Key: "right click", Desc: "toggle accidental note"},
		{Key: "drag", Desc: "lasso notes"},
		{Key: "piano key", Desc: "hold to sound"},
		{Key: "wheel", Desc: "scroll"},
	}})
	return out
}
