package sequencer

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"

	"go-pianoroll/instrument"
	"go-pianoroll/theory"
)

// MinTempo and MaxTempo bound SetTempo
const (
	MinTempo = 20
	MaxTempo = 300
)

// Command is one discrete input applied to the Manager. apply runs with the
// manager lock held and reports whether the workspace must be persisted.
type Command interface {
	apply(m *Manager) (changed bool, err error)
}

// ToggleCell toggles a cell directly, as a click at Pos
type ToggleCell struct {
	Pos     Pos
	Variant Variant
}

func (c ToggleCell) apply(m *Manager) (bool, error) {
	m.editor.Hover(c.Pos)
	return m.click(c.Pos, c.Variant), nil
}

func (m *Manager) click(p Pos, v Variant) bool {
	changed, preview := m.editor.Click(p, v)
	if preview {
		m.preview(p)
	}
	return changed
}

// BeginSelect is a pointer press on a cell
type BeginSelect struct{ Pos Pos }

func (c BeginSelect) apply(m *Manager) (bool, error) {
	m.editor.BeginDrag(c.Pos)
	return false, nil
}

// ExtendSelect is the pointer moving while pressed
type ExtendSelect struct{ Pos Pos }

func (c ExtendSelect) apply(m *Manager) (bool, error) {
	m.editor.DragTo(c.Pos)
	return false, nil
}

// EndSelect is the pointer release. After a drag the lassoed notes become
// the selection and sound once; otherwise it is a click of Variant at the
// hover position.
type EndSelect struct{ Variant Variant }

func (c EndSelect) apply(m *Manager) (bool, error) {
	selected, wasDrag := m.editor.EndDrag()
	if wasDrag {
		m.preview(selected...)
		return true, nil
	}
	p, ok := m.editor.Hovered()
	if !ok {
		return false, nil
	}
	return m.click(p, c.Variant), nil
}

// ClearSelection is Escape. It also abandons a lasso in progress.
type ClearSelection struct{}

func (ClearSelection) apply(m *Manager) (bool, error) {
	m.editor.Reset()
	return false, nil
}

// MoveSelection shifts the selected cells. Moves that would leave the grid
// are ignored.
type MoveSelection struct{ DRow, DCol int }

func (c MoveSelection) apply(m *Manager) (bool, error) {
	return m.editor.Move(c.DRow, c.DCol), nil
}

// AddFingering appends a finger number to the hovered note
type AddFingering struct{ Digit byte }

func (c AddFingering) apply(m *Manager) (bool, error) {
	return m.editor.Fingering(c.Digit), nil
}

// ClearFingering clears the hovered note's fingering
type ClearFingering struct{}

func (ClearFingering) apply(m *Manager) (bool, error) {
	return m.editor.ClearFingering(), nil
}

// Hover moves the hover cell
type Hover struct{ Pos Pos }

func (c Hover) apply(m *Manager) (bool, error) {
	m.editor.Hover(c.Pos)
	return false, nil
}

// PressKey is a press on the on-screen piano
type PressKey struct{ Pitch string }

func (c PressKey) apply(m *Manager) (bool, error) {
	if _, err := theory.NoteNameToMIDI(c.Pitch); err != nil {
		return false, err
	}
	m.held.Press(c.Pitch, SourceMouse)
	m.inst.Attack(c.Pitch, instrument.DefaultVelocity)
	return false, nil
}

// ReleaseKey releases a piano key held by the pointer. An empty Pitch
// releases every key the pointer holds.
type ReleaseKey struct{ Pitch string }

func (c ReleaseKey) apply(m *Manager) (bool, error) {
	if c.Pitch == "" {
		for _, p := range m.held.ReleaseAll(SourceMouse) {
			m.inst.Release(p)
		}
		return false, nil
	}
	if m.held.Release(c.Pitch, SourceMouse) {
		m.inst.Release(c.Pitch)
	}
	return false, nil
}

// Play starts playback from the top
type Play struct{}

func (Play) apply(m *Manager) (bool, error) {
	return false, m.sched.Play()
}

// Pause halts playback, keeping the cursor
type Pause struct{}

func (Pause) apply(m *Manager) (bool, error) {
	m.sched.Pause()
	return false, nil
}

// Stop halts playback and sends the cursor home
type Stop struct{}

func (Stop) apply(m *Manager) (bool, error) {
	m.sched.Stop()
	return false, nil
}

// TogglePlay plays when idle and stops when running
type TogglePlay struct{}

func (TogglePlay) apply(m *Manager) (bool, error) {
	if m.sched.Running() {
		m.sched.Stop()
		return false, nil
	}
	return false, m.sched.Play()
}

// SetTempo sets BPM, clamped to MinTempo..MaxTempo. It takes effect at the
// next Play.
type SetTempo struct{ BPM int }

func (c SetTempo) apply(m *Manager) (bool, error) {
	bpm := c.BPM
	if bpm < MinTempo {
		bpm = MinTempo
	}
	if bpm > MaxTempo {
		bpm = MaxTempo
	}
	if bpm == m.settings.Tempo {
		return false, nil
	}
	m.settings.Tempo = bpm
	return true, nil
}

var ErrBadPlayMode = fault.New("bad play mode", fmsg.WithDesc("bad play mode",
	"Play mode must be playback or wait."))

// SetPlayMode chooses fixed tempo or gated playback
type SetPlayMode struct{ Mode PlayMode }

func (c SetPlayMode) apply(m *Manager) (bool, error) {
	if c.Mode != PlayModePlayback && c.Mode != PlayModeWait {
		return false, ErrBadPlayMode
	}
	if c.Mode == m.settings.PlayMode {
		return false, nil
	}
	m.settings.PlayMode = c.Mode
	return true, nil
}

// SetTonic changes the key signature's tonic
type SetTonic struct{ Tonic string }

func (c SetTonic) apply(m *Manager) (bool, error) {
	if _, err := theory.SpelledScale(c.Tonic, m.settings.Mode); err != nil {
		return false, err
	}
	m.settings.Tonic = c.Tonic
	return true, nil
}

// SetMode changes the key signature's mode
type SetMode struct{ Mode string }

func (c SetMode) apply(m *Manager) (bool, error) {
	if _, err := theory.SpelledScale(m.settings.Tonic, c.Mode); err != nil {
		return false, err
	}
	m.settings.Mode = c.Mode
	return true, nil
}

// CreateWorkspace appends a workspace and switches to it
type CreateWorkspace struct{}

func (CreateWorkspace) apply(m *Manager) (bool, error) {
	return false, m.ws.Create()
}

// SwitchWorkspace makes Index current
type SwitchWorkspace struct{ Index int }

func (c SwitchWorkspace) apply(m *Manager) (bool, error) {
	if c.Index == m.ws.Current() {
		return false, nil
	}
	return false, m.ws.SwitchTo(c.Index)
}

// RenameWorkspace renames Index
type RenameWorkspace struct {
	Index int
	Name  string
}

func (c RenameWorkspace) apply(m *Manager) (bool, error) {
	return false, m.ws.Rename(c.Index, c.Name)
}

// ClearWorkspace empties Index
type ClearWorkspace struct{ Index int }

func (c ClearWorkspace) apply(m *Manager) (bool, error) {
	return false, m.ws.Clear(c.Index)
}

// DeleteWorkspace removes Index
type DeleteWorkspace struct{ Index int }

func (c DeleteWorkspace) apply(m *Manager) (bool, error) {
	return false, m.ws.Delete(c.Index)
}

// StartCalibration (re)starts the keyboard range wizard
type StartCalibration struct{}

func (StartCalibration) apply(m *Manager) (bool, error) {
	m.calib.Start()
	return false, nil
}

// ExpandWindow shows one more octave to playback
type ExpandWindow struct{}

func (ExpandWindow) apply(m *Manager) (bool, error) {
	m.grid.ExpandWindow()
	return false, nil
}

// ContractWindow hides the top visible octave from playback
type ContractWindow struct{}

func (ContractWindow) apply(m *Manager) (bool, error) {
	m.grid.ContractWindow()
	return false, nil
}
