package sequencer

import "go-pianoroll/midi"

// CalibrationStage is the wizard's position
type CalibrationStage int

const (
	CalibrationIdle CalibrationStage = iota
	CalibrationAwaitingLow
	CalibrationAwaitingHigh
)

// Range is the playable MIDI range of the connected keyboard. The zero
// value is unset and restricts nothing.
type Range struct {
	Low, High int
	Set       bool
}

// Contains reports whether note is playable
func (r Range) Contains(note int) bool {
	return !r.Set || (note >= r.Low && note <= r.High)
}

// Calibration learns the lowest and highest physical key from two taps.
type Calibration struct {
	stage     CalibrationStage
	low       int
	rng       Range
	highlight bool
}

// Start (re)starts at AwaitingLow, discarding a stage in progress
func (c *Calibration) Start() {
	c.stage = CalibrationAwaitingLow
	c.low = 0
}

// Cancel abandons a stage in progress, keeping any previous range
func (c *Calibration) Cancel() {
	c.stage = CalibrationIdle
	c.low = 0
}

// Active is true while waiting for a tap
func (c *Calibration) Active() bool {
	return c.stage != CalibrationIdle
}

func (c *Calibration) Stage() CalibrationStage { return c.stage }
func (c *Calibration) Range() Range            { return c.rng }

// Observe feeds a MIDI message to the wizard. Only note-ons with velocity
// count. Returns true when the range was just set.
func (c *Calibration) Observe(m midi.Message) bool {
	if c.stage == CalibrationIdle || m.Kind() != midi.KindNoteOn {
		return false
	}
	note := int(m.Note)
	switch c.stage {
	case CalibrationAwaitingLow:
		c.low = note
		c.stage = CalibrationAwaitingHigh
		return false
	case CalibrationAwaitingHigh:
		lo, hi := c.low, note
		if lo > hi {
			lo, hi = hi, lo
		}
		c.rng = Range{Low: lo, High: hi, Set: true}
		c.stage = CalibrationIdle
		c.highlight = true
		return true
	}
	return false
}

// Available reports whether a key should be shown as playable. Nothing is
// highlighted until calibration finishes, or after a disconnect.
func (c *Calibration) Available(note int) bool {
	return c.highlight && c.rng.Contains(note)
}

// Highlighting is true while range highlighting is shown
func (c *Calibration) Highlighting() bool { return c.highlight }

// ClearHighlight drops the availability marks, keeping the range
func (c *Calibration) ClearHighlight() {
	c.highlight = false
}

// Prompt is the text shown for the current stage
func (c *Calibration) Prompt() string {
	switch c.stage {
	case CalibrationAwaitingLow:
		return "Keyboard calibration: press the LOWEST note on your MIDI keyboard."
	case CalibrationAwaitingHigh:
		return "Great! Now press the HIGHEST note."
	}
	return ""
}
