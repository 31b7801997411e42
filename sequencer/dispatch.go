package sequencer

import (
	"fmt"

	"go-pianoroll/debug"
	"go-pianoroll/midi"
	"go-pianoroll/theory"
)

// HandleMIDI routes one incoming message. Calibration sees note-ons first;
// the tap still sounds. A note-off only releases a pitch MIDI pressed.
func (m *Manager) HandleMIDI(msg midi.Message) {
	m.mu.Lock()
	defer m.notifyUpdate()
	defer m.mu.Unlock()

	if m.calib.Active() {
		if m.calib.Observe(msg) {
			r := m.calib.Range()
			m.notice = fmt.Sprintf("Keyboard range %s to %s",
				theory.MIDIToNoteName(r.Low), theory.MIDIToNoteName(r.High))
			debug.For("midi").Info("calibrated", "low", r.Low, "high", r.High)
		}
	}

	pitch := theory.MIDIToNoteName(int(msg.Note))
	switch msg.Kind() {
	case midi.KindNoteOn:
		m.inst.Attack(pitch, float64(msg.Velocity)/127)
		m.held.Press(pitch, SourceMIDI)
	case midi.KindNoteOff:
		if m.held.Release(pitch, SourceMIDI) {
			m.inst.Release(pitch)
		}
	default:
		debug.LogEvery(50, "midi", "ignored %s", msg)
	}
}
