// Package instrument sounds pitches named like "C#4".
package instrument

import (
	"math"
	"time"

	"go-pianoroll/theory"
)

// Instrument accepts note-on, note-off and one-shot preview triggers. Pitch
// names that don't parse are logged and ignored.
type Instrument interface {
	Attack(pitch string, velocity float64)
	Release(pitch string)
	AttackRelease(pitch string, d time.Duration)
	Close() error
}

// DefaultVelocity is used by mouse and playback triggers
const DefaultVelocity = 0.8

// velocity7 maps 0..1 to a MIDI velocity of 1..127
func velocity7(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		v = DefaultVelocity
	}
	if v > 1 {
		v = 1
	}
	n := uint8(math.Round(v * 127))
	if n == 0 {
		n = 1
	}
	return n
}

func key(pitch string) (uint8, bool) {
	n, err := theory.NoteNameToMIDI(pitch)
	if err != nil {
		return 0, false
	}
	return uint8(n), true
}
