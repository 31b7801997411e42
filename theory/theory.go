// Package theory holds pitch naming, MIDI number conversion and scale spelling.
package theory

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// NoteNames is the chromatic alphabet used for every pitch name.
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// DefaultOctaves is the octave window of the piano and grid.
var DefaultOctaves = []int{2, 3, 4, 5}

// ErrBadNoteName is returned for names that are not letter[#]octave.
var ErrBadNoteName = errors.New("bad note name")

var pitchClasses = map[string]int{
	"C": 0, "B#": 0,
	"C#": 1, "Db": 1,
	"D":  2,
	"D#": 3, "Eb": 3,
	"E": 4, "Fb": 4,
	"E#": 5, "F": 5,
	"F#": 6, "Gb": 6,
	"G":  7,
	"G#": 8, "Ab": 8,
	"A":  9,
	"A#": 10, "Bb": 10,
	"B": 11, "Cb": 11,
}

var noteNameRE = regexp.MustCompile(`^([A-G]#?)(-?\d+)$`)

// PitchClass returns 0-11 for a note name without octave, accepting the
// common enharmonic spellings.
func PitchClass(name string) (int, bool) {
	pc, ok := pitchClasses[name]
	return pc, ok
}

// SplitNoteName splits "C#4" into "C#" and 4.
func SplitNoteName(name string) (string, int, error) {
	m := noteNameRE.FindStringSubmatch(name)
	if m == nil {
		return "", 0, fmt.Errorf("%w: %q", ErrBadNoteName, name)
	}
	octave, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrBadNoteName, name)
	}
	return m[1], octave, nil
}

// NoteNameToMIDI converts "C4" to 60.
func NoteNameToMIDI(name string) (int, error) {
	letter, octave, err := SplitNoteName(name)
	if err != nil {
		return 0, err
	}
	pc := indexOf(letter)
	midi := (octave+1)*12 + pc
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("%w: %q outside MIDI range", ErrBadNoteName, name)
	}
	return midi, nil
}

// MIDIToNoteName converts 60 to "C4".
func MIDIToNoteName(n int) string {
	return NoteNames[n%12] + strconv.Itoa(n/12-1)
}

// Linear enumerates every (octave, note name) pair octave by octave. The
// position of a name in the result is its grid column.
func Linear(octaves []int) []string {
	out := make([]string, 0, len(octaves)*len(NoteNames))
	for _, o := range octaves {
		for _, n := range NoteNames {
			out = append(out, n+strconv.Itoa(o))
		}
	}
	return out
}

// IsBlack reports whether a note name (with or without octave) is a black key.
func IsBlack(name string) bool {
	return len(name) > 1 && name[1] == '#'
}

func indexOf(letter string) int {
	for i, n := range NoteNames {
		if n == letter {
			return i
		}
	}
	return -1
}
