package theory

import (
	"fmt"
	"strings"
)

// Mode names accepted by SpelledScale.
const (
	Major = "major"
	Minor = "minor"
)

var (
	majorSteps = [7]int{0, 2, 4, 5, 7, 9, 11}
	minorSteps = [7]int{0, 2, 3, 5, 7, 8, 10}
	letters    = [7]string{"C", "D", "E", "F", "G", "A", "B"}
	naturalPC  = map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}
)

// Scale is a seven note scale with letter-correct spellings.
type Scale struct {
	Tonic string
	Mode  string
	PCs   [7]int
	Names [7]string
}

// SpelledScale builds the scale of tonic in mode ("major" or "minor"), spelling
// each degree on consecutive letters with ♯/♭ accidentals.
func SpelledScale(tonic, mode string) (Scale, error) {
	root, ok := PitchClass(tonic)
	if !ok {
		return Scale{}, fmt.Errorf("unknown tonic %q", tonic)
	}
	steps := majorSteps
	switch strings.ToLower(mode) {
	case Major, "":
		mode = Major
	case Minor:
		steps = minorSteps
		mode = Minor
	default:
		return Scale{}, fmt.Errorf("unknown mode %q", mode)
	}

	start := 0
	for i, l := range letters {
		if l == tonic[:1] {
			start = i
		}
	}

	s := Scale{Tonic: tonic, Mode: mode}
	for i := 0; i < 7; i++ {
		letter := letters[(start+i)%7]
		target := (root + steps[i]) % 12
		d := (target - naturalPC[letter] + 12) % 12
		if d > 6 {
			d -= 12
		}
		s.PCs[i] = target
		s.Names[i] = letter + accidental(d)
	}
	return s, nil
}

func accidental(d int) string {
	switch d {
	case 1:
		return "♯"
	case 2:
		return "♯♯"
	case -1:
		return "♭"
	case -2:
		return "♭♭"
	}
	return ""
}

// Contains reports whether pitch class pc is a degree of the scale.
func (s Scale) Contains(pc int) bool {
	for _, p := range s.PCs {
		if p == pc {
			return true
		}
	}
	return false
}

// Label returns the spelled name of pc, or "" when pc is out of key.
func (s Scale) Label(pc int) string {
	for i, p := range s.PCs {
		if p == pc {
			return s.Names[i]
		}
	}
	return ""
}

// LabelFor returns the spelled label of a full note name such as "F#4".
func (s Scale) LabelFor(note string) string {
	letter, _, err := SplitNoteName(note)
	if err != nil {
		return ""
	}
	pc, _ := PitchClass(letter)
	return s.Label(pc)
}

// Tonics lists the tonic choices offered by the key selector.
var Tonics = []string{"C", "C#", "Db", "D", "Eb", "E", "F", "F#", "Gb", "G", "Ab", "A", "Bb", "B"}
