package sequencer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go-pianoroll/theory"
)

// StoreKey is the storage key holding the workspace list
const StoreKey = "pianoSequencerWorkspaces"

// PlayMode selects the scheduler behaviour
type PlayMode string

const (
	PlayModePlayback PlayMode = "playback" // fixed tempo, stops at the end
	PlayModeWait     PlayMode = "wait"     // gated on held notes, loops
)

// DefaultTempo is used when tempo is unset or not positive. Stored tempos
// are clamped to MinTempo..MaxTempo.
const DefaultTempo = 120

// Settings are the transport and key choices saved with a workspace
type Settings struct {
	Tonic    string
	Mode     string
	Tempo    int
	PlayMode PlayMode
}

// DefaultSettings returns C major, 120 BPM, fixed tempo playback
func DefaultSettings() Settings {
	return Settings{
		Tonic:    "C",
		Mode:     theory.Major,
		Tempo:    DefaultTempo,
		PlayMode: PlayModePlayback,
	}
}

// State is the persisted snapshot of one workspace
type State struct {
	Key      string      `json:"key"`
	Mode     string      `json:"mode"`
	Tempo    Tempo       `json:"tempo"`
	PlayMode PlayMode    `json:"playMode"`
	Green    []int       `json:"green"`
	Blue     []int       `json:"blue"`
	Fings    []Fingering `json:"fings"`

	// Octaves is the column layout the indices refer to. Documents
	// without it use theory.DefaultOctaves.
	Octaves []int `json:"octaves,omitempty"`
}

// Settings extracts the settings, filling gaps with defaults
func (s *State) Settings() Settings {
	d := DefaultSettings()
	if s == nil {
		return d
	}
	if _, ok := theory.PitchClass(s.Key); ok {
		d.Tonic = s.Key
	}
	if s.Mode == theory.Major || s.Mode == theory.Minor {
		d.Mode = s.Mode
	}
	if s.Tempo > 0 {
		d.Tempo = max(MinTempo, min(MaxTempo, int(s.Tempo)))
	}
	if s.PlayMode == PlayModeWait {
		d.PlayMode = PlayModeWait
	}
	return d
}

// Workspace is a named, independently persisted sequence
type Workspace struct {
	Name  string `json:"name"`
	State *State `json:"state"`
}

// Tempo is BPM. It decodes from a JSON number or a numeric string and
// encodes as a number.
type Tempo int

func (t *Tempo) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*t = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			*t = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("tempo %s: %w", data, err)
	}
	if math.IsNaN(f) {
		f = 0
	}
	// keep the conversion in range; Settings clamps to MinTempo..MaxTempo
	*t = Tempo(max(-math.MaxInt32, min(math.MaxInt32, f)))
	return nil
}

// Fingering attaches digits to a cell index. JSON form: [index, "digits"].
type Fingering struct {
	Index  int
	Digits string
}

func (f Fingering) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Index, f.Digits})
}

func (f *Fingering) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("fingering: want [index, digits], got %s", data)
	}
	if err := json.Unmarshal(pair[0], &f.Index); err != nil {
		return fmt.Errorf("fingering index: %w", err)
	}
	if err := json.Unmarshal(pair[1], &f.Digits); err != nil {
		// tolerate a bare number like 12
		var n int
		if err2 := json.Unmarshal(pair[1], &n); err2 != nil {
			return fmt.Errorf("fingering digits: %w", err)
		}
		f.Digits = strconv.Itoa(n)
	}
	return nil
}
