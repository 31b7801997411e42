package sequencer

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestTempoDecoding(t *testing.T) {
	tests := []struct {
		in   string
		want Tempo
		err  bool
	}{
		{`120`, 120, false},
		{`"96"`, 96, false},
		{`" 80 "`, 80, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`90.0`, 90, false},
		{`"fast"`, 0, true},
		{`72.9`, 72, false},
		{`1e11`, math.MaxInt32, false},
		{`1e400`, math.MaxInt32, false},
		{`"NaN"`, 0, false},
	}
	for _, tt := range tests {
		var got Tempo
		err := json.Unmarshal([]byte(tt.in), &got)
		if (err != nil) != tt.err {
			t.Fatalf("Unmarshal(%s) err = %v, want error %v", tt.in, err, tt.err)
		}
		if !tt.err && got != tt.want {
			t.Fatalf("Unmarshal(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBrowserDocument(t *testing.T) {
	doc := `[{"name":"Workspace 1","state":{"key":"D","mode":"minor","tempo":"90","playMode":"wait",
		"green":[0,49],"blue":[2],"fings":[[0,"12"],[49,"5"]]}},{"name":"Empty","state":null}]`

	var list []Workspace
	if err := json.Unmarshal([]byte(doc), &list); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(list) != 2 || list[1].State != nil {
		t.Fatalf("list = %+v", list)
	}
	st := list[0].State
	want := Settings{Tonic: "D", Mode: "minor", Tempo: 90, PlayMode: PlayModeWait}
	if got := st.Settings(); got != want {
		t.Fatalf("Settings() = %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(st.Fings, []Fingering{{0, "12"}, {49, "5"}}) {
		t.Fatalf("fings = %+v", st.Fings)
	}

	out, err := json.Marshal(list)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(out)
	for _, frag := range []string{`"tempo":90`, `"fings":[[0,"12"],[49,"5"]]`, `"state":null`, `"playMode":"wait"`} {
		if !strings.Contains(s, frag) {
			t.Fatalf("encoded %s missing %s", s, frag)
		}
	}
}

func TestStateSettingsDefaults(t *testing.T) {
	var nilState *State
	if got := nilState.Settings(); got != DefaultSettings() {
		t.Fatalf("nil state settings = %+v", got)
	}
	st := &State{Key: "H", Mode: "lydian", Tempo: -5, PlayMode: "loop"}
	if got := st.Settings(); got != DefaultSettings() {
		t.Fatalf("garbage state settings = %+v", got)
	}
}

func TestStoredTempoIsClamped(t *testing.T) {
	tests := []struct {
		doc  string
		want int
	}{
		{`{"tempo":1e11}`, MaxTempo},
		{`{"tempo":"-Inf"}`, DefaultTempo},
		{`{"tempo":5}`, MinTempo},
		{`{"tempo":0.5}`, DefaultTempo},
		{`{"tempo":72.9}`, 72},
		{`{"tempo":"300.7"}`, MaxTempo},
	}
	for _, tt := range tests {
		var st State
		if err := json.Unmarshal([]byte(tt.doc), &st); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.doc, err)
		}
		if got := st.Settings().Tempo; got != tt.want {
			t.Fatalf("%s: tempo = %d, want %d", tt.doc, got, tt.want)
		}
	}
}

func TestFingeringDecoding(t *testing.T) {
	var f Fingering
	if err := json.Unmarshal([]byte(`[7, 34]`), &f); err != nil {
		t.Fatalf("bare number digits: %v", err)
	}
	if f != (Fingering{7, "34"}) {
		t.Fatalf("got %+v", f)
	}
	if err := json.Unmarshal([]byte(`[7]`), &f); err == nil {
		t.Fatalf("short pair accepted")
	}
}
