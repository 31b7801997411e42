package sequencer

import (
	"sort"
	"sync"
)

// Source is who is holding a pitch down
type Source uint8

const (
	SourceMouse Source = 1 << iota
	SourceMIDI
)

// HeldNotes is the live set of pitches the user is holding, shared by the
// mouse piano, MIDI input and gated playback. Each source is tracked
// separately so a release only counts if that source pressed the pitch.
type HeldNotes struct {
	mu   sync.Mutex
	held map[string]Source
}

func NewHeldNotes() *HeldNotes {
	return &HeldNotes{held: make(map[string]Source)}
}

// Press marks pitch held by src. Returns false if src already held it.
func (h *HeldNotes) Press(pitch string, src Source) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held[pitch]&src != 0 {
		return false
	}
	h.held[pitch] |= src
	return true
}

// Release drops src's hold on pitch. Returns true only if src held it.
func (h *HeldNotes) Release(pitch string, src Source) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.held[pitch]
	if !ok || s&src == 0 {
		return false
	}
	s &^= src
	if s == 0 {
		delete(h.held, pitch)
	} else {
		h.held[pitch] = s
	}
	return true
}

// ReleaseAll drops every hold of src and returns the pitches it held
func (h *HeldNotes) ReleaseAll(src Source) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for p, s := range h.held {
		if s&src == 0 {
			continue
		}
		out = append(out, p)
		if s &^= src; s == 0 {
			delete(h.held, p)
		} else {
			h.held[p] = s
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether any source holds pitch
func (h *HeldNotes) Has(pitch string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.held[pitch] != 0
}

// HasAll reports whether every pitch is held
func (h *HeldNotes) HasAll(pitches []string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range pitches {
		if h.held[p] == 0 {
			return false
		}
	}
	return true
}

// Pitches returns the held pitches, sorted
func (h *HeldNotes) Pitches() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.held))
	for p := range h.held {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
