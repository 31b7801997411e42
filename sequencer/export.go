package sequencer

import (
	"fmt"
	"io"
	"os"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-pianoroll/theory"
)

// SMF export layout: one quarter note per row, notes on the first channel,
// accidental notes on the second.
const (
	ExportPPQ         = 960
	ExportVelocity    = 100
	noteChannel       = 0
	accidentalChannel = 1
)

type smfEvent struct {
	tick uint32
	off  bool
	msg  gomidi.Message
}

// ExportSMF writes g as a two-track Standard MIDI File: a tempo track and
// one note track. Consecutive rows of the same variant in a column are tied
// into one note. Only columns in the playback window are written.
func ExportSMF(w io.Writer, g *Grid, tempo int) error {
	if tempo <= 0 {
		tempo = DefaultTempo
	}
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ExportPPQ)

	var tempoTrack smf.Track
	tempoTrack.Add(0, smf.MetaMeter(4, 4))
	tempoTrack.Add(0, smf.MetaTempo(float64(tempo)))
	tempoTrack.Close(0)
	if err := sm.Add(tempoTrack); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}

	events := collectNotes(g)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	var track smf.Track
	var last uint32
	for _, ev := range events {
		track.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	track.Close(0)
	if err := sm.Add(track); err != nil {
		return fmt.Errorf("add note track: %w", err)
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("write midi file: %w", err)
	}
	return nil
}

func collectNotes(g *Grid) []smfEvent {
	var events []smfEvent
	for col := 0; col < g.Cols(); col++ {
		if !g.Visible(col) {
			continue
		}
		key, err := theory.NoteNameToMIDI(g.Pitch(col))
		if err != nil {
			continue
		}
		for row := 0; row < g.Rows(); {
			v := g.Cell(Pos{row, col}).Variant
			if v == Empty {
				row++
				continue
			}
			start := row
			for row < g.Rows() && g.Cell(Pos{row, col}).Variant == v {
				row++
			}
			ch := uint8(noteChannel)
			if v == Accidental {
				ch = accidentalChannel
			}
			events = append(events,
				smfEvent{tick: uint32(start * ExportPPQ), msg: gomidi.NoteOn(ch, uint8(key), ExportVelocity)},
				smfEvent{tick: uint32(row * ExportPPQ), off: true, msg: gomidi.NoteOff(ch, uint8(key))},
			)
		}
	}
	return events
}

// exportSource copies workspace i into a fresh grid. The current workspace
// exports with its live window and tempo. Callers hold m.mu.
func (m *Manager) exportSource(i int) (*Grid, int, error) {
	ws, err := m.ws.Get(i)
	if err != nil {
		return nil, 0, err
	}
	g := NewGrid(m.grid.Rows(), m.grid.Octaves())
	g.Apply(ws.State)
	if i != m.ws.Current() {
		return g, ws.State.Settings().Tempo, nil
	}
	g.SetWindow(m.grid.Window())
	return g, m.settings.Tempo, nil
}

// ExportWorkspace writes workspace i to path. It neither selects the
// workspace nor writes the store.
func (m *Manager) ExportWorkspace(i int, path string) error {
	m.mu.Lock()
	g, tempo, err := m.exportSource(i)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return writeSMF(path, g, tempo)
}

// ExportSMF writes the current workspace to path
func (m *Manager) ExportSMF(path string) error {
	m.mu.Lock()
	g, tempo, err := m.exportSource(m.ws.Current())
	m.mu.Unlock()

	if err == nil {
		err = writeSMF(path, g, tempo)
	}

	m.mu.Lock()
	if err != nil {
		m.notice = "Export failed: " + UserMessage(err)
	} else {
		m.notice = "Exported " + path
	}
	m.mu.Unlock()
	m.notifyUpdate()
	return err
}

func writeSMF(path string, g *Grid, tempo int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := ExportSMF(f, g, tempo); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
