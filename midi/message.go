package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI status high nibbles
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Kind classifies a message for dispatch
type Kind int

const (
	KindOther Kind = iota
	KindNoteOn
	KindNoteOff
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	}
	return "other"
}

// Message is a raw 3-byte channel message
type Message struct {
	Status   uint8
	Note     uint8
	Velocity uint8
}

// Kind reports note-on (0x9 with velocity > 0), note-off (0x8, or 0x9 with
// velocity 0) or other.
func (m Message) Kind() Kind {
	switch m.Status & 0xF0 {
	case NoteOn:
		if m.Velocity > 0 {
			return KindNoteOn
		}
		return KindNoteOff
	case NoteOff:
		return KindNoteOff
	}
	return KindOther
}

// Channel is the 0-based channel in the low nibble
func (m Message) Channel() uint8 {
	return m.Status & 0x0F
}

func (m Message) String() string {
	return fmt.Sprintf("%s ch=%d note=%d vel=%d", m.Kind(), m.Channel(), m.Note, m.Velocity)
}

// FromGomidi converts a gomidi message. Messages shorter than three bytes are
// padded with zeros.
func FromGomidi(msg gomidi.Message) Message {
	var m Message
	if len(msg) > 0 {
		m.Status = msg[0]
	}
	if len(msg) > 1 {
		m.Note = msg[1]
	}
	if len(msg) > 2 {
		m.Velocity = msg[2]
	}
	return m
}
