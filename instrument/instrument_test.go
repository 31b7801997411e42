package instrument

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-pianoroll/config"
)

func TestVelocity7(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{1, 127},
		{2, 127},
		{0.5, 64},
		{0.001, 1},
		{0, velocity7(DefaultVelocity)},
		{-1, velocity7(DefaultVelocity)},
	}
	for _, tt := range tests {
		if got := velocity7(tt.in); got != tt.want {
			t.Fatalf("velocity7(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

type capture struct {
	mu   sync.Mutex
	msgs []gomidi.Message
}

func (c *capture) send(msg gomidi.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *capture) snapshot() []gomidi.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]gomidi.Message(nil), c.msgs...)
}

func TestMIDIOutAttackRelease(t *testing.T) {
	c := &capture{}
	o := newMIDIOut(c.send, 2)

	o.Attack("C4", 1)
	o.Release("C4")
	o.Attack("nonsense", 1)

	msgs := c.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	var ch, key, vel uint8
	if !msgs[0].GetNoteOn(&ch, &key, &vel) || ch != 1 || key != 60 || vel != 127 {
		t.Fatalf("first message = %v", msgs[0])
	}
	if !msgs[1].GetNoteEnd(&ch, &key) || key != 60 {
		t.Fatalf("second message = %v", msgs[1])
	}
}

func TestMIDIOutPreviewReleases(t *testing.T) {
	c := &capture{}
	o := newMIDIOut(c.send, 1)
	o.AttackRelease("A4", 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.snapshot()) == 2 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	msgs := c.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want on+off", len(msgs))
	}
	var ch, key uint8
	if !msgs[1].GetNoteEnd(&ch, &key) || key != 69 {
		t.Fatalf("expected note off for A4, got %v", msgs[1])
	}
}

func TestMIDIOutPreviewSparesReattackedNote(t *testing.T) {
	c := &capture{}
	o := newMIDIOut(c.send, 1)
	o.AttackRelease("A4", 10*time.Millisecond)
	o.Attack("A4", 1)
	o.AttackRelease("C4", 50*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(c.snapshot()) < 4 {
		time.Sleep(2 * time.Millisecond)
	}
	msgs := c.snapshot()
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want three note ons and the C4 off: %v", len(msgs), msgs)
	}
	var ch, key uint8
	for _, msg := range msgs {
		if msg.GetNoteEnd(&ch, &key) && key == 69 {
			t.Fatalf("preview released the held A4: %v", msgs)
		}
	}
	if !msgs[3].GetNoteEnd(&ch, &key) || key != 60 {
		t.Fatalf("last message = %v, want C4 off", msgs[3])
	}
}

func TestMIDIOutCloseSilencesAndCancels(t *testing.T) {
	c := &capture{}
	o := newMIDIOut(c.send, 1)
	o.AttackRelease("C4", time.Hour)
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
	o.Attack("D4", 1)
	o.AttackRelease("D4", time.Millisecond)

	msgs := c.snapshot()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want note on + all notes off", len(msgs))
	}
	var ch, cc, val uint8
	if !msgs[1].GetControlChange(&ch, &cc, &val) || cc != 123 {
		t.Fatalf("expected all-notes-off, got %v", msgs[1])
	}
	if err := o.Close(); err != nil {
		t.Fatal(err)
	}
}

type fakeVoice struct {
	ons, offs []int32
	offAll    int
	level     float32
}

func (f *fakeVoice) NoteOn(channel, key, velocity int32) { f.ons = append(f.ons, key) }
func (f *fakeVoice) NoteOff(channel, key int32)          { f.offs = append(f.offs, key) }
func (f *fakeVoice) NoteOffAll(immediate bool)           { f.offAll++ }
func (f *fakeVoice) Render(left, right []float32) {
	for i := range left {
		left[i] = f.level
		right[i] = -f.level
	}
}

func TestSynthRendersStereoInt16(t *testing.T) {
	v := &fakeVoice{level: 2}
	s := newSynth(v, 1)

	buf := make([]byte, 16)
	n, err := s.Read(buf)
	if err != nil || n != 16 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	l := int16(binary.LittleEndian.Uint16(buf[0:]))
	r := int16(binary.LittleEndian.Uint16(buf[2:]))
	if l != 32767 || r != -32767 {
		t.Fatalf("frame = %d,%d want clamped full scale", l, r)
	}
}

func TestSynthNotes(t *testing.T) {
	v := &fakeVoice{}
	s := newSynth(v, 1)
	s.Attack("C#4", 0.5)
	s.Release("C#4")
	s.Release("bogus")
	if len(v.ons) != 1 || v.ons[0] != 61 || len(v.offs) != 1 || v.offs[0] != 61 {
		t.Fatalf("ons=%v offs=%v", v.ons, v.offs)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if v.offAll != 1 {
		t.Fatalf("NoteOffAll called %d times", v.offAll)
	}
	s.Attack("C4", 1)
	if len(v.ons) != 1 {
		t.Fatal("attack after close should be dropped")
	}
}

func TestSynthPreviewSparesReattackedNote(t *testing.T) {
	v := &fakeVoice{}
	s := newSynth(v, 1)
	offs := func() []int32 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return append([]int32(nil), v.offs...)
	}

	s.AttackRelease("E4", 10*time.Millisecond)
	s.Attack("E4", 1)
	s.AttackRelease("G4", 50*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(offs()) == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	if got := offs(); len(got) != 1 || got[0] != 67 {
		t.Fatalf("offs = %v, want only G4", got)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenSilent(t *testing.T) {
	inst, err := Open(config.InstrumentConfig{Kind: config.InstrumentSilent})
	if err != nil {
		t.Fatal(err)
	}
	inst.Attack("C4", 1)
	inst.AttackRelease("C4", time.Millisecond)
	inst.Release("C4")
	if err := inst.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(config.InstrumentConfig{Kind: config.InstrumentSynth}); err == nil {
		t.Fatal("synth without soundfont should fail")
	}
}
