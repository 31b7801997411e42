package instrument

import (
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"go-pianoroll/debug"
)

// MIDIOut forwards notes to an external MIDI port, e.g. a hardware synth or
// a DAW listening on a virtual bus.
type MIDIOut struct {
	mu      sync.Mutex
	send    func(gomidi.Message) error
	channel uint8
	port    string
	pending map[*time.Timer]struct{}
	gen     map[uint8]uint64
	closed  bool
}

// NewMIDIOut opens the output port named portName. channel is 1-16.
func NewMIDIOut(portName string, channel int) (*MIDIOut, error) {
	for _, port := range gomidi.GetOutPorts() {
		if port.String() == portName {
			sender, err := gomidi.SendTo(port)
			if err != nil {
				return nil, fmt.Errorf("open output %q: %w", portName, err)
			}
			o := newMIDIOut(sender, channel)
			o.port = portName
			debug.For("midiout").Info("output opened", "port", portName, "channel", channel)
			return o, nil
		}
	}
	return nil, fmt.Errorf("output port %q not found", portName)
}

func newMIDIOut(send func(gomidi.Message) error, channel int) *MIDIOut {
	if channel < 1 || channel > 16 {
		channel = 1
	}
	return &MIDIOut{
		send:    send,
		channel: uint8(channel - 1),
		pending: make(map[*time.Timer]struct{}),
		gen:     make(map[uint8]uint64),
	}
}

func (o *MIDIOut) Attack(pitch string, velocity float64) {
	o.attack(pitch, velocity)
}

// attack sends note on and returns the key and its generation
func (o *MIDIOut) attack(pitch string, velocity float64) (uint8, uint64, bool) {
	k, ok := key(pitch)
	if !ok {
		debug.For("midiout").Warn("unknown pitch", "pitch", pitch)
		return 0, 0, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return 0, 0, false
	}
	o.gen[k]++
	o.sendLocked(gomidi.NoteOn(o.channel, k, velocity7(velocity)))
	return k, o.gen[k], true
}

func (o *MIDIOut) Release(pitch string) {
	k, ok := key(pitch)
	if !ok {
		debug.For("midiout").Warn("unknown pitch", "pitch", pitch)
		return
	}
	o.emit(gomidi.NoteOff(o.channel, k))
}

// AttackRelease sounds pitch for d unless it is attacked again first
func (o *MIDIOut) AttackRelease(pitch string, d time.Duration) {
	k, g, ok := o.attack(pitch, DefaultVelocity)
	if !ok {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.pending, t)
		if o.closed || o.gen[k] != g {
			return
		}
		o.sendLocked(gomidi.NoteOff(o.channel, k))
	})
	o.pending[t] = struct{}{}
}

func (o *MIDIOut) emit(msg gomidi.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.sendLocked(msg)
}

func (o *MIDIOut) sendLocked(msg gomidi.Message) {
	if err := o.send(msg); err != nil {
		debug.For("midiout").Error("send failed", "port", o.port, "msg", msg.String(), "err", err)
	}
}

// Close sends all-notes-off on the channel. The port itself is closed by
// gomidi.CloseDriver at exit.
func (o *MIDIOut) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	for t := range o.pending {
		t.Stop()
	}
	o.pending = nil
	o.closed = true
	return o.send(gomidi.ControlChange(o.channel, 123, 0))
}
