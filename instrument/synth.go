package instrument

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"go-pianoroll/debug"
)

// SampleRate of the synth stream, 16-bit stereo
const SampleRate = 44100

var (
	// Ebiten allows only one audio context per process
	audioContext   *audio.Context
	audioContextMu sync.Mutex
)

func getAudioContext() *audio.Context {
	audioContextMu.Lock()
	defer audioContextMu.Unlock()
	if audioContext == nil {
		audioContext = audio.NewContext(SampleRate)
	}
	return audioContext
}

// voice is the part of meltysynth.Synthesizer the stream drives
type voice interface {
	NoteOn(channel int32, key int32, velocity int32)
	NoteOff(channel int32, key int32)
	NoteOffAll(immediate bool)
	Render(left []float32, right []float32)
}

// Synth plays a SoundFont through the default audio device.
type Synth struct {
	mu      sync.Mutex
	voice   voice
	channel int32
	player  *audio.Player
	pending map[*time.Timer]struct{}
	gen     map[uint8]uint64 // per key, bumped on every attack
	closed  bool
}

// NewSynth loads a .sf2 file and starts an audio player that pulls samples
// from the synthesizer.
func NewSynth(soundFontPath string, channel int) (*Synth, error) {
	data, err := os.ReadFile(soundFontPath)
	if err != nil {
		return nil, fmt.Errorf("read soundfont: %w", err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse soundfont: %w", err)
	}
	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(sf, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}

	s := newSynth(synth, channel)
	player, err := getAudioContext().NewPlayer(s)
	if err != nil {
		return nil, fmt.Errorf("create audio player: %w", err)
	}
	player.SetBufferSize(50 * time.Millisecond)
	player.Play()
	s.player = player

	debug.For("synth").Info("soundfont loaded", "path", soundFontPath, "channel", channel)
	return s, nil
}

func newSynth(v voice, channel int) *Synth {
	if channel < 1 || channel > 16 {
		channel = 1
	}
	return &Synth{
		voice:   v,
		channel: int32(channel - 1),
		pending: make(map[*time.Timer]struct{}),
		gen:     make(map[uint8]uint64),
	}
}

// Read renders interleaved little-endian int16 stereo frames for the player.
func (s *Synth) Read(p []byte) (int, error) {
	frames := len(p) / 4
	if frames == 0 {
		return 0, nil
	}
	left := make([]float32, frames)
	right := make([]float32, frames)

	s.mu.Lock()
	if !s.closed {
		s.voice.Render(left, right)
	}
	s.mu.Unlock()

	for i := 0; i < frames; i++ {
		l := int16(clamp(left[i]) * 32767)
		r := int16(clamp(right[i]) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return frames * 4, nil
}

func clamp(v float32) float32 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *Synth) Attack(pitch string, velocity float64) {
	s.attack(pitch, velocity)
}

// attack starts a note and returns its key and generation
func (s *Synth) attack(pitch string, velocity float64) (uint8, uint64, bool) {
	k, ok := key(pitch)
	if !ok {
		debug.For("synth").Warn("unknown pitch", "pitch", pitch)
		return 0, 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, 0, false
	}
	s.gen[k]++
	s.voice.NoteOn(s.channel, int32(k), int32(velocity7(velocity)))
	return k, s.gen[k], true
}

func (s *Synth) Release(pitch string) {
	k, ok := key(pitch)
	if !ok {
		debug.For("synth").Warn("unknown pitch", "pitch", pitch)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.voice.NoteOff(s.channel, int32(k))
}

// AttackRelease sounds pitch for d. The release is skipped if the pitch was
// attacked again in the meantime.
func (s *Synth) AttackRelease(pitch string, d time.Duration) {
	k, g, ok := s.attack(pitch, DefaultVelocity)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.pending, t)
		if s.closed || s.gen[k] != g {
			return
		}
		s.voice.NoteOff(s.channel, int32(k))
	})
	s.pending[t] = struct{}{}
}

// Close silences every voice and stops the player
func (s *Synth) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	for t := range s.pending {
		t.Stop()
	}
	s.pending = nil
	s.voice.NoteOffAll(true)
	s.closed = true
	player := s.player
	s.mu.Unlock()

	if player != nil {
		return player.Close()
	}
	return nil
}
