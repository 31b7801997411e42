package instrument

import (
	"fmt"

	"go-pianoroll/config"
)

// Open builds the instrument described by cfg.
func Open(cfg config.InstrumentConfig) (Instrument, error) {
	switch cfg.Kind {
	case config.InstrumentSynth:
		if cfg.SoundFont == "" {
			return nil, fmt.Errorf("synth instrument needs a soundFont path")
		}
		return NewSynth(cfg.SoundFont, cfg.Channel)
	case config.InstrumentMIDI:
		return NewMIDIOut(cfg.OutputPort, cfg.Channel)
	case config.InstrumentSilent, "":
		return Silent{}, nil
	}
	return nil, fmt.Errorf("unknown instrument kind %q", cfg.Kind)
}
