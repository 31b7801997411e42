package instrument

import (
	"time"

	"go-pianoroll/debug"
)

// Silent logs triggers and makes no sound. Used for headless runs and when
// no audio device or soundfont is available.
type Silent struct{}

func (Silent) Attack(pitch string, velocity float64) {
	debug.Log("silent", "attack %s vel=%.2f", pitch, velocity)
}

func (Silent) Release(pitch string) {
	debug.Log("silent", "release %s", pitch)
}

func (Silent) AttackRelease(pitch string, d time.Duration) {
	debug.Log("silent", "attackRelease %s %s", pitch, d)
}

func (Silent) Close() error { return nil }
