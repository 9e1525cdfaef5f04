// audio_interface.go - Audio output interface and backend selection

package main

import "fmt"

const SAMPLE_RATE = 44100

// AudioOutput is the beeper surface. The run loop calls Trigger while
// the sound timer is running; the backend keeps the tone alive for a
// short sustain window past the last trigger.
type AudioOutput interface {
	Start()
	Stop()
	Close()
	IsStarted() bool
	Trigger()
}

// Predefined audio backend types
const (
	AUDIO_BACKEND_OTO  = iota // Square-wave beeper through oto
	AUDIO_BACKEND_NONE        // Discards the audio path
)

// NewAudioOutput creates a new audio output instance using the specified backend
func NewAudioOutput(backend int) (AudioOutput, error) {
	switch backend {
	case AUDIO_BACKEND_OTO:
		beeper, err := NewOtoBeeper(SAMPLE_RATE)
		if err != nil {
			return nil, err
		}
		return beeper, nil
	case AUDIO_BACKEND_NONE:
		return NewNullBeeper(), nil
	}
	return nil, fmt.Errorf("unknown audio backend type: %d", backend)
}

// NullBeeper discards the audio path, for -audio none runs and tests.
type NullBeeper struct {
	started bool
}

func NewNullBeeper() *NullBeeper {
	return &NullBeeper{}
}

func (nb *NullBeeper) Start() {
	nb.started = true
}

func (nb *NullBeeper) Stop() {
	nb.started = false
}

func (nb *NullBeeper) Close() {
	nb.started = false
}

func (nb *NullBeeper) IsStarted() bool {
	return nb.started
}

func (nb *NullBeeper) Trigger() {}
