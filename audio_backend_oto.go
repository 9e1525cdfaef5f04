//go:build !headless

// audio_backend_oto.go - OTO v3 square wave beeper

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/CosmacEngine
License: GPLv3 or later
*/

package main

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

const (
	BEEP_FREQUENCY = 440.0
	BEEP_VOLUME    = 0.25

	// Trigger fires once per tick while the sound timer runs, so two
	// ticks of sustain bridge consecutive triggers without gaps.
	BEEP_SUSTAIN = 2 * TICK_INTERVAL
)

type OtoBeeper struct {
	ctx       *oto.Context
	player    *oto.Player
	deadline  atomic.Int64 // Unix nanoseconds; the tone is live until then
	phase     float64      // Touched only by Read on the audio goroutine
	rate      int
	sampleBuf []float32 // Pre-allocated sample buffer
	started   bool
	mutex     sync.Mutex // Only for setup/control operations
}

func NewOtoBeeper(sampleRate int) (*OtoBeeper, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	ob := &OtoBeeper{
		ctx:       ctx,
		rate:      sampleRate,
		sampleBuf: make([]float32, 4096),
		started:   false,
	}
	ob.player = ctx.NewPlayer(ob)
	return ob, nil
}

// Trigger arms the tone. Repeated triggers extend the deadline, so the
// beep lasts exactly as long as the sound timer keeps firing.
func (ob *OtoBeeper) Trigger() {
	ob.deadline.Store(time.Now().Add(BEEP_SUSTAIN).UnixNano())
}

func (ob *OtoBeeper) Read(p []byte) (n int, err error) {
	numSamples := len(p) / 4
	if numSamples == 0 {
		clear(p)
		return len(p), nil
	}

	if len(ob.sampleBuf) < numSamples {
		ob.sampleBuf = make([]float32, numSamples)
	}
	samples := ob.sampleBuf[:numSamples]

	if time.Now().UnixNano() >= ob.deadline.Load() {
		ob.phase = 0
		clear(samples)
	} else {
		step := BEEP_FREQUENCY / float64(ob.rate)
		for i := range samples {
			if ob.phase < 0.5 {
				samples[i] = BEEP_VOLUME
			} else {
				samples[i] = -BEEP_VOLUME
			}
			ob.phase += step
			if ob.phase >= 1.0 {
				ob.phase -= 1.0
			}
		}
	}

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:len(p)])
	return len(p), nil
}

func (ob *OtoBeeper) Start() {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	if !ob.started && ob.player != nil {
		ob.player.Play()
		ob.started = true
	}
}

func (ob *OtoBeeper) Stop() {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	if ob.started && ob.player != nil {
		ob.player.Close()
		ob.started = false
	}
}

func (ob *OtoBeeper) Close() {
	ob.Stop()
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	if ob.player != nil {
		ob.player.Close()
		ob.player = nil
	}
}

func (ob *OtoBeeper) IsStarted() bool {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()
	return ob.started
}
