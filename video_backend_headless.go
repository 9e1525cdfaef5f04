//go:build headless

package main

import "sync/atomic"

type HeadlessVideoOutput struct {
	started    bool
	config     DisplayConfig
	frameCount uint64
	done       chan struct{}

	keypadHandler  func(key byte, down bool)
	controlHandler func(action int)
}

func NewEbitenOutput() (VideoOutput, error) {
	return &HeadlessVideoOutput{done: make(chan struct{})}, nil
}

func NewTerminalOutput() (VideoOutput, error) {
	return &HeadlessVideoOutput{done: make(chan struct{})}, nil
}

func (h *HeadlessVideoOutput) Start() error {
	h.started = true
	return nil
}

func (h *HeadlessVideoOutput) Stop() error {
	h.started = false
	return nil
}

func (h *HeadlessVideoOutput) Close() error {
	h.started = false
	return nil
}

func (h *HeadlessVideoOutput) IsStarted() bool {
	return h.started
}

func (h *HeadlessVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	h.config = config
	return nil
}

func (h *HeadlessVideoOutput) GetDisplayConfig() DisplayConfig {
	return h.config
}

func (h *HeadlessVideoOutput) UpdateFrame(pixels []byte) error {
	atomic.AddUint64(&h.frameCount, 1)
	return nil
}

func (h *HeadlessVideoOutput) GetFrameCount() uint64 {
	return atomic.LoadUint64(&h.frameCount)
}

func (h *HeadlessVideoOutput) SetKeypadHandler(fn func(key byte, down bool)) {
	h.keypadHandler = fn
}

func (h *HeadlessVideoOutput) SetControlHandler(fn func(action int)) {
	h.controlHandler = fn
}

func (h *HeadlessVideoOutput) Done() <-chan struct{} {
	return h.done
}
