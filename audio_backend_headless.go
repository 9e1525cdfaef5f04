//go:build headless

package main

type OtoBeeper struct {
	started bool
}

func NewOtoBeeper(sampleRate int) (*OtoBeeper, error) {
	return &OtoBeeper{}, nil
}

func (ob *OtoBeeper) Trigger() {}

func (ob *OtoBeeper) Read(p []byte) (n int, err error) {
	return len(p), nil
}

func (ob *OtoBeeper) Start() {
	ob.started = true
}

func (ob *OtoBeeper) Stop() {
	ob.started = false
}

func (ob *OtoBeeper) Close() {
	ob.started = false
}

func (ob *OtoBeeper) IsStarted() bool {
	return ob.started
}
