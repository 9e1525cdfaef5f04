//go:build !headless

// video_backend_terminal.go - ANSI truecolor video backend for the controlling terminal

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/CosmacEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

const (
	// Terminals report key presses but never releases, so a pressed
	// keypad key stays held until its repeat events stop arriving.
	TERMINAL_KEY_HOLD = 200 * time.Millisecond

	terminalPollDelay = 5 * time.Millisecond

	ansiInit    = "\x1b[?1049h\x1b[?25l\x1b[2J"
	ansiRestore = "\x1b[0m\x1b[?25h\x1b[?1049l"
)

// Same pad layout as the windowed backend: 123C / 456D / 789E / A0BF
// under 1234 / qwer / asdf / zxcv.
var terminalKeypad = map[byte]byte{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

type TerminalOutput struct {
	config      DisplayConfig
	frameBuffer []byte
	renderBuf   []byte
	bufferMutex sync.RWMutex
	frameCount  atomic.Uint64
	frameCh     chan struct{}
	stopCh      chan struct{}
	readerDone  chan struct{}
	renderDone  chan struct{}
	done        chan struct{}
	stopped     sync.Once
	running     bool

	fd           int
	oldTermState *term.State

	keypadHandler  func(key byte, down bool)
	controlHandler func(action int)

	pressMutex sync.Mutex
	pressedAt  map[byte]time.Time
}

func NewTerminalOutput() (VideoOutput, error) {
	return &TerminalOutput{
		config:      DisplayConfig{Width: DISPLAY_WIDTH, Height: DISPLAY_HEIGHT, Scale: 1},
		frameBuffer: make([]byte, DISPLAY_WIDTH*DISPLAY_HEIGHT*4),
		frameCh:     make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		readerDone:  make(chan struct{}),
		renderDone:  make(chan struct{}),
		done:        make(chan struct{}),
		pressedAt:   make(map[byte]time.Time),
	}, nil
}

func (to *TerminalOutput) Start() error {
	if to.running {
		return nil
	}
	to.fd = int(os.Stdin.Fd())

	// Raw mode disables OS-level echo and line buffering.
	oldState, err := term.MakeRaw(to.fd)
	if err != nil {
		return &VideoError{Operation: "terminal start", Details: "failed to set raw mode", Err: err}
	}
	to.oldTermState = oldState

	if err := prepareStdin(to.fd); err != nil {
		_ = term.Restore(to.fd, to.oldTermState)
		to.oldTermState = nil
		return &VideoError{Operation: "terminal start", Details: "failed to set nonblocking stdin", Err: err}
	}

	fmt.Print(ansiInit)
	to.running = true

	go to.readLoop()
	go to.renderLoop()
	return nil
}

func (to *TerminalOutput) Stop() error {
	to.stopped.Do(func() {
		wasRunning := to.running
		to.running = false
		close(to.stopCh)
		if wasRunning {
			<-to.readerDone
			<-to.renderDone
			restoreStdin(to.fd)
			if to.oldTermState != nil {
				_ = term.Restore(to.fd, to.oldTermState)
				to.oldTermState = nil
			}
			fmt.Print(ansiRestore)
		}
		close(to.done)
	})
	return nil
}

func (to *TerminalOutput) Close() error {
	return to.Stop()
}

func (to *TerminalOutput) Done() <-chan struct{} {
	return to.done
}

func (to *TerminalOutput) IsStarted() bool {
	return to.running
}

func (to *TerminalOutput) UpdateFrame(pixels []byte) error {
	to.bufferMutex.Lock()
	copy(to.frameBuffer, pixels)
	to.bufferMutex.Unlock()
	select {
	case to.frameCh <- struct{}{}:
	default:
	}
	return nil
}

func (to *TerminalOutput) SetDisplayConfig(config DisplayConfig) error {
	to.bufferMutex.Lock()
	defer to.bufferMutex.Unlock()

	if config.Width <= 0 {
		config.Width = DISPLAY_WIDTH
	}
	if config.Height <= 0 {
		config.Height = DISPLAY_HEIGHT
	}
	to.config = config
	newSize := config.Width * config.Height * 4
	if len(to.frameBuffer) != newSize {
		to.frameBuffer = make([]byte, newSize)
	}
	return nil
}

func (to *TerminalOutput) GetDisplayConfig() DisplayConfig {
	to.bufferMutex.RLock()
	defer to.bufferMutex.RUnlock()
	return to.config
}

func (to *TerminalOutput) GetFrameCount() uint64 {
	return to.frameCount.Load()
}

func (to *TerminalOutput) SetKeypadHandler(fn func(key byte, down bool)) {
	to.bufferMutex.Lock()
	to.keypadHandler = fn
	to.bufferMutex.Unlock()
}

func (to *TerminalOutput) SetControlHandler(fn func(action int)) {
	to.bufferMutex.Lock()
	to.controlHandler = fn
	to.bufferMutex.Unlock()
}

func (to *TerminalOutput) emitKeypad(key byte, down bool) {
	to.bufferMutex.RLock()
	handler := to.keypadHandler
	to.bufferMutex.RUnlock()
	if handler != nil {
		handler(key, down)
	}
}

func (to *TerminalOutput) emitControl(action int) {
	to.bufferMutex.RLock()
	handler := to.controlHandler
	to.bufferMutex.RUnlock()
	if handler != nil {
		handler(action)
	}
}

func (to *TerminalOutput) readLoop() {
	defer close(to.readerDone)
	for {
		select {
		case <-to.stopCh:
			return
		default:
		}

		b, ok, err := readStdinByte(to.fd)
		if err != nil {
			return
		}
		if !ok {
			time.Sleep(terminalPollDelay)
			continue
		}
		if to.handleInputByte(b) {
			return
		}
	}
}

// handleInputByte routes a raw input byte, returning true on the quit
// key so the reader can exit before stdin is restored.
func (to *TerminalOutput) handleInputByte(b byte) bool {
	switch {
	case b == 0x1B:
		if to.drainEscapeSequence() {
			return false
		}
		to.emitControl(CONTROL_QUIT)
		return true
	case b == 'p' || b == 'P':
		to.emitControl(CONTROL_PAUSE)
	case b == '\r' || b == '\n':
		to.emitControl(CONTROL_STEP)
	case b == '0':
		to.emitControl(CONTROL_RESET)
	default:
		key := b
		if key >= 'A' && key <= 'Z' {
			key += 'a' - 'A'
		}
		if pad, ok := terminalKeypad[key]; ok {
			to.pressKey(pad)
		}
	}
	return false
}

// drainEscapeSequence swallows the remainder of a CSI burst after a
// leading escape byte. Returns false when the escape stood alone,
// which is the quit key.
func (to *TerminalOutput) drainEscapeSequence() bool {
	b, ok := readStdinByteNoWait(to.fd)
	if !ok {
		return false
	}
	if b != '[' && b != 'O' {
		return true
	}
	for {
		b, ok = readStdinByteNoWait(to.fd)
		if !ok {
			return true
		}
		if b >= 0x40 && b <= 0x7E {
			return true
		}
	}
}

func (to *TerminalOutput) pressKey(pad byte) {
	to.pressMutex.Lock()
	_, held := to.pressedAt[pad]
	to.pressedAt[pad] = time.Now()
	to.pressMutex.Unlock()
	if !held {
		to.emitKeypad(pad, true)
	}
}

func (to *TerminalOutput) releaseExpiredKeys() {
	now := time.Now()
	var expired []byte
	to.pressMutex.Lock()
	for pad, at := range to.pressedAt {
		if now.Sub(at) > TERMINAL_KEY_HOLD {
			delete(to.pressedAt, pad)
			expired = append(expired, pad)
		}
	}
	to.pressMutex.Unlock()
	for _, pad := range expired {
		to.emitKeypad(pad, false)
	}
}

func (to *TerminalOutput) renderLoop() {
	defer close(to.renderDone)
	ticker := time.NewTicker(4 * terminalPollDelay)
	defer ticker.Stop()
	for {
		select {
		case <-to.stopCh:
			return
		case <-to.frameCh:
			to.renderFrame()
		case <-ticker.C:
			to.releaseExpiredKeys()
		}
	}
}

func (to *TerminalOutput) renderFrame() {
	to.bufferMutex.RLock()
	width := to.config.Width
	height := to.config.Height
	if len(to.renderBuf) != len(to.frameBuffer) {
		to.renderBuf = make([]byte, len(to.frameBuffer))
	}
	copy(to.renderBuf, to.frameBuffer)
	to.bufferMutex.RUnlock()

	os.Stdout.WriteString(ansiFrame(to.renderBuf, width, height))
	to.frameCount.Add(1)
}

// ansiFrame renders an RGBA frame as truecolor half blocks, two pixel
// rows per text line. Colour codes are only emitted when the pixel
// pair changes, which keeps mostly-background frames small.
func ansiFrame(pixels []byte, width, height int) string {
	var sb strings.Builder
	sb.Grow(width * height * 8)
	sb.WriteString("\x1b[H")

	for y := 0; y < height; y += 2 {
		first := true
		var lastTop, lastBottom [3]byte
		for x := range width {
			top := pixelRGB(pixels, width, x, y)
			var bottom [3]byte
			if y+1 < height {
				bottom = pixelRGB(pixels, width, x, y+1)
			}
			if first || top != lastTop || bottom != lastBottom {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm",
					top[0], top[1], top[2], bottom[0], bottom[1], bottom[2])
				lastTop, lastBottom = top, bottom
				first = false
			}
			sb.WriteRune('▀')
		}
		sb.WriteString("\x1b[0m\r\n")
	}

	sb.WriteString("\x1b[2mESC Quit  P Pause  ENTER Step  0 Reset  1234 QWER ASDF ZXCV\x1b[0m\x1b[K")
	return sb.String()
}

func pixelRGB(pixels []byte, width, x, y int) [3]byte {
	offset := (y*width + x) * 4
	return [3]byte{pixels[offset], pixels[offset+1], pixels[offset+2]}
}
