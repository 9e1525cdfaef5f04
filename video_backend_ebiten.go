//go:build !headless

// video_backend_ebiten.go - Ebiten windowed video backend

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/CosmacEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// Host keys for the 4x4 hex keypad, laid out the way the original
// COSMAC keypads were: 123C / 456D / 789E / A0BF under 1234 / QWER /
// ASDF / ZXCV.
var keypadKeys = map[ebiten.Key]byte{
	ebiten.Key1: 0x1, ebiten.Key2: 0x2, ebiten.Key3: 0x3, ebiten.Key4: 0xC,
	ebiten.KeyQ: 0x4, ebiten.KeyW: 0x5, ebiten.KeyE: 0x6, ebiten.KeyR: 0xD,
	ebiten.KeyA: 0x7, ebiten.KeyS: 0x8, ebiten.KeyD: 0x9, ebiten.KeyF: 0xE,
	ebiten.KeyZ: 0xA, ebiten.KeyX: 0x0, ebiten.KeyC: 0xB, ebiten.KeyV: 0xF,
}

type EbitenOutput struct {
	running     bool
	window      *ebiten.Image
	width       int
	height      int
	fullscreen  bool
	scale       int
	windowedW   int
	windowedH   int
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  atomic.Uint64
	vsyncChan   chan struct{}
	done        chan struct{}

	keypadHandler  func(key byte, down bool)
	controlHandler func(action int)
	showStatusBar  bool
}

func NewEbitenOutput() (VideoOutput, error) {
	return &EbitenOutput{
		width:         DISPLAY_WIDTH,
		height:        DISPLAY_HEIGHT,
		scale:         DEFAULT_WINDOW_SCALE,
		windowedW:     DISPLAY_WIDTH * DEFAULT_WINDOW_SCALE,
		windowedH:     DISPLAY_HEIGHT * DEFAULT_WINDOW_SCALE,
		frameBuffer:   make([]byte, DISPLAY_WIDTH*DISPLAY_HEIGHT*4),
		vsyncChan:     make(chan struct{}, 1),
		done:          make(chan struct{}),
		showStatusBar: true,
	}, nil
}

func (eo *EbitenOutput) Start() error {
	if eo.running {
		return nil
	}
	eo.bufferMutex.Lock()
	eo.done = make(chan struct{})
	eo.bufferMutex.Unlock()
	eo.running = true
	ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	ebiten.SetWindowTitle("Cosmac Engine (c) 2024 - 2026 Zayn Otley")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}

	go func() {
		defer func() {
			eo.running = false
			eo.bufferMutex.RLock()
			done := eo.done
			eo.bufferMutex.RUnlock()
			select {
			case <-done:
			default:
				close(done)
			}
		}()
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Printf("Ebiten error: %v\n", err)
		}
	}()

	// Wait for first Draw call to ensure Ebiten is ready
	<-eo.vsyncChan
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.running = false
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

func (eo *EbitenOutput) Done() <-chan struct{} {
	eo.bufferMutex.RLock()
	done := eo.done
	eo.bufferMutex.RUnlock()
	return done
}

func (eo *EbitenOutput) UpdateFrame(pixels []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, pixels)
	eo.bufferMutex.Unlock()
	return nil
}

func clampScale(scale int) int {
	if scale < 1 {
		return 1
	}
	if scale > 32 {
		return 32
	}
	return scale
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	width := config.Width
	height := config.Height
	if width <= 0 {
		width = DISPLAY_WIDTH
	}
	if height <= 0 {
		height = DISPLAY_HEIGHT
	}
	eo.width = width
	eo.height = height
	eo.scale = clampScale(config.Scale)
	newSize := eo.width * eo.height * 4

	if len(eo.frameBuffer) != newSize {
		eo.frameBuffer = make([]byte, newSize)
	}

	eo.windowedW = eo.width * eo.scale
	eo.windowedH = eo.height * eo.scale
	eo.fullscreen = config.Fullscreen
	ebiten.SetFullscreen(eo.fullscreen)
	if !eo.fullscreen {
		ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	}
	if eo.window != nil {
		eo.window.Dispose()
		eo.window = nil
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Width:      eo.width,
		Height:     eo.height,
		Scale:      eo.scale,
		Fullscreen: eo.fullscreen,
	}
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount.Load()
}

func (eo *EbitenOutput) IsStarted() bool {
	return eo.running
}

func (eo *EbitenOutput) SetKeypadHandler(fn func(key byte, down bool)) {
	eo.bufferMutex.Lock()
	eo.keypadHandler = fn
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) SetControlHandler(fn func(action int)) {
	eo.bufferMutex.Lock()
	eo.controlHandler = fn
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) emitKeypad(key byte, down bool) {
	eo.bufferMutex.RLock()
	handler := eo.keypadHandler
	eo.bufferMutex.RUnlock()
	if handler != nil {
		handler(key, down)
	}
}

// emitControl hands the action to the frontend's handler. Handlers are
// expected to queue the action rather than act on it, since this runs
// on the render goroutine.
func (eo *EbitenOutput) emitControl(action int) {
	eo.bufferMutex.RLock()
	handler := eo.controlHandler
	eo.bufferMutex.RUnlock()
	if handler != nil {
		handler(action)
	}
}

func (eo *EbitenOutput) Update() error {
	// Check if the window was closed using Ebiten's built-in detection
	if ebiten.IsWindowBeingClosed() {
		eo.emitControl(CONTROL_QUIT)
		return ebiten.Termination
	}

	// Normal update path when window is open
	if !eo.running {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.bufferMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
		}
		eo.bufferMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.bufferMutex.Lock()
		eo.showStatusBar = !eo.showStatusBar
		eo.bufferMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		eo.emitControl(CONTROL_QUIT)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		eo.emitControl(CONTROL_PAUSE)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		eo.emitControl(CONTROL_STEP)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		eo.emitControl(CONTROL_RESET)
	}

	for hostKey, pad := range keypadKeys {
		if inpututil.IsKeyJustPressed(hostKey) {
			eo.emitKeypad(pad, true)
		}
		if inpututil.IsKeyJustReleased(hostKey) {
			eo.emitKeypad(pad, false)
		}
	}
	return nil
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}

	eo.bufferMutex.RLock()
	eo.window.WritePixels(eo.frameBuffer)
	showStatusBar := eo.showStatusBar
	scale := eo.scale
	eo.bufferMutex.RUnlock()

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(float64(scale), float64(scale))
	screen.DrawImage(eo.window, opts)
	if showStatusBar {
		eo.drawStatusBar(screen)
	}

	eo.frameCount.Add(1)
	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.width * eo.scale, eo.height * eo.scale
}

func (eo *EbitenOutput) drawStatusBar(screen *ebiten.Image) {
	face := basicfont.Face7x13
	barHeight := 30
	w := eo.width * eo.scale
	h := eo.height * eo.scale
	if barHeight >= h {
		return
	}
	y := h - barHeight
	ebitenutil.DrawRect(screen, 0, float64(y), float64(w), float64(barHeight), color.RGBA{0, 0, 0, 180})

	legendColor := color.RGBA{190, 190, 190, 255}
	padColor := color.RGBA{120, 120, 120, 255}
	text.Draw(screen, "ESC Quit  P Pause  ENTER Step  F10 Reset  F11 Fullscreen  F12 Status Bar", face, 6, y+12, legendColor)

	pad := "KEYPAD  1 2 3 4 / Q W E R / A S D F / Z X C V"
	padW := text.BoundString(face, pad).Dx()
	padX := max(w-padW-6, 6)
	text.Draw(screen, pad, face, padX, y+25, padColor)
}
