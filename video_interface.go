// video_interface.go - Video output interface and backend selection

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/CosmacEngine
License: GPLv3 or later
*/

package main

import "fmt"

// VideoError provides detailed error context for video operations
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

// Host control actions reported by backends alongside keypad input
const (
	CONTROL_QUIT = iota
	CONTROL_PAUSE
	CONTROL_STEP
	CONTROL_RESET
)

const DEFAULT_WINDOW_SCALE = 10

// DisplayConfig contains hardware-independent output configuration
type DisplayConfig struct {
	Width      int
	Height     int
	Scale      int // Integer scaling factor for the window
	Fullscreen bool
}

// VideoOutput is the surface a display backend must implement. The run
// loop renders the framebuffer to RGBA and hands it over through
// UpdateFrame; the backend translates host input into CHIP-8 keypad
// events and control actions and reports them through the registered
// handlers. Each backend owns its own host-key to keypad mapping.
type VideoOutput interface {
	// Lifecycle management
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	// Display path
	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(pixels []byte) error // RGBA, DISPLAY_WIDTH x DISPLAY_HEIGHT
	GetFrameCount() uint64

	// Input path
	SetKeypadHandler(fn func(key byte, down bool))
	SetControlHandler(fn func(action int))

	// Done is closed when the backend shuts down on its own, such as
	// the window being closed.
	Done() <-chan struct{}
}

// Predefined video backend types
const (
	VIDEO_BACKEND_EBITEN   = iota // Windowed output, pure Go
	VIDEO_BACKEND_TERMINAL        // ANSI rendering on the controlling terminal
)

// NewVideoOutput creates a new video output instance using the specified backend
func NewVideoOutput(backend int) (VideoOutput, error) {
	switch backend {
	case VIDEO_BACKEND_EBITEN:
		return NewEbitenOutput()
	case VIDEO_BACKEND_TERMINAL:
		return NewTerminalOutput()
	}
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}
