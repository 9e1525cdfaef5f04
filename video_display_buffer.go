// video_display_buffer.go - CHIP-8 monochrome framebuffer

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/CosmacEngine
License: GPLv3 or later
*/

package main

import "time"

const (
	DISPLAY_WIDTH  = 64
	DISPLAY_HEIGHT = 32
)

// Coordinate addresses a single pixel, x across, y down.
type Coordinate struct {
	X, Y int
}

type DisplayOptions struct {
	TrackChanges bool // keep per-pixel flip timestamps for the fade effect
	WrapSprites  bool // wrap sprites at the edges instead of clipping
}

// DisplayBuffer is the 64x32 monochrome framebuffer. Each row is one
// uint64 with the most significant bit at x 0. Sprites are drawn by
// XOR so redrawing a sprite erases it. The buffer carries no lock of
// its own; exactly one goroutine owns it at any time.
type DisplayBuffer struct {
	rows    [DISPLAY_HEIGHT]uint64
	changed map[Coordinate]time.Time
	dirty   bool
	options DisplayOptions
}

func NewDisplayBuffer(options DisplayOptions) *DisplayBuffer {
	d := &DisplayBuffer{options: options}
	if options.TrackChanges {
		d.changed = make(map[Coordinate]time.Time, DISPLAY_WIDTH*DISPLAY_HEIGHT)
	}
	return d
}

// Clear switches every pixel off and marks the buffer dirty.
func (d *DisplayBuffer) Clear() {
	for y := range d.rows {
		d.rows[y] = 0
	}
	d.dirty = true
}

// Draw XOR-blits an n-byte sprite whose origin is (x, y) modulo the
// buffer dimensions. Sprite rows are bytes, MSB leftmost. With
// WrapSprites off, a row stops at the right edge and the sprite stops
// at the bottom edge once the edge pixel has been processed. A set
// sprite bit landing on a set pixel switches it off and counts as a
// collision; when TrackChanges is on the flip is timestamped. Returns
// whether any collision occurred.
func (d *DisplayBuffer) Draw(x, y int, sprite []byte) bool {
	x %= DISPLAY_WIDTH
	y %= DISPLAY_HEIGHT

	collided := false
	for row, bits := range sprite {
		cy := (y + row) % DISPLAY_HEIGHT

		for bit := range 8 {
			cx := (x + bit) % DISPLAY_WIDTH

			if bits&(0x80>>bit) != 0 {
				mask := uint64(1) << (DISPLAY_WIDTH - 1 - cx)
				if d.rows[cy]&mask != 0 {
					collided = true
					if d.options.TrackChanges {
						d.changed[Coordinate{cx, cy}] = time.Now()
					}
				}
				d.rows[cy] ^= mask
			}

			if !d.options.WrapSprites && cx == DISPLAY_WIDTH-1 {
				break
			}
		}

		if !d.options.WrapSprites && cy == DISPLAY_HEIGHT-1 {
			break
		}
	}

	d.dirty = true
	return collided
}

// Pixel reports whether the pixel at (x, y) is on. Out-of-range
// coordinates read as off.
func (d *DisplayBuffer) Pixel(x, y int) bool {
	if x < 0 || x >= DISPLAY_WIDTH || y < 0 || y >= DISPLAY_HEIGHT {
		return false
	}
	return d.rows[y]&(uint64(1)<<(DISPLAY_WIDTH-1-x)) != 0
}

func (d *DisplayBuffer) Dirty() bool {
	return d.dirty
}

func (d *DisplayBuffer) MarkDirty() {
	d.dirty = true
}

func (d *DisplayBuffer) ClearDirty() {
	d.dirty = false
}

// TakeChange removes and returns the flip timestamp for a coordinate.
// The fade renderer takes each timestamp, and puts back the ones still
// in flight with PutChange.
func (d *DisplayBuffer) TakeChange(c Coordinate) (time.Time, bool) {
	t, ok := d.changed[c]
	if ok {
		delete(d.changed, c)
	}
	return t, ok
}

func (d *DisplayBuffer) PutChange(c Coordinate, t time.Time) {
	if d.changed == nil {
		return
	}
	d.changed[c] = t
}

func (d *DisplayBuffer) Options() DisplayOptions {
	return d.options
}
