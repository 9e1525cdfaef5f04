// video_render.go - Framebuffer to RGBA conversion with fade effect

package main

import (
	"image/color"
	"time"
)

// A pixel that flipped off keeps fading for two frames.
const FADE_DURATION = 2 * TICK_INTERVAL

// Colors is the two-tone palette for the monochrome display.
type Colors struct {
	Active   color.RGBA
	Inactive color.RGBA
}

func DefaultColors() Colors {
	return Colors{
		Active:   color.RGBA{R: 0xDC, G: 0xC8, B: 0xFF, A: 0xFF},
		Inactive: color.RGBA{R: 0x14, G: 0x0E, B: 0x1C, A: 0xFF},
	}
}

func (c Colors) get(pixel bool) color.RGBA {
	if pixel {
		return c.Active
	}
	return c.Inactive
}

// FrameRenderer converts the bit framebuffer into RGBA pixels for a
// video backend, applying the fade effect when enabled. The pixel
// buffer is reused across frames; UpdateFrame implementations copy it.
type FrameRenderer struct {
	colors Colors
	fade   bool
	pixels []byte
}

func NewFrameRenderer(colors Colors, fade bool) *FrameRenderer {
	return &FrameRenderer{
		colors: colors,
		fade:   fade,
		pixels: make([]byte, DISPLAY_WIDTH*DISPLAY_HEIGHT*4),
	}
}

// Render returns the RGBA image for the current buffer state. A pixel
// that flipped off within FADE_DURATION renders at an interpolated
// color; its timestamp goes back into the buffer and the buffer is
// re-marked dirty so the fade keeps animating on the following frames.
func (fr *FrameRenderer) Render(d *DisplayBuffer) []byte {
	offset := 0
	for y := range DISPLAY_HEIGHT {
		for x := range DISPLAY_WIDTH {
			c := fr.colors.get(d.Pixel(x, y))

			if fr.fade {
				if timestamp, ok := d.TakeChange(Coordinate{x, y}); ok {
					if elapsed := time.Since(timestamp); elapsed < FADE_DURATION {
						c = fadeColor(fr.colors.Active, fr.colors.Inactive, fadeStep(elapsed))
						d.PutChange(Coordinate{x, y}, timestamp)
						d.MarkDirty()
					}
				}
			}

			fr.pixels[offset] = c.R
			fr.pixels[offset+1] = c.G
			fr.pixels[offset+2] = c.B
			fr.pixels[offset+3] = c.A
			offset += 4
		}
	}
	return fr.pixels
}

func fadeStep(elapsed time.Duration) float32 {
	progress := float32(elapsed.Seconds() / FADE_DURATION.Seconds())
	switch {
	case progress < 0.5:
		return 4.0
	case progress < 0.75:
		return 2.0
	}
	return 1.3
}

func fadeColor(src, dst color.RGBA, step float32) color.RGBA {
	return color.RGBA{
		R: byte(float32(saturatingAdd(src.R, dst.R)) / step),
		G: byte(float32(saturatingAdd(src.G, dst.G)) / step),
		B: byte(float32(saturatingAdd(src.B, dst.B)) / step),
		A: 0xFF,
	}
}

func saturatingAdd(a, b byte) byte {
	sum := int(a) + int(b)
	if sum > 0xFF {
		return 0xFF
	}
	return byte(sum)
}
