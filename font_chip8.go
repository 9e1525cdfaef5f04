// font_chip8.go - CHIP-8 hexadecimal character set

package main

import (
	"fmt"
	"os"
)

// DefaultFont is the stock CHIP-8 character set: sixteen glyphs of
// CHARACTER_SIZE rows each, one row per byte, upper nibble significant.
// Load falls back to it when no replacement font is supplied.
var DefaultFont = [FONT_SIZE]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// LoadFontFile reads a replacement character set from disk. The file
// must be exactly FONT_SIZE bytes.
func LoadFontFile(filename string) (*[FONT_SIZE]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if len(data) != FONT_SIZE {
		return nil, fmt.Errorf("font file %s: expected %d bytes, got %d", filename, FONT_SIZE, len(data))
	}
	var font [FONT_SIZE]byte
	copy(font[:], data)
	return &font, nil
}
