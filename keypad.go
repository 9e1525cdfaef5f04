// keypad.go - CHIP-8 16-key pad state

package main

import "sync"

// KeyboardState holds the pressed flags for the 16-key hex pad. The
// input side writes through Hold/Release while the interpreter reads
// through Pressed/PressedKey. The internal lock covers one access at
// a time and is never held across a whole tick, so key events land
// between instructions rather than between frames.
type KeyboardState struct {
	mu   sync.Mutex
	keys [KEY_COUNT]bool
}

func NewKeyboardState() *KeyboardState {
	return &KeyboardState{}
}

// Hold marks a key as pressed. Indices outside the pad are ignored;
// the keymap owner filters before calling.
func (k *KeyboardState) Hold(key int) {
	if key < 0 || key >= KEY_COUNT {
		return
	}
	k.mu.Lock()
	k.keys[key] = true
	k.mu.Unlock()
}

// Release marks a key as released. Out-of-range indices are ignored.
func (k *KeyboardState) Release(key int) {
	if key < 0 || key >= KEY_COUNT {
		return
	}
	k.mu.Lock()
	k.keys[key] = false
	k.mu.Unlock()
}

// Pressed reports whether a key is down. Out-of-range queries read as
// released rather than failing.
func (k *KeyboardState) Pressed(key int) bool {
	if key < 0 || key >= KEY_COUNT {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keys[key]
}

// PressedKey returns the lowest-numbered key currently down.
func (k *KeyboardState) PressedKey() (int, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, pressed := range k.keys {
		if pressed {
			return key, true
		}
	}
	return 0, false
}
