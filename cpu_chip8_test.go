// cpu_chip8_test.go - Tests for the CHIP-8 interpreter core

package main

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

// loadedCPU returns a machine with the default font and the given
// program image in memory, ready to tick.
func loadedCPU(t *testing.T, program ...byte) *CPU_Chip8 {
	t.Helper()
	cpu := NewCPU_Chip8()
	assert.NoError(t, cpu.Load(nil, program))
	return cpu
}

func faultKind(t *testing.T, err error) int {
	t.Helper()
	var cpuErr *CPUError
	assert.True(t, errors.As(err, &cpuErr), "expected a cpu fault")
	return cpuErr.Kind
}

func TestCPUChip8_LoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"empty program", 0, false},
		{"small program", 2, false},
		{"largest program", MEMORY_SIZE - MEMORY_PADDING, false},
		{"too large", MEMORY_SIZE - MEMORY_PADDING + 2, true},
		{"odd length", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := NewCPU_Chip8()
			err := cpu.Load(nil, make([]byte, tt.length))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, ERR_PROGRAM_INVALID, faultKind(t, err))
				assert.Equal(t, "attempt to load invalid program", err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCPUChip8_LoadPlacesFontAndProgram(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x01)

	assert.Equal(t, DefaultFont[0], cpu.Memory[0])
	assert.Equal(t, DefaultFont[FONT_SIZE-1], cpu.Memory[FONT_SIZE-1])
	assert.Equal(t, byte(0x60), cpu.Memory[MEMORY_PADDING])
	assert.Equal(t, byte(0x01), cpu.Memory[MEMORY_PADDING+1])
}

func TestCPUChip8_LoadCustomFont(t *testing.T) {
	var font [FONT_SIZE]byte
	font[0] = 0xAA
	font[FONT_SIZE-1] = 0x55

	cpu := NewCPU_Chip8()
	assert.NoError(t, cpu.Load(&font, []byte{0x60, 0x01}))
	assert.Equal(t, byte(0xAA), cpu.Memory[0])
	assert.Equal(t, byte(0x55), cpu.Memory[FONT_SIZE-1])
}

func TestCPUChip8_ReloadZeroesMemory(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x01)
	cpu.Memory[0x400] = 0xAA
	cpu.Registers.General[0] = 9

	assert.NoError(t, cpu.Load(nil, []byte{0x61, 0x05}))
	assert.Equal(t, byte(0), cpu.Memory[0x400])
	assert.Equal(t, byte(0x61), cpu.Memory[MEMORY_PADDING])
	assert.Equal(t, DefaultFont[0], cpu.Memory[0])
	// Load swaps the memory image only, Reset clears the registers.
	assert.Equal(t, byte(9), cpu.Registers.General[0])
}

func TestCPUChip8_TickWithoutProgram(t *testing.T) {
	cpu := NewCPU_Chip8()
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(1, display, keys)
	assert.Error(t, err)
	assert.Equal(t, ERR_PROGRAM_NOT_LOADED, faultKind(t, err))
	assert.Equal(t, "attempt to run without loading any program", err.Error())
}

func TestCPUChip8_TickBudgetClamp(t *testing.T) {
	cpu := loadedCPU(t, 0x70, 0x01, 0x70, 0x01)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	// A budget below one still executes exactly one instruction.
	_, _, err := cpu.Tick(0, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(1), cpu.Registers.General[0])
	assert.Equal(t, MEMORY_PADDING+2, cpu.index)
}

func TestCPUChip8_TickReportsLastExecuted(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x05, 0x61, 0x07)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	index, word, err := cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x202, index)
	assert.Equal(t, Instruction(0x6107), word)
}

func TestCPUChip8_NativeCallIsNoOp(t *testing.T) {
	// 0NNN ran native 1802 code on real hardware and must not fault.
	cpu := loadedCPU(t, 0x01, 0x11, 0x62, 0x05)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(5), cpu.Registers.General[2])
}

func TestCPUChip8_JumpAndOffsetJump(t *testing.T) {
	cpu := loadedCPU(t, 0x12, 0x34)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x234, cpu.index)

	cpu = loadedCPU(t, 0x60, 0x05, 0xB3, 0x00)
	_, _, err = cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x305, cpu.index)
}

func TestCPUChip8_CallAndReturn(t *testing.T) {
	// CALL 0x300 at the program start, RET at 0x300.
	program := make([]byte, 0x102)
	program[0] = 0x23
	program[1] = 0x00
	program[0x100] = 0x00
	program[0x101] = 0xEE

	cpu := loadedCPU(t, program...)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x300, cpu.index)
	assert.Len(t, cpu.Stack, 1)
	assert.Equal(t, uint16(0x202), cpu.Stack[0])

	_, _, err = cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x202, cpu.index)
	assert.Len(t, cpu.Stack, 0)
}

func TestCPUChip8_StackOverflow(t *testing.T) {
	// CALL 0x202 followed by CALL 0x202 recurses without returning;
	// the thirteenth call finds the stack full.
	cpu := loadedCPU(t, 0x22, 0x02, 0x22, 0x02)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(STACK_SIZE+1, display, keys)
	assert.Error(t, err)
	assert.Equal(t, ERR_STACK_OVERFLOW, faultKind(t, err))
	assert.Equal(t, "instruction 2202 at 0x202, attempt to call a coroutine when the stack is full", err.Error())
	assert.Len(t, cpu.Stack, STACK_SIZE)
}

func TestCPUChip8_StackUnderflow(t *testing.T) {
	cpu := loadedCPU(t, 0x00, 0xEE)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(1, display, keys)
	assert.Error(t, err)
	assert.Equal(t, ERR_STACK_UNDERFLOW, faultKind(t, err))
	assert.Equal(t, "instruction 00EE at 0x200, attempt to return when the stack is empty", err.Error())
}

func TestCPUChip8_ProgramCounterOverflow(t *testing.T) {
	// JP 0xFFE executes the zero word there, then the next fetch runs
	// off the end of memory.
	cpu := loadedCPU(t, 0x1F, 0xFE)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(3, display, keys)
	assert.Error(t, err)
	assert.Equal(t, ERR_MEMORY_OVERFLOW, faultKind(t, err))
	assert.Equal(t, "at 0x1000, attempt to access invalid memory address", err.Error())

	var cpuErr *CPUError
	assert.True(t, errors.As(err, &cpuErr))
	assert.True(t, cpuErr.HasIndex)
	assert.False(t, cpuErr.HasWord)
}

func TestCPUChip8_SkipInstructions(t *testing.T) {
	tests := []struct {
		name      string
		program   []byte
		v0        byte
		v1        byte
		wantIndex int
	}{
		{"se byte taken", []byte{0x30, 0x07}, 7, 0, 0x204},
		{"se byte not taken", []byte{0x30, 0x07}, 6, 0, 0x202},
		{"sne byte taken", []byte{0x40, 0x07}, 6, 0, 0x204},
		{"sne byte not taken", []byte{0x40, 0x07}, 7, 0, 0x202},
		{"se register taken", []byte{0x50, 0x10}, 9, 9, 0x204},
		{"se register not taken", []byte{0x50, 0x10}, 9, 8, 0x202},
		{"sne register taken", []byte{0x90, 0x10}, 9, 8, 0x204},
		{"sne register not taken", []byte{0x90, 0x10}, 9, 9, 0x202},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := loadedCPU(t, tt.program...)
			cpu.Registers.General[0] = tt.v0
			cpu.Registers.General[1] = tt.v1
			display := NewDisplayBuffer(DisplayOptions{})
			keys := NewKeyboardState()

			_, _, err := cpu.Tick(1, display, keys)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantIndex, cpu.index)
		})
	}
}

func TestCPUChip8_LoadAndAddImmediate(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x42, 0x70, 0x01, 0x70, 0xFF)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(3, display, keys)
	assert.NoError(t, err)
	// 0x42 + 1 + 0xFF wraps around without touching VF.
	assert.Equal(t, byte(0x42), cpu.Registers.General[0])
	assert.Equal(t, byte(0), cpu.Registers.General[FLAG_REGISTER])
}

func TestCPUChip8_RegisterArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		op     byte
		v0     byte
		v1     byte
		wantV0 byte
		wantVF byte
	}{
		{"ld", 0x0, 5, 9, 9, 0},
		{"or", 0x1, 0x50, 0x05, 0x55, 0},
		{"and", 0x2, 0xF0, 0x9F, 0x90, 0},
		{"xor", 0x3, 0xFF, 0x0F, 0xF0, 0},
		{"add with carry", 0x4, 200, 100, 44, 1},
		{"add without carry", 0x4, 1, 2, 3, 0},
		{"sub without borrow", 0x5, 10, 5, 5, 1},
		{"sub equal operands", 0x5, 10, 10, 0, 1},
		{"sub with borrow", 0x5, 5, 10, 251, 0},
		{"subn without borrow", 0x7, 5, 10, 5, 1},
		{"subn equal operands", 0x7, 7, 7, 0, 1},
		{"subn with borrow", 0x7, 10, 5, 251, 0},
		{"shr odd value", 0x6, 0x0B, 0xFF, 0x05, 1},
		{"shr even value", 0x6, 0x08, 0xFF, 0x04, 0},
		{"shl high bit set", 0xE, 0x81, 0xFF, 0x02, 1},
		{"shl high bit clear", 0xE, 0x41, 0xFF, 0x82, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := loadedCPU(t, 0x80, 0x10|tt.op)
			cpu.Registers.General[0] = tt.v0
			cpu.Registers.General[1] = tt.v1
			display := NewDisplayBuffer(DisplayOptions{})
			keys := NewKeyboardState()

			_, _, err := cpu.Tick(1, display, keys)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantV0, cpu.Registers.General[0])
			assert.Equal(t, tt.wantVF, cpu.Registers.General[FLAG_REGISTER])
		})
	}
}

func TestCPUChip8_AddFlagRegisterOrder(t *testing.T) {
	// ADD VF, V1: the carry flag is written before the sum, so the sum
	// wins when VF is the destination.
	cpu := loadedCPU(t, 0x8F, 0x14)
	cpu.Registers.General[FLAG_REGISTER] = 200
	cpu.Registers.General[1] = 100
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(44), cpu.Registers.General[FLAG_REGISTER])
}

func TestCPUChip8_UnrecognizedInstruction(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
	}{
		{"alu operation 8", []byte{0x80, 0x18}},
		{"keypad operation", []byte{0xE0, 0x01}},
		{"timer operation", []byte{0xF0, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := loadedCPU(t, tt.program...)
			display := NewDisplayBuffer(DisplayOptions{})
			keys := NewKeyboardState()

			_, _, err := cpu.Tick(1, display, keys)
			assert.Error(t, err)
			assert.Equal(t, ERR_UNRECOGNIZED_INSTRUCTION, faultKind(t, err))
			assert.ErrorContains(t, err, "unrecognized instruction")
		})
	}
}

func TestCPUChip8_AddressRegister(t *testing.T) {
	cpu := loadedCPU(t, 0xA1, 0x23)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x123, cpu.Registers.Address)
}

func TestCPUChip8_AddToAddressWraps(t *testing.T) {
	cpu := loadedCPU(t, 0xAF, 0xFF, 0x60, 0x05, 0xF0, 0x1E)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(3, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 4, cpu.Registers.Address)
}

func TestCPUChip8_CharacterSprite(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x0A, 0xF0, 0x29)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 10*CHARACTER_SIZE, cpu.Registers.Address)
}

func TestCPUChip8_CharacterSpriteOutOfRange(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x10, 0xF0, 0x29)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.Error(t, err)
	assert.Equal(t, ERR_UNRECOGNIZED_SPRITE, faultKind(t, err))
	assert.Equal(t, "instruction F029 at 0x202, attempt to load unrecognized sprite", err.Error())
}

func TestCPUChip8_BinaryCodedDecimal(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0xCD, 0xA3, 0x00, 0xF0, 0x33)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(3, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(2), cpu.Memory[0x300])
	assert.Equal(t, byte(0), cpu.Memory[0x301])
	assert.Equal(t, byte(5), cpu.Memory[0x302])
}

func TestCPUChip8_BinaryCodedDecimalBounds(t *testing.T) {
	cpu := loadedCPU(t, 0xAF, 0xFE, 0xF0, 0x33)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.Error(t, err)
	assert.Equal(t, ERR_MEMORY_OVERFLOW, faultKind(t, err))
}

func TestCPUChip8_StoreRegisters(t *testing.T) {
	cpu := loadedCPU(t,
		0x60, 0x01, 0x61, 0x02, 0x62, 0x03, 0x63, 0x04,
		0xA3, 0x00, 0xF3, 0x55,
	)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(6, display, keys)
	assert.NoError(t, err)
	// V0 through V3 inclusive, nothing past the named register.
	assert.Equal(t, byte(1), cpu.Memory[0x300])
	assert.Equal(t, byte(2), cpu.Memory[0x301])
	assert.Equal(t, byte(3), cpu.Memory[0x302])
	assert.Equal(t, byte(4), cpu.Memory[0x303])
	assert.Equal(t, byte(0), cpu.Memory[0x304])
}

func TestCPUChip8_RestoreRegisters(t *testing.T) {
	cpu := loadedCPU(t, 0xA3, 0x00, 0xF3, 0x65)
	copy(cpu.Memory[0x300:], []byte{9, 8, 7, 6, 5})
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(9), cpu.Registers.General[0])
	assert.Equal(t, byte(8), cpu.Registers.General[1])
	assert.Equal(t, byte(7), cpu.Registers.General[2])
	assert.Equal(t, byte(6), cpu.Registers.General[3])
	assert.Equal(t, byte(0), cpu.Registers.General[4])
}

func TestCPUChip8_RegisterTransferBounds(t *testing.T) {
	// Address + X runs past the top of memory for store and restore,
	// but the last word of memory itself is still addressable.
	tests := []struct {
		name    string
		program []byte
		wantErr bool
	}{
		{"store overflow", []byte{0xAF, 0xFE, 0xF3, 0x55}, true},
		{"restore overflow", []byte{0xAF, 0xFE, 0xF3, 0x65}, true},
		{"store at top", []byte{0xAF, 0xFC, 0xF3, 0x55}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := loadedCPU(t, tt.program...)
			display := NewDisplayBuffer(DisplayOptions{})
			keys := NewKeyboardState()

			_, _, err := cpu.Tick(2, display, keys)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, ERR_MEMORY_OVERFLOW, faultKind(t, err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCPUChip8_TimersDecrementBeforeBatch(t *testing.T) {
	cpu := loadedCPU(t, 0xF0, 0x07)
	cpu.Timers.Delay = 5
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	// The delay timer steps once per tick, before any instruction runs.
	_, _, err := cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(4), cpu.Registers.General[0])
	assert.Equal(t, byte(4), cpu.Timers.Delay)
}

func TestCPUChip8_TimersSetAndSaturate(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x02, 0xF0, 0x15, 0xF0, 0x18, 0x12, 0x06)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(3, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(2), cpu.Timers.Delay)
	assert.Equal(t, byte(2), cpu.Timers.Sound)

	// Each tick steps both timers once regardless of the batch size;
	// at zero they stay at zero.
	for range 4 {
		_, _, err = cpu.Tick(2, display, keys)
		assert.NoError(t, err)
	}
	assert.Equal(t, byte(0), cpu.Timers.Delay)
	assert.Equal(t, byte(0), cpu.Timers.Sound)
}

func TestCPUChip8_RandomMasked(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0xFF, 0xC0, 0x00)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(0), cpu.Registers.General[0])

	cpu = loadedCPU(t, 0xC0, 0x0F)
	_, _, err = cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(0), cpu.Registers.General[0]&0xF0)
}

func TestCPUChip8_DrawSpriteAndCollision(t *testing.T) {
	// I points at the program itself, so the sprite row is the first
	// program byte 0xA2. Redrawing erases it and reports the collision.
	cpu := loadedCPU(t, 0xA2, 0x00, 0xD0, 0x01, 0xD0, 0x01)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.True(t, display.Pixel(0, 0))
	assert.False(t, display.Pixel(1, 0))
	assert.True(t, display.Pixel(2, 0))
	assert.True(t, display.Pixel(6, 0))
	assert.Equal(t, byte(0), cpu.Registers.General[FLAG_REGISTER])

	_, _, err = cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.False(t, display.Pixel(0, 0))
	assert.False(t, display.Pixel(2, 0))
	assert.Equal(t, byte(1), cpu.Registers.General[FLAG_REGISTER])
}

func TestCPUChip8_DrawUsesRegisterPosition(t *testing.T) {
	cpu := loadedCPU(t, 0x6A, 0x03, 0x6B, 0x02, 0xA2, 0x00, 0xDA, 0xB1)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	// Sprite row 0x6A lands at (VA, VB) = (3, 2).
	_, _, err := cpu.Tick(4, display, keys)
	assert.NoError(t, err)
	assert.False(t, display.Pixel(3, 2))
	assert.True(t, display.Pixel(4, 2))
	assert.True(t, display.Pixel(5, 2))
	assert.True(t, display.Pixel(7, 2))
	assert.True(t, display.Pixel(9, 2))
}

func TestCPUChip8_DrawCharacterSprite(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x00, 0xF0, 0x29, 0xD0, 0x05)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(3, display, keys)
	assert.NoError(t, err)
	// The zero glyph: a 4-pixel top bar and hollow sides.
	assert.True(t, display.Pixel(0, 0))
	assert.True(t, display.Pixel(3, 0))
	assert.False(t, display.Pixel(4, 0))
	assert.True(t, display.Pixel(0, 1))
	assert.False(t, display.Pixel(1, 1))
	assert.True(t, display.Pixel(3, 1))
	assert.True(t, display.Pixel(0, 4))
	assert.True(t, display.Pixel(3, 4))
}

func TestCPUChip8_DrawZeroHeight(t *testing.T) {
	cpu := loadedCPU(t, 0xA2, 0x00, 0xD0, 0x00)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(0), cpu.Registers.General[FLAG_REGISTER])
}

func TestCPUChip8_DrawSpriteReadBounds(t *testing.T) {
	// Reading five sprite rows from 0xFFC runs past the top of memory;
	// from 0xFFB the last row is exactly the last byte.
	cpu := loadedCPU(t, 0xAF, 0xFC, 0xD0, 0x05)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.Error(t, err)
	assert.Equal(t, ERR_MEMORY_OVERFLOW, faultKind(t, err))
	assert.Equal(t, "instruction D005 at 0x202, attempt to access invalid memory address", err.Error())

	cpu = loadedCPU(t, 0xAF, 0xFB, 0xD0, 0x05)
	_, _, err = cpu.Tick(2, display, keys)
	assert.NoError(t, err)
}

func TestCPUChip8_ClearScreen(t *testing.T) {
	cpu := loadedCPU(t, 0xA2, 0x00, 0xD0, 0x01, 0x00, 0xE0)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(2, display, keys)
	assert.NoError(t, err)
	assert.True(t, display.Pixel(0, 0))

	_, _, err = cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.False(t, display.Pixel(0, 0))
	assert.False(t, display.Pixel(2, 0))
}

func TestCPUChip8_SkipIfKeyEndsBatch(t *testing.T) {
	// SKP V0 without the key held falls through and forfeits the rest
	// of the batch; the load after it runs only on the next tick.
	cpu := loadedCPU(t, 0xE0, 0x9E, 0x61, 0x99)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(5, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x202, cpu.index)
	assert.Equal(t, byte(0), cpu.Registers.General[1])

	_, _, err = cpu.Tick(5, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x99), cpu.Registers.General[1])
}

func TestCPUChip8_SkipIfKeyPressed(t *testing.T) {
	cpu := loadedCPU(t, 0x60, 0x05, 0xE0, 0x9E, 0x61, 0x99)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()
	keys.Hold(5)

	_, _, err := cpu.Tick(3, display, keys)
	assert.NoError(t, err)
	// The skip jumps over the load at 0x204.
	assert.Equal(t, 0x206, cpu.index)
	assert.Equal(t, byte(0), cpu.Registers.General[1])
}

func TestCPUChip8_SkipIfKeyNotPressed(t *testing.T) {
	cpu := loadedCPU(t, 0xE0, 0xA1, 0x61, 0x99)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x204, cpu.index)

	cpu = loadedCPU(t, 0xE0, 0xA1, 0x61, 0x99)
	keys.Hold(0)
	_, _, err = cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x202, cpu.index)
	keys.Release(0)
}

func TestCPUChip8_WaitForKey(t *testing.T) {
	cpu := loadedCPU(t, 0xF0, 0x0A, 0x61, 0x99)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	// Without a key the instruction rewinds and re-executes each tick.
	for range 3 {
		_, _, err := cpu.Tick(5, display, keys)
		assert.NoError(t, err)
		assert.Equal(t, 0x200, cpu.index)
	}

	keys.Hold(0xC)
	_, _, err := cpu.Tick(5, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, byte(0xC), cpu.Registers.General[0])
	assert.Equal(t, 0x202, cpu.index)
	// The batch still ends on the keypad instruction.
	assert.Equal(t, byte(0), cpu.Registers.General[1])
}

func TestCPUChip8_Reset(t *testing.T) {
	cpu := loadedCPU(t,
		0x22, 0x04, 0x60, 0x05, 0xA1, 0x23, 0x63, 0x08, 0xF3, 0x15,
	)
	display := NewDisplayBuffer(DisplayOptions{})
	keys := NewKeyboardState()

	_, _, err := cpu.Tick(5, display, keys)
	assert.NoError(t, err)
	assert.Len(t, cpu.Stack, 1)
	assert.Equal(t, byte(5), cpu.Registers.General[0])
	assert.Equal(t, 0x123, cpu.Registers.Address)
	assert.Equal(t, byte(8), cpu.Timers.Delay)

	cpu.Reset()
	assert.Equal(t, MEMORY_PADDING, cpu.index)
	assert.Equal(t, 0, cpu.Registers.Address)
	assert.Equal(t, byte(0), cpu.Registers.General[0])
	assert.Equal(t, byte(0), cpu.Registers.General[3])
	assert.Len(t, cpu.Stack, 0)
	assert.Equal(t, byte(0), cpu.Timers.Delay)

	// Memory survives, so the program runs again from the start.
	assert.Equal(t, byte(0x22), cpu.Memory[MEMORY_PADDING])
	_, _, err = cpu.Tick(1, display, keys)
	assert.NoError(t, err)
	assert.Equal(t, 0x204, cpu.index)
}
