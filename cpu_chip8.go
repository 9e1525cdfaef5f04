// cpu_chip8.go - CHIP-8 interpreter core

/*
(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/CosmacEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"math/rand"
	"time"
)

const (
	// Machine geometry
	MEMORY_SIZE    = 4096
	MEMORY_PADDING = 512
	REGISTER_COUNT = 16
	STACK_SIZE     = 12
	KEY_COUNT      = 16

	// Font layout
	CHARACTER_SIZE = 5
	FONT_SIZE      = CHARACTER_SIZE * KEY_COUNT

	// Instruction format
	INSTRUCTION_SIZE = 2

	// VF doubles as the carry/collision flag
	FLAG_REGISTER = 15

	// Address register effective range
	ADDRESS_MASK = 0xFFF
)

const (
	// CPUError kinds
	ERR_MEMORY_OVERFLOW = iota
	ERR_PROGRAM_INVALID
	ERR_PROGRAM_NOT_LOADED
	ERR_STACK_OVERFLOW
	ERR_STACK_UNDERFLOW
	ERR_UNRECOGNIZED_INSTRUCTION
	ERR_UNRECOGNIZED_SPRITE
)

// CPUError reports a fault raised by Load or Tick. Faults raised after
// an instruction was fetched carry its address and word; the pre-fetch
// bounds fault carries the address alone.
type CPUError struct {
	Kind     int
	Index    int
	Word     Instruction
	HasIndex bool
	HasWord  bool
}

func (e *CPUError) Error() string {
	switch {
	case e.HasWord:
		return fmt.Sprintf("instruction %s at 0x%03x, %s", e.Word, e.Index, cpuErrorText(e.Kind))
	case e.HasIndex:
		return fmt.Sprintf("at 0x%x, %s", e.Index, cpuErrorText(e.Kind))
	}
	return cpuErrorText(e.Kind)
}

func cpuErrorText(kind int) string {
	switch kind {
	case ERR_MEMORY_OVERFLOW:
		return "attempt to access invalid memory address"
	case ERR_PROGRAM_INVALID:
		return "attempt to load invalid program"
	case ERR_PROGRAM_NOT_LOADED:
		return "attempt to run without loading any program"
	case ERR_STACK_OVERFLOW:
		return "attempt to call a coroutine when the stack is full"
	case ERR_STACK_UNDERFLOW:
		return "attempt to return when the stack is empty"
	case ERR_UNRECOGNIZED_INSTRUCTION:
		return "unrecognized instruction"
	case ERR_UNRECOGNIZED_SPRITE:
		return "attempt to load unrecognized sprite"
	}
	return "unknown fault"
}

func cpuFault(kind int) *CPUError {
	return &CPUError{Kind: kind}
}

func cpuFaultAt(kind, index int) *CPUError {
	return &CPUError{Kind: kind, Index: index, HasIndex: true}
}

func cpuFaultIn(kind, index int, word Instruction) *CPUError {
	return &CPUError{Kind: kind, Index: index, Word: word, HasIndex: true, HasWord: true}
}

type Registers struct {
	Address int
	General [REGISTER_COUNT]byte
}

type Timers struct {
	Delay byte
	Sound byte
}

// CPU_Chip8 is the CHIP-8 machine: 4KB of memory holding font and
// program, sixteen 8-bit registers, a 12-bit address register, a
// 12-deep call stack and two 60Hz-stepped timers. The program counter
// starts at MEMORY_PADDING where the program image is loaded.
type CPU_Chip8 struct {
	index  int
	loaded bool
	rng    *rand.Rand

	Memory    [MEMORY_SIZE]byte
	Registers Registers
	Stack     []uint16
	Timers    Timers
}

func NewCPU_Chip8() *CPU_Chip8 {
	return &CPU_Chip8{
		index: MEMORY_PADDING,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		Stack: make([]uint16, 0, STACK_SIZE),
	}
}

// Load copies a character font and a program image into memory. A nil
// font selects DefaultFont. The program must be even in length and fit
// between MEMORY_PADDING and the top of memory; reloading over a
// previous image zeroes all memory first. Load does not touch the
// registers or program counter, Reset does.
func (c *CPU_Chip8) Load(font *[FONT_SIZE]byte, program []byte) error {
	if len(program) > MEMORY_SIZE-MEMORY_PADDING || len(program)%2 != 0 {
		return cpuFault(ERR_PROGRAM_INVALID)
	}

	if c.loaded {
		clear(c.Memory[:])
	}

	if font == nil {
		font = &DefaultFont
	}
	copy(c.Memory[:FONT_SIZE], font[:])
	copy(c.Memory[MEMORY_PADDING:], program)
	c.loaded = true

	return nil
}

// Reset rewinds the program counter to the program start and clears
// the registers, the stack and both timers. Memory stays resident, so
// a loaded program survives a reset.
func (c *CPU_Chip8) Reset() {
	c.index = MEMORY_PADDING
	c.Registers.Address = 0
	clear(c.Registers.General[:])
	c.Stack = c.Stack[:0]
	c.Timers.Delay = 0
	c.Timers.Sound = 0
}

// Tick steps both timers once, then executes up to n instructions and
// returns the address and word of the last one executed. Instructions
// that depend on keypad input (EX9E, EXA1, FX0A) end the batch early
// so the caller can re-poll input at the tick cadence; the remaining
// budget is forfeited, not carried over.
func (c *CPU_Chip8) Tick(n int, display *DisplayBuffer, keys *KeyboardState) (int, Instruction, error) {
	if !c.loaded {
		return 0, 0, cpuFault(ERR_PROGRAM_NOT_LOADED)
	}
	if n < 1 {
		n = 1
	}

	c.Timers.Delay = saturatingDec(c.Timers.Delay)
	c.Timers.Sound = saturatingDec(c.Timers.Sound)

	lastIndex := c.index
	var lastWord Instruction

batch:
	for range n {
		if c.index+1 >= MEMORY_SIZE {
			return 0, 0, cpuFaultAt(ERR_MEMORY_OVERFLOW, c.index)
		}

		in := NewInstruction(c.Memory[c.index], c.Memory[c.index+1])
		lastIndex = c.index
		lastWord = in
		c.index += INSTRUCTION_SIZE

		switch in.OperatorCode() {
		case 0x0:
			switch in.OperandNNN() {
			case 0x0E0:
				display.Clear()
			case 0x0EE:
				if len(c.Stack) == 0 {
					return 0, 0, cpuFaultIn(ERR_STACK_UNDERFLOW, lastIndex, in)
				}
				c.index = int(c.Stack[len(c.Stack)-1])
				c.Stack = c.Stack[:len(c.Stack)-1]
			default:
				// 0NNN runs native 1802 code on real hardware; a no-op here.
			}

		case 0x1:
			c.index = in.OperandNNN()

		case 0x2:
			if len(c.Stack) == STACK_SIZE {
				return 0, 0, cpuFaultIn(ERR_STACK_OVERFLOW, lastIndex, in)
			}
			c.Stack = append(c.Stack, uint16(c.index))
			c.index = in.OperandNNN()

		case 0x3:
			if c.Registers.General[in.OperandX()] == in.OperandNN() {
				c.index += INSTRUCTION_SIZE
			}

		case 0x4:
			if c.Registers.General[in.OperandX()] != in.OperandNN() {
				c.index += INSTRUCTION_SIZE
			}

		case 0x5:
			if c.Registers.General[in.OperandX()] == c.Registers.General[in.OperandY()] {
				c.index += INSTRUCTION_SIZE
			}

		case 0x9:
			if c.Registers.General[in.OperandX()] != c.Registers.General[in.OperandY()] {
				c.index += INSTRUCTION_SIZE
			}

		case 0x6:
			c.Registers.General[in.OperandX()] = in.OperandNN()

		case 0x7:
			c.Registers.General[in.OperandX()] += in.OperandNN()

		case 0x8:
			x, y := in.OperandX(), in.OperandY()
			switch in.OperandN() {
			case 0x0:
				c.Registers.General[x] = c.Registers.General[y]
			case 0x1:
				c.Registers.General[x] |= c.Registers.General[y]
			case 0x2:
				c.Registers.General[x] &= c.Registers.General[y]
			case 0x3:
				c.Registers.General[x] ^= c.Registers.General[y]
			case 0x4:
				sum := int(c.Registers.General[x]) + int(c.Registers.General[y])
				c.Registers.General[FLAG_REGISTER] = flagByte(sum > 0xFF)
				c.Registers.General[x] = byte(sum)
			case 0x5:
				vx, vy := c.Registers.General[x], c.Registers.General[y]
				c.Registers.General[FLAG_REGISTER] = flagByte(vx >= vy)
				c.Registers.General[x] = vx - vy
			case 0x7:
				vx, vy := c.Registers.General[x], c.Registers.General[y]
				c.Registers.General[FLAG_REGISTER] = flagByte(vy >= vx)
				c.Registers.General[x] = vy - vx
			case 0x6:
				// Quirk: shifts operate on Vx alone, Vy is ignored.
				vx := c.Registers.General[x]
				c.Registers.General[FLAG_REGISTER] = vx & 1
				c.Registers.General[x] = vx >> 1
			case 0xE:
				vx := c.Registers.General[x]
				c.Registers.General[FLAG_REGISTER] = vx >> 7
				c.Registers.General[x] = vx << 1
			default:
				return 0, 0, cpuFaultIn(ERR_UNRECOGNIZED_INSTRUCTION, lastIndex, in)
			}

		case 0xA:
			c.Registers.Address = in.OperandNNN()

		case 0xB:
			c.index = int(c.Registers.General[0]) + in.OperandNNN()

		case 0xC:
			c.Registers.General[in.OperandX()] = byte(c.rng.Intn(256)) & in.OperandNN()

		case 0xD:
			height := int(in.OperandN())
			if c.Registers.Address+height > MEMORY_SIZE {
				return 0, 0, cpuFaultIn(ERR_MEMORY_OVERFLOW, lastIndex, in)
			}
			sprite := c.Memory[c.Registers.Address : c.Registers.Address+height]
			collided := display.Draw(
				int(c.Registers.General[in.OperandX()]),
				int(c.Registers.General[in.OperandY()]),
				sprite,
			)
			c.Registers.General[FLAG_REGISTER] = flagByte(collided)

		case 0xE:
			switch in.OperandNN() {
			case 0x9E:
				if keys.Pressed(int(c.Registers.General[in.OperandX()])) {
					c.index += INSTRUCTION_SIZE
				}
				break batch
			case 0xA1:
				if !keys.Pressed(int(c.Registers.General[in.OperandX()])) {
					c.index += INSTRUCTION_SIZE
				}
				break batch
			default:
				return 0, 0, cpuFaultIn(ERR_UNRECOGNIZED_INSTRUCTION, lastIndex, in)
			}

		case 0xF:
			switch in.OperandNN() {
			case 0x07:
				c.Registers.General[in.OperandX()] = c.Timers.Delay

			case 0x0A:
				// Wait for a key: rewind so the instruction re-executes next
				// call until a key is down, then store it and move on.
				if key, ok := keys.PressedKey(); ok {
					c.Registers.General[in.OperandX()] = byte(key)
				} else {
					c.index = lastIndex
				}
				break batch

			case 0x15:
				c.Timers.Delay = c.Registers.General[in.OperandX()]

			case 0x18:
				c.Timers.Sound = c.Registers.General[in.OperandX()]

			case 0x1E:
				c.Registers.Address = (c.Registers.Address + int(c.Registers.General[in.OperandX()])) & ADDRESS_MASK

			case 0x29:
				code := int(c.Registers.General[in.OperandX()])
				if code >= KEY_COUNT {
					return 0, 0, cpuFaultIn(ERR_UNRECOGNIZED_SPRITE, lastIndex, in)
				}
				c.Registers.Address = code * CHARACTER_SIZE

			case 0x33:
				if c.Registers.Address+2 >= MEMORY_SIZE {
					return 0, 0, cpuFaultIn(ERR_MEMORY_OVERFLOW, lastIndex, in)
				}
				v := c.Registers.General[in.OperandX()]
				c.Memory[c.Registers.Address] = v / 100
				c.Memory[c.Registers.Address+1] = v / 10 % 10
				c.Memory[c.Registers.Address+2] = v % 10

			case 0x55:
				x := in.OperandX()
				if c.Registers.Address+x >= MEMORY_SIZE {
					return 0, 0, cpuFaultIn(ERR_MEMORY_OVERFLOW, lastIndex, in)
				}
				copy(c.Memory[c.Registers.Address:], c.Registers.General[:x+1])

			case 0x65:
				x := in.OperandX()
				if c.Registers.Address+x >= MEMORY_SIZE {
					return 0, 0, cpuFaultIn(ERR_MEMORY_OVERFLOW, lastIndex, in)
				}
				copy(c.Registers.General[:x+1], c.Memory[c.Registers.Address:])

			default:
				return 0, 0, cpuFaultIn(ERR_UNRECOGNIZED_INSTRUCTION, lastIndex, in)
			}

		default:
			return 0, 0, cpuFaultIn(ERR_UNRECOGNIZED_INSTRUCTION, lastIndex, in)
		}
	}

	return lastIndex, lastWord, nil
}

func saturatingDec(v byte) byte {
	if v == 0 {
		return 0
	}
	return v - 1
}

func flagByte(set bool) byte {
	if set {
		return 1
	}
	return 0
}
