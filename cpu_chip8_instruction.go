// cpu_chip8_instruction.go - CHIP-8 instruction word decoding

package main

import "fmt"

// Instruction is one 16-bit CHIP-8 instruction word as fetched from
// memory in big-endian order. Operand fields are extracted by masking
// on demand; nothing is pre-decoded.
type Instruction uint16

func NewInstruction(hi, lo byte) Instruction {
	return Instruction(uint16(hi)<<8 | uint16(lo))
}

// OperatorCode returns the instruction family selector in the top nibble.
func (in Instruction) OperatorCode() byte {
	return byte(in >> 12)
}

// OperandN returns the low nibble (sprite height in DXYN).
func (in Instruction) OperandN() byte {
	return byte(in & 0x000F)
}

// OperandNN returns the low byte immediate.
func (in Instruction) OperandNN() byte {
	return byte(in & 0x00FF)
}

// OperandNNN returns the 12-bit address operand.
func (in Instruction) OperandNNN() int {
	return int(in & 0x0FFF)
}

// OperandX returns the first register selector.
func (in Instruction) OperandX() int {
	return int(in>>8) & 0x0F
}

// OperandY returns the second register selector.
func (in Instruction) OperandY() int {
	return int(in>>4) & 0x0F
}

func (in Instruction) String() string {
	return fmt.Sprintf("%04X", uint16(in))
}

// Disassemble renders the word using the conventional CHIP-8 assembler
// mnemonics. Encodings with no mnemonic render as a raw word directive.
func (in Instruction) Disassemble() string {
	x := in.OperandX()
	y := in.OperandY()
	n := in.OperandN()
	nn := in.OperandNN()
	nnn := in.OperandNNN()

	switch in.OperatorCode() {
	case 0x0:
		switch uint16(in) {
		case 0x00E0:
			return "CLS"
		case 0x00EE:
			return "RET"
		}
		return fmt.Sprintf("SYS 0x%03X", nnn)
	case 0x1:
		return fmt.Sprintf("JP 0x%03X", nnn)
	case 0x2:
		return fmt.Sprintf("CALL 0x%03X", nnn)
	case 0x3:
		return fmt.Sprintf("SE V%X, 0x%02X", x, nn)
	case 0x4:
		return fmt.Sprintf("SNE V%X, 0x%02X", x, nn)
	case 0x5:
		if n == 0x0 {
			return fmt.Sprintf("SE V%X, V%X", x, y)
		}
	case 0x6:
		return fmt.Sprintf("LD V%X, 0x%02X", x, nn)
	case 0x7:
		return fmt.Sprintf("ADD V%X, 0x%02X", x, nn)
	case 0x8:
		switch n {
		case 0x0:
			return fmt.Sprintf("LD V%X, V%X", x, y)
		case 0x1:
			return fmt.Sprintf("OR V%X, V%X", x, y)
		case 0x2:
			return fmt.Sprintf("AND V%X, V%X", x, y)
		case 0x3:
			return fmt.Sprintf("XOR V%X, V%X", x, y)
		case 0x4:
			return fmt.Sprintf("ADD V%X, V%X", x, y)
		case 0x5:
			return fmt.Sprintf("SUB V%X, V%X", x, y)
		case 0x6:
			return fmt.Sprintf("SHR V%X", x)
		case 0x7:
			return fmt.Sprintf("SUBN V%X, V%X", x, y)
		case 0xE:
			return fmt.Sprintf("SHL V%X", x)
		}
	case 0x9:
		if n == 0x0 {
			return fmt.Sprintf("SNE V%X, V%X", x, y)
		}
	case 0xA:
		return fmt.Sprintf("LD I, 0x%03X", nnn)
	case 0xB:
		return fmt.Sprintf("JP V0, 0x%03X", nnn)
	case 0xC:
		return fmt.Sprintf("RND V%X, 0x%02X", x, nn)
	case 0xD:
		return fmt.Sprintf("DRW V%X, V%X, %d", x, y, n)
	case 0xE:
		switch nn {
		case 0x9E:
			return fmt.Sprintf("SKP V%X", x)
		case 0xA1:
			return fmt.Sprintf("SKNP V%X", x)
		}
	case 0xF:
		switch nn {
		case 0x07:
			return fmt.Sprintf("LD V%X, DT", x)
		case 0x0A:
			return fmt.Sprintf("LD V%X, K", x)
		case 0x15:
			return fmt.Sprintf("LD DT, V%X", x)
		case 0x18:
			return fmt.Sprintf("LD ST, V%X", x)
		case 0x1E:
			return fmt.Sprintf("ADD I, V%X", x)
		case 0x29:
			return fmt.Sprintf("LD F, V%X", x)
		case 0x33:
			return fmt.Sprintf("LD B, V%X", x)
		case 0x55:
			return fmt.Sprintf("LD [I], V%X", x)
		case 0x65:
			return fmt.Sprintf("LD V%X, [I]", x)
		}
	}
	return fmt.Sprintf(".word 0x%04X", uint16(in))
}
