package sprintpatch

import (
	"encoding/binary"
	"fmt"
)

const (
	opcodeCALLabs  = 0xff // CALL r/m64 (FF /2), JMP r/m64 (FF /4)
	opcodeINT3     = 0xcc
	opcodeMOVimm64 = 0xb8 // MOV r64, imm64 (REX.W B8+r)
	prefixREXW     = 0x48

	regModeDirect = 3
	registerAX    = 0

	extCALL = 2
	extJMP  = 4
)

// OperandKind describes what follows the opcode bytes of an Instruction.
type OperandKind int

const (
	NoOperand OperandKind = iota
	// Imm64 is an 8 byte little-endian immediate.
	Imm64
	// Rel32 is a 4 byte displacement. The instruction's Value holds the
	// absolute target and the displacement is worked out from where the
	// instruction ends up.
	Rel32
)

func (k OperandKind) width() int {
	switch k {
	case Imm64:
		return 8
	case Rel32:
		return 4
	}
	return 0
}

// Instruction is one line of a stub: opcode bytes followed by an operand.
type Instruction struct {
	Opcode  []byte
	Operand OperandKind
	Value   uint64
}

// Len returns the encoded length of the instruction.
func (inst Instruction) Len() int {
	return len(inst.Opcode) + inst.Operand.width()
}

// StubSize returns the encoded length of code.
func StubSize(code []Instruction) int {
	n := 0
	for _, inst := range code {
		n += inst.Len()
	}
	return n
}

// Assemble encodes code as if it were placed at base.
func Assemble(base Address, code []Instruction) ([]byte, error) {
	buf := make([]byte, 0, StubSize(code))

	for i, inst := range code {
		buf = append(buf, inst.Opcode...)

		switch inst.Operand {
		case NoOperand:
		case Imm64:
			buf = binary.LittleEndian.AppendUint64(buf, inst.Value)
		case Rel32:
			// Branches are measured from the end of the instruction, which
			// is where Displacement expects a 5 byte branch to end.
			end := base + Address(len(buf)) + 4
			disp, err := Displacement(end-BranchSize, Address(inst.Value))
			if err != nil {
				return nil, fmt.Errorf("instruction %d: %w", i, err)
			}
			buf = binary.LittleEndian.AppendUint32(buf, uint32(disp))
		default:
			return nil, fmt.Errorf("instruction %d: unknown operand kind %d", i, inst.Operand)
		}
	}

	return buf, nil
}

// CaveStub returns the x86-64 machine code equivalent of:
//
//	MOVQ $callback, AX
//	CALL AX
//	JMP  resume
func CaveStub(callback, resume Address) []Instruction {
	return []Instruction{
		{Opcode: []byte{prefixREXW, opcodeMOVimm64 | registerAX}, Operand: Imm64, Value: uint64(callback)},
		{Opcode: []byte{opcodeCALLabs, regModeDirect<<6 | extCALL<<3 | registerAX}},
		{Opcode: []byte{byte(OpJump)}, Operand: Rel32, Value: uint64(resume)},
	}
}

// AbsoluteJumpStub returns the x86-64 machine code equivalent of:
//
//	MOVQ $target, AX
//	JMP  AX
func AbsoluteJumpStub(target Address) []Instruction {
	return []Instruction{
		{Opcode: []byte{prefixREXW, opcodeMOVimm64 | registerAX}, Operand: Imm64, Value: uint64(target)},
		{Opcode: []byte{opcodeCALLabs, regModeDirect<<6 | extJMP<<3 | registerAX}},
	}
}
