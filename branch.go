package sprintpatch

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Opcode is the first byte of a relative branch.
type Opcode byte

const (
	OpCall Opcode = 0xe8 // CALL rel32
	OpJump Opcode = 0xe9 // JMP rel32
)

func (op Opcode) String() string {
	switch op {
	case OpCall:
		return "CALL"
	case OpJump:
		return "JMP"
	}
	return fmt.Sprintf("Opcode(%#02x)", byte(op))
}

// BranchSize is the length of a relative branch: 1 byte opcode + 4 byte
// displacement.
const BranchSize = 5

// RangeError reports a branch whose displacement does not fit in 32 bits.
type RangeError struct {
	Src, Dst     Address
	Displacement int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v from %v to %v: displacement %d does not fit in 32 bits", ErrOutOfRange, e.Src, e.Dst, e.Displacement)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// Displacement returns dst - (src + 5), the rel32 operand of a branch at src
// that lands on dst.
func Displacement(src, dst Address) (int32, error) {
	delta := int64(dst) - int64(src) - BranchSize
	if delta < math.MinInt32 || delta > math.MaxInt32 {
		return 0, &RangeError{Src: src, Dst: dst, Displacement: delta}
	}
	return int32(delta), nil
}

// EncodeBranch returns the machine code for a relative branch at src to dst.
func EncodeBranch(op Opcode, src, dst Address) ([BranchSize]byte, error) {
	var code [BranchSize]byte

	disp, err := Displacement(src, dst)
	if err != nil {
		return code, err
	}

	code[0] = byte(op)
	binary.LittleEndian.PutUint32(code[1:], uint32(disp))
	return code, nil
}

// EncodeJump returns JMP rel32 at src to dst.
func EncodeJump(src, dst Address) ([BranchSize]byte, error) {
	return EncodeBranch(OpJump, src, dst)
}

// EncodeCall returns CALL rel32 at src to dst.
func EncodeCall(src, dst Address) ([BranchSize]byte, error) {
	return EncodeBranch(OpCall, src, dst)
}
