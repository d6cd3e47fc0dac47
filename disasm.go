package sprintpatch

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// DecodedInst is an instruction read back from memory.
type DecodedInst struct {
	x86asm.Inst
	Addr  Address
	Bytes []byte
}

// Target returns the destination of a relative JMP or CALL.
func (d DecodedInst) Target() (Address, bool) {
	if d.Op != x86asm.JMP && d.Op != x86asm.CALL {
		return 0, false
	}
	rel, ok := d.Args[0].(x86asm.Rel)
	if !ok {
		return 0, false
	}
	return d.Addr + Address(d.Len) + Address(int64(rel)), true
}

// Decode reads size bytes at addr and decodes them as 64-bit code.
func Decode(mem Memory, addr Address, size int) ([]DecodedInst, error) {
	code := make([]byte, size)
	if err := mem.Read(addr, code); err != nil {
		return nil, err
	}

	var insts []DecodedInst
	for i := 0; i < len(code); {
		inst, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return insts, fmt.Errorf("decode error at %v: %w", addr+Address(i), err)
		}
		insts = append(insts, DecodedInst{
			Inst:  inst,
			Addr:  addr + Address(i),
			Bytes: code[i : i+inst.Len],
		})
		i += inst.Len
	}
	return insts, nil
}

// Disassemble returns a listing of size bytes at addr.
func Disassemble(mem Memory, addr Address, size int) (string, error) {
	var buf bytes.Buffer

	insts, err := Decode(mem, addr, size)
	for _, inst := range insts {
		fmt.Fprintf(&buf, "0x%08x\t%-24s\t%s\n", uint64(inst.Addr), hex.EncodeToString(inst.Bytes), inst.Inst.String())
	}
	return buf.String(), err
}

// FollowBranch decodes the relative branch at addr and returns its opcode
// and destination.
func FollowBranch(mem Memory, addr Address) (Opcode, Address, error) {
	insts, err := Decode(mem, addr, BranchSize)
	if err != nil {
		return 0, 0, err
	}

	inst := insts[0]
	target, ok := inst.Target()
	if !ok || inst.Len != BranchSize {
		return 0, 0, fmt.Errorf("%w: %v is %s", errNotBranch, addr, inst.Inst.String())
	}
	return Opcode(inst.Bytes[0]), target, nil
}

var errNotBranch = errors.New("not a relative branch")
