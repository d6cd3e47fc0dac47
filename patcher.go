package sprintpatch

import (
	"encoding/binary"
	"fmt"
)

// Patcher writes into executable memory.
type Patcher struct {
	mem Memory
}

// NewPatcher returns a Patcher that writes to mem.
func NewPatcher(mem Memory) *Patcher {
	return &Patcher{mem: mem}
}

// Memory returns the memory the Patcher writes to.
func (p *Patcher) Memory() Memory {
	return p.mem
}

// Write copies data to addr. The range is made read+write+execute for the
// duration of the copy and then put back to the protection it had before.
//
// Nothing may execute the range while it is being written.
func (p *Patcher) Write(addr Address, data []byte) (err error) {
	if len(data) == 0 {
		return nil
	}

	old, err := p.mem.Protect(addr, len(data), ProtReadWriteExec)
	if err != nil {
		return fmt.Errorf("%w at %v: %w", ErrProtect, addr, err)
	}
	defer func() {
		_, restoreErr := p.mem.Protect(addr, len(data), old)
		if restoreErr != nil && err == nil {
			err = fmt.Errorf("%w: restoring %#x at %v: %w", ErrProtect, uint32(old), addr, restoreErr)
		}
	}()

	if err := p.mem.Write(addr, data); err != nil {
		return fmt.Errorf("write %d bytes at %v: %w", len(data), addr, err)
	}
	return nil
}

func (p *Patcher) Write8(addr Address, v uint8) error {
	return p.Write(addr, []byte{v})
}

func (p *Patcher) Write16(addr Address, v uint16) error {
	return p.Write(addr, binary.LittleEndian.AppendUint16(nil, v))
}

func (p *Patcher) Write32(addr Address, v uint32) error {
	return p.Write(addr, binary.LittleEndian.AppendUint32(nil, v))
}

func (p *Patcher) Write64(addr Address, v uint64) error {
	return p.Write(addr, binary.LittleEndian.AppendUint64(nil, v))
}

// WriteBranch writes a 5 byte relative branch at src that lands on dst.
// Nothing is written if dst is out of range.
func (p *Patcher) WriteBranch(op Opcode, src, dst Address) error {
	code, err := EncodeBranch(op, src, dst)
	if err != nil {
		return err
	}
	return p.Write(src, code[:])
}

// WriteJump writes JMP rel32 at src.
func (p *Patcher) WriteJump(src, dst Address) error {
	return p.WriteBranch(OpJump, src, dst)
}

// WriteCall writes CALL rel32 at src.
func (p *Patcher) WriteCall(src, dst Address) error {
	return p.WriteBranch(OpCall, src, dst)
}
