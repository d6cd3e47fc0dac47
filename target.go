package sprintpatch

import (
	"bytes"
	"fmt"
)

// Patch is a run of bytes to be written at an address.
type Patch struct {
	Addr Address
	Code []byte
}

// HookSite pairs the instruction to overwrite with the native function the
// redirected code should call.
type HookSite struct {
	// Hook is the first byte of the 5 byte window that is overwritten.
	// Execution resumes at Hook+5.
	Hook Address

	// Callback is the absolute address of the injected function.
	Callback Address
}

// Resume returns the address original execution continues from.
func (s HookSite) Resume() Address {
	return s.Hook + BranchSize
}

// A BranchTarget decides where the hook site branches to and produces any
// bridge code needed to reach the callback from there.
//
// Plan must not write anything. The returned patches are applied in order
// and the hook site branch must be last.
type BranchTarget interface {
	Plan(mem Memory, site HookSite) ([]Patch, error)
}

// ManualCodeCave bridges the hook through unused bytes inside the host
// image. The hook site jumps to the cave, the cave calls the callback
// through RAX and jumps back to the instruction after the hook window.
type ManualCodeCave struct {
	Cave Address
}

func (c ManualCodeCave) Plan(mem Memory, site HookSite) ([]Patch, error) {
	stub, err := Assemble(c.Cave, CaveStub(site.Callback, site.Resume()))
	if err != nil {
		return nil, fmt.Errorf("code cave at %v: %w", c.Cave, err)
	}

	hook, err := EncodeJump(site.Hook, c.Cave)
	if err != nil {
		return nil, fmt.Errorf("hook site at %v: %w", site.Hook, err)
	}

	if err := checkCave(mem, c.Cave, len(stub)); err != nil {
		return nil, err
	}

	return []Patch{
		{Addr: c.Cave, Code: stub},
		{Addr: site.Hook, Code: hook[:]},
	}, nil
}

// checkCave makes sure the cave only holds padding. Compilers fill the gaps
// between functions with INT3 or zeros.
func checkCave(mem Memory, cave Address, size int) error {
	buf := make([]byte, size)
	if err := mem.Read(cave, buf); err != nil {
		return fmt.Errorf("code cave at %v: %w", cave, err)
	}

	fill := buf[0]
	if (fill != opcodeINT3 && fill != 0) || bytes.Count(buf, []byte{fill}) != len(buf) {
		return fmt.Errorf("%w: %v holds % x", ErrCaveInUse, cave, buf)
	}
	return nil
}

// PooledTrampoline calls the callback directly from the hook site when it
// is in range and otherwise through an absolute jump placed in a slot from
// Pool.
type PooledTrampoline struct {
	Pool Pool
}

func (t PooledTrampoline) Plan(mem Memory, site HookSite) ([]Patch, error) {
	if call, err := EncodeCall(site.Hook, site.Callback); err == nil {
		return []Patch{{Addr: site.Hook, Code: call[:]}}, nil
	}

	stub := AbsoluteJumpStub(site.Callback)
	slot, err := t.Pool.Allocate(StubSize(stub))
	if err != nil {
		return nil, fmt.Errorf("trampoline for %v: %w", site.Hook, err)
	}

	code, err := Assemble(slot, stub)
	if err != nil {
		return nil, fmt.Errorf("trampoline at %v: %w", slot, err)
	}

	call, err := EncodeCall(site.Hook, slot)
	if err != nil {
		return nil, fmt.Errorf("hook site at %v: %w", site.Hook, err)
	}

	return []Patch{
		{Addr: slot, Code: code},
		{Addr: site.Hook, Code: call[:]},
	}, nil
}
