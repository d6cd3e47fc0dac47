//go:build unix || windows

package sprintpatch

import "unsafe"

// Self returns the memory of the current process.
func Self() Memory {
	return processMemory{}
}

type processMemory struct{}

func view(addr Address, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), size)
}

func (processMemory) Read(addr Address, buf []byte) error {
	copy(buf, view(addr, len(buf)))
	return nil
}

func (processMemory) Write(addr Address, buf []byte) error {
	copy(view(addr, len(buf)), buf)
	return nil
}
