//go:build unix

package sprintpatch

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ProtReadExec      Protection = unix.PROT_READ | unix.PROT_EXEC
	ProtReadWrite     Protection = unix.PROT_READ | unix.PROT_WRITE
	ProtReadWriteExec Protection = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

func writable(p Protection) bool {
	return p&unix.PROT_WRITE != 0
}

func (processMemory) Protect(addr Address, size int, prot Protection) (Protection, error) {
	pageSize := unix.Getpagesize()

	// Round address down to page boundary.
	pageStart := uintptr(addr) &^ (uintptr(pageSize) - 1)

	// Round up to cover complete pages.
	regionSize := (int(uintptr(addr)-pageStart) + size + pageSize - 1) &^ (pageSize - 1)

	old, err := currentProtection(Address(pageStart))
	if err != nil {
		return 0, err
	}

	region := unsafe.Slice((*byte)(unsafe.Pointer(pageStart)), regionSize)
	if err := unix.Mprotect(region, int(prot)); err != nil {
		return 0, err
	}
	return old, nil
}
