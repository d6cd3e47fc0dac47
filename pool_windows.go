//go:build windows

package sprintpatch

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// allocationGranularity is the alignment of VirtualAlloc reservations.
const allocationGranularity = 64 * 1024

// maxNearDistance keeps every byte of the pool within rel32 reach of near.
const maxNearDistance = 0x7fff0000

// ExecPool allocates trampolines from executable pages reserved close to a
// hook site.
type ExecPool struct {
	*SpanPool
}

// NewExecPool reserves size bytes of executable memory within 2 GiB of
// near, searching outward from near one allocation unit at a time.
func NewExecPool(near Address, size int) (*ExecPool, error) {
	size = (size + allocationGranularity - 1) &^ (allocationGranularity - 1)

	start := uintptr(near) &^ (allocationGranularity - 1)
	var lowest uintptr
	if start > maxNearDistance {
		lowest = start - maxNearDistance
	}
	highest := start + maxNearDistance - uintptr(size)

	for offset := uintptr(allocationGranularity); offset < maxNearDistance; offset += allocationGranularity {
		if start+offset <= highest {
			if addr, err := windows.VirtualAlloc(start+offset, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READ); err == nil && addr != 0 {
				return newExecPool(Address(addr), size), nil
			}
		}
		if start >= offset && start-offset >= lowest {
			if addr, err := windows.VirtualAlloc(start-offset, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READ); err == nil && addr != 0 {
				return newExecPool(Address(addr), size), nil
			}
		}
	}

	return nil, fmt.Errorf("%w: no free %d byte range within 2 GiB of %v", ErrPoolExhausted, size, near)
}

func newExecPool(base Address, size int) *ExecPool {
	return &ExecPool{SpanPool: NewSpanPool(base, size)}
}
