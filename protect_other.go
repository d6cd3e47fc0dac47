//go:build !unix && !windows

package sprintpatch

import "errors"

const (
	ProtReadExec      Protection = 0x5
	ProtReadWrite     Protection = 0x3
	ProtReadWriteExec Protection = 0x7
)

func writable(p Protection) bool {
	return p&0x2 != 0
}

// Self returns the memory of the current process. Patching the live process
// is not supported on this platform, so every operation fails.
func Self() Memory {
	return unsupportedMemory{}
}

var errUnsupportedPlatform = errors.New("process memory is not supported on this platform")

type unsupportedMemory struct{}

func (unsupportedMemory) Read(Address, []byte) error  { return errUnsupportedPlatform }
func (unsupportedMemory) Write(Address, []byte) error { return errUnsupportedPlatform }

func (unsupportedMemory) Protect(Address, int, Protection) (Protection, error) {
	return 0, errUnsupportedPlatform
}
