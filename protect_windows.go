//go:build windows

package sprintpatch

import "golang.org/x/sys/windows"

const (
	ProtReadExec      Protection = windows.PAGE_EXECUTE_READ
	ProtReadWrite     Protection = windows.PAGE_READWRITE
	ProtReadWriteExec Protection = windows.PAGE_EXECUTE_READWRITE
)

func writable(p Protection) bool {
	switch p &^ (windows.PAGE_GUARD | windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY,
		windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return true
	}
	return false
}

func (processMemory) Protect(addr Address, size int, prot Protection) (Protection, error) {
	var old uint32
	err := windows.VirtualProtect(uintptr(addr), uintptr(size), uint32(prot), &old)
	if err != nil {
		return 0, err
	}
	return Protection(old), nil
}
