//go:build windows

package host

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/pboyd/sprintpatch"
)

// Don't take a reference on the module; it is the host executable.
const getModuleHandleExFlagUnchangedRefcount = 0x2

func moduleHandle(name string) (windows.Handle, error) {
	name16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}

	var h windows.Handle
	if err := windows.GetModuleHandleEx(getModuleHandleExFlagUnchangedRefcount, name16, &h); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", sprintpatch.ErrModuleNotFound, name, err)
	}
	return h, nil
}

// ModuleBase returns the load address of the named module.
func (Process) ModuleBase(name string) (sprintpatch.Address, error) {
	h, err := moduleHandle(name)
	if err != nil {
		return 0, err
	}
	return sprintpatch.Address(h), nil
}

// ModuleVersion reads the fixed file version from the module's version
// resource.
func (Process) ModuleVersion(name string) (sprintpatch.Version, error) {
	path := name
	if h, err := moduleHandle(name); err == nil {
		var buf [windows.MAX_LONG_PATH]uint16
		n, err := windows.GetModuleFileName(h, &buf[0], uint32(len(buf)))
		if err == nil && n > 0 {
			path = windows.UTF16ToString(buf[:n])
		}
	}

	size, err := windows.GetFileVersionInfoSize(path, nil)
	if err != nil || size == 0 {
		return sprintpatch.Version{}, fmt.Errorf("unable to get version info for %s: %w", path, err)
	}

	info := make([]byte, size)
	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&info[0])); err != nil {
		return sprintpatch.Version{}, fmt.Errorf("unable to retrieve version info for %s: %w", path, err)
	}

	var fixed *windows.VS_FIXEDFILEINFO
	var fixedLen uint32
	if err := windows.VerQueryValue(unsafe.Pointer(&info[0]), `\`, unsafe.Pointer(&fixed), &fixedLen); err != nil {
		return sprintpatch.Version{}, fmt.Errorf("unable to query version info for %s: %w", path, err)
	}
	if fixed == nil || fixedLen < uint32(unsafe.Sizeof(*fixed)) {
		return sprintpatch.Version{}, fmt.Errorf("unable to query version info for %s: short VS_FIXEDFILEINFO", path)
	}

	return sprintpatch.VersionFromFixed(fixed.FileVersionMS, fixed.FileVersionLS), nil
}

// LogDirectory returns Documents\My Games\Starfield\SFSE.
func LogDirectory() (string, error) {
	docs, err := windows.KnownFolderPath(windows.FOLDERID_Documents, windows.KF_FLAG_DEFAULT)
	if err != nil {
		return "", fmt.Errorf("locate documents folder: %w", err)
	}
	return filepath.Join(docs, "My Games", "Starfield", "SFSE"), nil
}

// Alert shows a blocking error message box.
func Alert(title, text string) error {
	title16, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return err
	}
	text16, err := windows.UTF16PtrFromString(text)
	if err != nil {
		return err
	}
	_, err = windows.MessageBox(0, text16, title16, windows.MB_OK|windows.MB_ICONERROR)
	return err
}
