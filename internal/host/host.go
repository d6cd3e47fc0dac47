// Package host binds the patcher to the live process: module lookup,
// version info, the log directory and the checks that run before the hook
// is installed.
package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnsupportedPlatform is returned by everything that needs the Windows
// loader.
var ErrUnsupportedPlatform = errors.New("host: only supported on windows")

// Process implements sprintpatch.Host for the current process.
type Process struct{}

// CheckLegacy looks for files left behind by an older distribution of the
// mod in dir. It returns an error wrapping sprintpatch.ErrLegacyInstall that
// names the first one found.
func CheckLegacy(dir string, names []string) error {
	for _, name := range names {
		path := filepath.Join(dir, name)
		_, err := os.Stat(path)
		if err == nil {
			return &LegacyError{Path: path}
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("check %s: %w", path, err)
		}
	}
	return nil
}

// ExecutableDir returns the directory of the host executable.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}
