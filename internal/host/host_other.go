//go:build !windows

package host

import (
	"fmt"

	"github.com/pboyd/sprintpatch"
)

func (Process) ModuleBase(name string) (sprintpatch.Address, error) {
	return 0, fmt.Errorf("%w: %s: %w", sprintpatch.ErrModuleNotFound, name, ErrUnsupportedPlatform)
}

func (Process) ModuleVersion(name string) (sprintpatch.Version, error) {
	return sprintpatch.Version{}, ErrUnsupportedPlatform
}

func LogDirectory() (string, error) {
	return "", ErrUnsupportedPlatform
}

func Alert(title, text string) error {
	return ErrUnsupportedPlatform
}
