//go:build !windows

package host

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pboyd/sprintpatch"
)

func TestProcess_Unsupported(t *testing.T) {
	_, err := Process{}.ModuleBase("Starfield.exe")
	assert.ErrorIs(t, err, sprintpatch.ErrModuleNotFound)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = Process{}.ModuleVersion("Starfield.exe")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}
