package host

import (
	"fmt"

	"github.com/pboyd/sprintpatch"
)

// LegacyError reports a leftover file from an older install.
type LegacyError struct {
	Path string
}

func (e *LegacyError) Error() string {
	return fmt.Sprintf("%v: %s", sprintpatch.ErrLegacyInstall, e.Path)
}

func (e *LegacyError) Unwrap() error {
	return sprintpatch.ErrLegacyInstall
}

// Message is the text shown to the player when a legacy install is found.
func (e *LegacyError) Message() string {
	return fmt.Sprintf("An old version of Classic Sprinting is still installed:\n\n%s\n\nDelete it and restart the game. The mod has not been loaded.", e.Path)
}
