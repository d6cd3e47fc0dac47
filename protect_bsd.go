//go:build unix && !linux

package sprintpatch

// Other Unix systems have no cheap way to ask for the protection of a page.
// Code pages are mapped read+execute, so that is what gets restored.
func currentProtection(Address) (Protection, error) {
	return ProtReadExec, nil
}
