package sprintpatch

import "errors"

var (
	// ErrOutOfRange means a branch target is not reachable with a 32-bit
	// displacement.
	ErrOutOfRange = errors.New("branch target out of range")
	// ErrProtect means the protection of a memory range could not be changed.
	ErrProtect = errors.New("unable to change memory protection")
	// ErrFault means memory was accessed outside a mapped range or without
	// the required permission.
	ErrFault = errors.New("memory fault")
	// ErrPoolExhausted means executable memory for a trampoline could not
	// be obtained.
	ErrPoolExhausted = errors.New("executable pool exhausted")
	// ErrUnsupportedVersion means the host binary is not a supported build.
	ErrUnsupportedVersion = errors.New("unsupported runtime version")
	// ErrModuleNotFound means the host module is not loaded.
	ErrModuleNotFound = errors.New("target module not found")
	// ErrAlreadyInstalled means Install was called on an installed hook.
	ErrAlreadyInstalled = errors.New("already installed")
	// ErrUnexpectedCode means the hook site does not hold the expected
	// instructions.
	ErrUnexpectedCode = errors.New("unexpected code at hook site")
	// ErrCaveInUse means the code cave holds something other than padding.
	ErrCaveInUse = errors.New("code cave is in use")
	// ErrLegacyInstall means files from an older distribution of the mod
	// are still installed.
	ErrLegacyInstall = errors.New("legacy install detected")
)
