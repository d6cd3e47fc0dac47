package sprintpatch

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/pboyd/sprintpatch/internal/logging"
)

// State is the lifecycle of an Installer.
type State int

const (
	Uninstalled State = iota
	Installed
)

func (s State) String() string {
	switch s {
	case Uninstalled:
		return "uninstalled"
	case Installed:
		return "installed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Installer redirects a hook site once.
//
// Install either succeeds completely or leaves the hook site untouched. There
// is no way back from Installed.
type Installer struct {
	Patcher *Patcher
	Target  BranchTarget

	// HookBytes, if set, are the instructions expected at the hook site.
	// Install refuses to patch anything else.
	HookBytes []byte

	Log *slog.Logger

	state State
}

// State reports whether the hook has been installed.
func (in *Installer) State() State {
	return in.state
}

func (in *Installer) log() *slog.Logger {
	if in.Log == nil {
		return logging.Discard()
	}
	return in.Log
}

// Install plans every patch for site, then writes the bridge code followed
// by the hook branch.
//
// Calling Install a second time is not supported and returns
// ErrAlreadyInstalled without touching memory.
func (in *Installer) Install(site HookSite) error {
	if in.state == Installed {
		return ErrAlreadyInstalled
	}

	err := in.install(site)
	if err != nil {
		logging.Critical(in.log(), "Unable to install hook!", "hook", site.Hook, "error", err)
		return err
	}

	in.state = Installed
	in.log().Info("Hook installed", "hook", site.Hook, "callback", site.Callback)
	return nil
}

func (in *Installer) install(site HookSite) error {
	mem := in.Patcher.Memory()

	if len(in.HookBytes) > 0 {
		if err := in.checkHookSite(mem, site.Hook); err != nil {
			return err
		}
	}

	patches, err := in.Target.Plan(mem, site)
	if err != nil {
		return err
	}

	for _, p := range patches {
		in.log().Debug("Writing patch", "addr", p.Addr, "code", fmt.Sprintf("% x", p.Code))
		if err := in.Patcher.Write(p.Addr, p.Code); err != nil {
			return err
		}
	}
	return nil
}

func (in *Installer) checkHookSite(mem Memory, hook Address) error {
	actual := make([]byte, len(in.HookBytes))
	if err := mem.Read(hook, actual); err != nil {
		return fmt.Errorf("read hook site: %w", err)
	}
	if bytes.Equal(actual, in.HookBytes) {
		return nil
	}

	if listing, err := Disassemble(mem, hook, len(actual)); err == nil {
		in.log().Debug("Hook site listing", "listing", listing)
	}
	return fmt.Errorf("%w: %v holds % x, want % x", ErrUnexpectedCode, hook, actual, in.HookBytes)
}
