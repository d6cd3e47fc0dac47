package sprintpatch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pboyd/sprintpatch/internal/logging"
)

// Host answers questions about the process being patched.
type Host interface {
	// ModuleVersion returns the file version of the named module.
	ModuleVersion(name string) (Version, error)

	// ModuleBase returns the load address of the named module, or an
	// error wrapping ErrModuleNotFound.
	ModuleBase(name string) (Address, error)
}

// CallbackFunc turns a handler into a native function the injected code can
// call. The returned address must stay valid for the life of the process.
type CallbackFunc func(*SprintHandler) (Address, error)

// AttachOptions configures Attach.
type AttachOptions struct {
	// Module is the host executable's module name.
	Module string

	// Layouts to choose from. DefaultLayouts is used when empty.
	Layouts Layouts

	Host     Host
	Memory   Memory
	Callback CallbackFunc

	// NewPool, when set, selects the trampoline pool strategy. It is
	// called with the hook site so the pool can be placed near it.
	// Without it the layout's code cave is used.
	NewPool func(near Address) (Pool, error)

	Log *slog.Logger
}

// Attachment is the result of a successful Attach.
type Attachment struct {
	Layout    HostLayout
	Base      Address
	Site      HookSite
	Handler   *SprintHandler
	Installer *Installer
}

// Attach checks the host version, finds the host module and installs the
// sprint hook. Every failure leaves the host untouched and is logged at
// critical level.
func Attach(opts AttachOptions) (*Attachment, error) {
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}

	a, err := attach(opts, log)
	if err != nil {
		// The installer logs its own failures.
		var ie *installError
		if !errors.As(err, &ie) {
			logging.Critical(log, criticalMessage(err), "error", err)
		}
		return nil, err
	}
	return a, nil
}

type installError struct{ error }

func (e *installError) Unwrap() error { return e.error }

func criticalMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedVersion):
		return "Unsupported runtime version!"
	case errors.Is(err, ErrModuleNotFound):
		return "Target module not found!"
	case errors.Is(err, ErrPoolExhausted):
		return "Unable to allocate trampoline memory!"
	}
	return "Unable to attach!"
}

func attach(opts AttachOptions, log *slog.Logger) (*Attachment, error) {
	layouts := opts.Layouts
	if len(layouts) == 0 {
		layouts = DefaultLayouts()
	}

	version, err := opts.Host.ModuleVersion(opts.Module)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to get version info: %w", ErrUnsupportedVersion, err)
	}
	layout, err := layouts.Lookup(opts.Module, version)
	if err != nil {
		return nil, err
	}
	log.Info("Found supported runtime", "module", opts.Module, "version", version)

	base, err := opts.Host.ModuleBase(opts.Module)
	if err != nil {
		return nil, err
	}

	handler := &SprintHandler{
		Memory:     opts.Memory,
		PlayerSlot: layout.PlayerSlot(base),
		Log:        log,
	}
	callback, err := opts.Callback(handler)
	if err != nil {
		return nil, fmt.Errorf("create callback: %w", err)
	}

	site := HookSite{
		Hook:     layout.HookSite(base),
		Callback: callback,
	}

	var target BranchTarget
	if opts.NewPool != nil {
		pool, err := opts.NewPool(site.Hook)
		if err != nil {
			return nil, err
		}
		target = PooledTrampoline{Pool: pool}
	} else {
		if layout.CodeCave == 0 {
			return nil, fmt.Errorf("layout %s %v has no code cave", layout.Module, layout.Version)
		}
		target = ManualCodeCave{Cave: layout.Cave(base)}
	}

	in := &Installer{
		Patcher:   NewPatcher(opts.Memory),
		Target:    target,
		HookBytes: layout.HookBytes,
		Log:       log,
	}
	if err := in.Install(site); err != nil {
		return nil, &installError{err}
	}

	return &Attachment{
		Layout:    layout,
		Base:      base,
		Site:      site,
		Handler:   handler,
		Installer: in,
	}, nil
}
