//go:build windows

// Command classicsprint is the plugin DLL. Build it with
//
//	go build -buildmode=c-shared -o ClassicSprintingStarfield.dll ./cmd/classicsprint
//
// The ASI loader calls the exported InitializeASI after loading the DLL. The
// hook is installed before that call returns. If anything goes wrong the game
// runs with its original sprint behavior.
package main

import "C"

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/pboyd/sprintpatch"
	"github.com/pboyd/sprintpatch/internal/host"
	"github.com/pboyd/sprintpatch/internal/logging"
)

const (
	pluginName = "Classic Sprinting Starfield"
	moduleName = "Starfield.exe"
	logName    = "ClassicSprintingStarfield.log"

	poolSize = 4096
)

// Set with -ldflags "-X main.version=... -X main.buildTime=... -X main.strategy=pool".
var (
	version   = "dev"
	buildTime = "unknown"
	strategy  = "cave"
)

var (
	initOnce sync.Once

	// attachment keeps the handler reachable for as long as the game can
	// call it.
	attachment *sprintpatch.Attachment
)

// InitializeASI installs the hook. The Go runtime initializes on its own
// thread after DllMain returns; calls into an exported function wait for
// it, so the install is finished before the loader moves on.
//
//export InitializeASI
func InitializeASI() {
	initOnce.Do(func() {
		load(openLog())
	})
}

func load(log *slog.Logger) {
	log.Info(pluginName, "version", version, "built", buildTime)

	a, err := attach(log)
	if err != nil {
		log.Info("Sprint handler left unmodified")
		return
	}
	attachment = a
}

func openLog() *slog.Logger {
	dir, err := host.LogDirectory()
	if err != nil {
		return logging.Discard()
	}
	// The file stays open for the life of the process.
	log, _, err := logging.Open(filepath.Join(dir, logName), slog.LevelDebug)
	if err != nil {
		return logging.Discard()
	}
	return log
}

func attach(log *slog.Logger) (*sprintpatch.Attachment, error) {
	opts := sprintpatch.AttachOptions{
		Module:   moduleName,
		Host:     host.Process{},
		Memory:   sprintpatch.Self(),
		Callback: newCallback,
		Log:      log,
	}

	if strategy == "pool" {
		opts.NewPool = func(near sprintpatch.Address) (sprintpatch.Pool, error) {
			pool, err := sprintpatch.NewExecPool(near, poolSize)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	} else if err := checkLegacy(log); err != nil {
		return nil, err
	}

	return sprintpatch.Attach(opts)
}

func checkLegacy(log *slog.Logger) error {
	dir, err := host.ExecutableDir()
	if err != nil {
		logging.Critical(log, "Unable to locate game directory!", "error", err)
		return err
	}

	var names []string
	for _, l := range sprintpatch.DefaultLayouts() {
		names = append(names, l.LegacyArtifacts...)
	}

	err = host.CheckLegacy(dir, names)
	var le *host.LegacyError
	if errors.As(err, &le) {
		logging.Critical(log, "Legacy install found!", "path", le.Path)
		host.Alert(pluginName, le.Message())
		return err
	}
	if err != nil {
		logging.Critical(log, "Unable to check for legacy install!", "error", err)
	}
	return err
}

// newCallback wraps the handler in a native x64 function taking the button
// event pointer in RCX and returning the result in AL.
func newCallback(h *sprintpatch.SprintHandler) (sprintpatch.Address, error) {
	fn := windows.NewCallback(func(event uintptr) uintptr {
		if h.IsDown(sprintpatch.Address(event)) {
			return 1
		}
		return 0
	})
	return sprintpatch.Address(fn), nil
}

func main() {}
