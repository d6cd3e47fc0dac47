package sprintpatch

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pboyd/sprintpatch/internal/logging"
)

type fakeHost struct {
	version    Version
	versionErr error
	base       Address
	baseErr    error
}

func (h *fakeHost) ModuleVersion(name string) (Version, error) {
	return h.version, h.versionErr
}

func (h *fakeHost) ModuleBase(name string) (Address, error) {
	return h.base, h.baseErr
}

type attachTest struct {
	module *fakeModule
	host   *fakeHost
	logs   bytes.Buffer
	calls  int
}

func newAttachTest() *attachTest {
	return &attachTest{
		module: newFakeModule(testLayout, testBase),
		host:   &fakeHost{version: Version{1, 7, 23, 0}, base: testBase},
	}
}

func (a *attachTest) options() AttachOptions {
	return AttachOptions{
		Module: "Starfield.exe",
		Host:   a.host,
		Memory: a.module,
		Callback: func(*SprintHandler) (Address, error) {
			a.calls++
			return testFarFunc, nil
		},
		Log: logging.New(&a.logs, slog.LevelDebug),
	}
}

func TestAttach(t *testing.T) {
	assert := assert.New(t)
	at := newAttachTest()

	a, err := Attach(at.options())
	require.NoError(t, err)

	assert.Equal(testBase, a.Base)
	assert.Equal(testLayout.HookSite(testBase), a.Site.Hook)
	assert.Equal(testFarFunc, a.Site.Callback)
	assert.Equal(testLayout.PlayerSlot(testBase), a.Handler.PlayerSlot)
	assert.Equal(Installed, a.Installer.State())
	assert.Equal(1, at.calls)

	op, target, err := FollowBranch(at.module, a.Site.Hook)
	require.NoError(t, err)
	assert.Equal(OpJump, op)
	assert.Equal(testLayout.Cave(testBase), target)

	logs := at.logs.String()
	assert.Contains(logs, "Found supported runtime")
	assert.Contains(logs, "Hook installed")
	assert.NotContains(logs, "CRITICAL")
}

func TestAttach_Pool(t *testing.T) {
	at := newAttachTest()
	poolRegion := newCodeRegion(testBase-0x2000, 0x1000)
	at.module.Space = append(at.module.Space, poolRegion)

	opts := at.options()
	var near Address
	opts.NewPool = func(addr Address) (Pool, error) {
		near = addr
		return NewSpanPool(poolRegion.Base(), 0x1000), nil
	}

	a, err := Attach(opts)
	require.NoError(t, err)
	assert.Equal(t, a.Site.Hook, near)

	op, target, err := FollowBranch(at.module, a.Site.Hook)
	require.NoError(t, err)
	assert.Equal(t, OpCall, op)
	assert.Equal(t, poolRegion.Base(), target)
}

func TestAttach_Failures(t *testing.T) {
	cases := map[string]struct {
		setup    func(at *attachTest, opts *AttachOptions)
		wantErr  error
		wantLog  string
		callback bool
	}{
		"unsupported version": {
			setup: func(at *attachTest, _ *AttachOptions) {
				at.host.version = Version{1, 8, 86, 0}
			},
			wantErr: ErrUnsupportedVersion,
			wantLog: "Unsupported runtime version!",
		},
		"no version info": {
			setup: func(at *attachTest, _ *AttachOptions) {
				at.host.versionErr = errors.New("no version resource")
			},
			wantErr: ErrUnsupportedVersion,
			wantLog: "Unsupported runtime version!",
		},
		"module not found": {
			setup: func(at *attachTest, _ *AttachOptions) {
				at.host.baseErr = fmt.Errorf("%w: Starfield.exe", ErrModuleNotFound)
			},
			wantErr: ErrModuleNotFound,
			wantLog: "Target module not found!",
		},
		"no trampoline memory": {
			setup: func(_ *attachTest, opts *AttachOptions) {
				opts.NewPool = func(Address) (Pool, error) {
					return nil, fmt.Errorf("%w: nothing free near the hook", ErrPoolExhausted)
				}
			},
			wantErr:  ErrPoolExhausted,
			wantLog:  "Unable to allocate trampoline memory!",
			callback: true,
		},
		"callback fails": {
			setup: func(_ *attachTest, opts *AttachOptions) {
				opts.Callback = func(*SprintHandler) (Address, error) {
					return 0, errors.New("too many callbacks")
				}
			},
			wantLog: "Unable to attach!",
		},
		"no code cave": {
			setup: func(_ *attachTest, opts *AttachOptions) {
				l := testLayout
				l.CodeCave = 0
				opts.Layouts = Layouts{l}
			},
			wantLog:  "Unable to attach!",
			callback: true,
		},
		"hook site changed": {
			setup: func(_ *attachTest, opts *AttachOptions) {
				l := testLayout
				l.HookBytes = HexBytes{0x48, 0x89, 0x5c, 0x24, 0x08}
				opts.Layouts = Layouts{l}
			},
			wantErr:  ErrUnexpectedCode,
			wantLog:  "Unable to install hook!",
			callback: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			at := newAttachTest()
			opts := at.options()
			tc.setup(at, &opts)

			before := at.module.snapshot()
			a, err := Attach(opts)
			require.Error(t, err)
			assert.Nil(t, a)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			at.module.assertUnchanged(t, before)

			logs := at.logs.String()
			assert.Contains(t, logs, tc.wantLog)
			assert.Equal(t, 1, strings.Count(logs, "level=CRITICAL"), logs)
			if tc.callback {
				assert.Equal(t, 1, at.calls)
			}
		})
	}
}
