package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pboyd/sprintpatch"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	layoutsPath = ""
	verbose = false
	inspectVersion = ""
	simulateBase = "0x140000000"
	simulateStrategy = "cave"
	simulateCallback = "0x7ffe12340000"

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestEncode(t *testing.T) {
	out, _, err := execute(t, "encode", "jmp", "0x1000", "0x2000")
	require.NoError(t, err)
	assert.Equal(t, "e9 fb 0f 00 00\n", out)

	out, _, err = execute(t, "encode", "call", "0x141f48b3c", "0x141f48b00")
	require.NoError(t, err)
	assert.Equal(t, "e8 bf ff ff ff\n", out)
}

func TestEncode_Errors(t *testing.T) {
	_, _, err := execute(t, "encode", "call", "0", "0x100000000")
	assert.ErrorIs(t, err, sprintpatch.ErrOutOfRange)

	_, _, err = execute(t, "encode", "jcc", "0", "0x10")
	assert.ErrorContains(t, err, `unknown branch "jcc"`)

	_, _, err = execute(t, "encode", "jmp", "here", "0x10")
	assert.ErrorContains(t, err, `invalid address "here"`)
}

func TestLayouts(t *testing.T) {
	out, _, err := execute(t, "layouts")
	require.NoError(t, err)

	ls, err := sprintpatch.LoadLayouts(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, sprintpatch.DefaultLayouts(), ls)
}

func TestSimulate(t *testing.T) {
	cases := map[string]struct {
		strategy string
		want     []string
	}{
		"cave": {
			strategy: "cave",
			want: []string{
				"JMP 0x141f48b3c -> 0x140f9c22b",
				"bridge:",
				"MOV",
				"0x7ffe12340000",
				"release event: down=false flags 0x04 -> 0x00",
			},
		},
		"pool": {
			strategy: "pool",
			want: []string{
				"CALL 0x141f48b3c -> 0x13fffe000",
				"bridge:",
				"JMP",
				"release event: down=false flags 0x04 -> 0x00",
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out, stderr, err := execute(t, "simulate", "--strategy", tc.strategy)
			require.NoError(t, err)
			for _, want := range tc.want {
				assert.Contains(t, out, want)
			}
			assert.Contains(t, stderr, "Hook installed")
		})
	}
}

func TestSimulate_NearCallback(t *testing.T) {
	out, _, err := execute(t, "simulate", "--strategy", "pool", "--callback", "0x140002000")
	require.NoError(t, err)
	assert.Contains(t, out, "CALL 0x141f48b3c -> 0x140002000")
	assert.NotContains(t, out, "bridge:")
}

func TestSimulate_Errors(t *testing.T) {
	_, _, err := execute(t, "simulate", "--strategy", "teleport")
	assert.ErrorContains(t, err, `unknown strategy "teleport"`)

	_, _, err = execute(t, "simulate", "--base", "0x1000")
	assert.ErrorContains(t, err, "too low")

	// A layout without a code cave can only use the pool.
	dir := t.TempDir()
	path := filepath.Join(dir, "layouts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(noCaveLayout), 0o644))

	_, stderr, err := execute(t, "simulate", "--layouts", path)
	assert.ErrorContains(t, err, "has no code cave")
	assert.Contains(t, stderr, "level=CRITICAL")

	out, _, err := execute(t, "simulate", "--layouts", path, "--strategy", "pool")
	require.NoError(t, err)
	assert.Contains(t, out, "CALL 0x142000010")
}

const noCaveLayout = `layouts:
  - module: Starfield.exe
    version: 1.8.86.0
    process_button: 0x2000000
    hook_delta: 0x10
    player_singleton: 0x5600000
`
