package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pboyd/sprintpatch"
)

func TestCheckLegacy(t *testing.T) {
	names := []string{"ClassicSprintingStarfield.asi", "ClassicSprintingStarfield.ini"}

	t.Run("clean", func(t *testing.T) {
		assert.NoError(t, CheckLegacy(t.TempDir(), names))
	})

	t.Run("leftover", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ClassicSprintingStarfield.ini")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		err := CheckLegacy(dir, names)
		assert.ErrorIs(t, err, sprintpatch.ErrLegacyInstall)

		var legacy *LegacyError
		require.ErrorAs(t, err, &legacy)
		assert.Equal(t, path, legacy.Path)
		assert.Contains(t, legacy.Message(), path)
	})

	t.Run("no names", func(t *testing.T) {
		assert.NoError(t, CheckLegacy(t.TempDir(), nil))
	})
}

func TestExecutableDir(t *testing.T) {
	dir, err := ExecutableDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
}
