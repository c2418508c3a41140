package setup_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/termsgate/internal/consent"
	"github.com/robalyx/termsgate/internal/setup"
	"github.com/robalyx/termsgate/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeApp(t *testing.T) {
	for _, name := range []string{
		"BOT_TOKEN", "CHANNEL_LINK", "ADMIN_ID",
		"TERMSGATE_BOT__TOKEN", "TERMSGATE_STORE__BACKEND",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}

	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.ConfigFileName), []byte(`
version = 1

[bot]
token = "file-token"

[logs]
dir = "`+filepath.ToSlash(t.TempDir())+`"
`), 0o600))

	logDir := t.TempDir()

	app, err := setup.InitializeApp(t.Context(), logDir, config.LoadOptions{
		Dir:     configDir,
		EnvFile: filepath.Join(t.TempDir(), "missing.env"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Cleanup(t.Context()) })

	assert.Equal(t, configDir, app.ConfigDir)
	assert.Equal(t, logDir, filepath.Dir(app.LogManager.GetCurrentSessionDir()))
	assert.NotEmpty(t, app.LogManager.GetInstanceID())
	assert.IsType(t, &consent.MemoryStore{}, app.Store)
	assert.Nil(t, app.DB)
}

func TestInitializeAppRequiresToken(t *testing.T) {
	for _, name := range []string{"BOT_TOKEN", "TERMSGATE_BOT__TOKEN"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}

	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.ConfigFileName), []byte("version = 1\n"), 0o600))

	_, err := setup.InitializeApp(t.Context(), t.TempDir(), config.LoadOptions{
		Dir:     configDir,
		EnvFile: filepath.Join(t.TempDir(), "missing.env"),
	})
	require.ErrorIs(t, err, config.ErrTokenMissing)
}
