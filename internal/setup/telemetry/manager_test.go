package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/termsgate/internal/setup/config"
	"github.com/robalyx/termsgate/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreatesSessionLogs(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	manager := telemetry.NewManager(logDir, &config.Debug{LogLevel: "info", MaxLogsToKeep: 5, MaxLogLines: 100})

	mainLogger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)
	assert.NotEmpty(t, manager.GetInstanceID())

	mainLogger.Info("bot started")
	dbLogger.Debug("hidden below level")
	require.NoError(t, mainLogger.Sync())
	require.NoError(t, dbLogger.Sync())

	sessionDir := manager.GetCurrentSessionDir()
	assert.Equal(t, logDir, filepath.Dir(sessionDir))

	content, err := os.ReadFile(filepath.Join(sessionDir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "bot started")
	assert.Contains(t, string(content), manager.GetInstanceID())

	content, err = os.ReadFile(filepath.Join(sessionDir, "database.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "hidden below level")
}

func TestManagerRotatesOldSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	for _, name := range []string{"2020-01-01_00-00-00", "2020-01-02_00-00-00", "2020-01-03_00-00-00"} {
		require.NoError(t, os.MkdirAll(filepath.Join(logDir, name), 0o755))
	}

	manager := telemetry.NewManager(logDir, &config.Debug{LogLevel: "info", MaxLogsToKeep: 2, MaxLogLines: 100})

	_, _, err := manager.GetLoggers()
	require.NoError(t, err)

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2020-01-03_00-00-00", entries[0].Name())
	assert.Equal(t, filepath.Base(manager.GetCurrentSessionDir()), entries[1].Name())
}

func TestManagerInvalidLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(t.TempDir(), &config.Debug{LogLevel: "loud", MaxLogsToKeep: 1})

	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}
