package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/termsgate/internal/setup/config"
	"github.com/robalyx/termsgate/internal/setup/telemetry/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SessionLayout names each session directory after its start time.
const SessionLayout = "2006-01-02_15-04-05"

// Manager handles the creation and management of log files and directories.
// Every run writes into its own timestamped session directory.
type Manager struct {
	instanceID        string // Unique identifier for this program instance
	currentSessionDir string // Path to the current session's log directory
	logDir            string // Base directory for all logs
	level             string // Logging level (debug, info, warn, error)
	maxLogsToKeep     int    // Maximum number of log sessions to retain
	maxLogLines       int    // Maximum number of lines to keep in each log file
	now               func() time.Time
}

// NewManager creates a new Manager instance.
func NewManager(logDir string, debugCfg *config.Debug) *Manager {
	return &Manager{
		instanceID:    uuid.New().String(),
		logDir:        logDir,
		level:         debugCfg.LogLevel,
		maxLogsToKeep: debugCfg.MaxLogsToKeep,
		maxLogLines:   debugCfg.MaxLogLines,
		now:           time.Now,
	}
}

// GetLoggers initializes the main and database loggers.
// Returns separate loggers for main application and database logging.
func (lm *Manager) GetLoggers() (*zap.Logger, *zap.Logger, error) {
	if err := lm.setupLogDirectories(); err != nil {
		return nil, nil, err
	}

	mainLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "main.log"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize main logger: %w", err)
	}

	dbLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "database.log"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database logger: %w", err)
	}

	fields := zap.String("instance_id", lm.instanceID)

	return mainLogger.With(fields), dbLogger.With(fields), nil
}

// GetCurrentSessionDir returns the current session directory.
func (lm *Manager) GetCurrentSessionDir() string {
	return lm.currentSessionDir
}

// GetInstanceID returns the unique instance identifier for this program run.
func (lm *Manager) GetInstanceID() string {
	return lm.instanceID
}

// setupLogDirectories ensures the base directory exists, rotates old
// sessions and creates a new session directory.
func (lm *Manager) setupLogDirectories() error {
	if err := os.MkdirAll(lm.logDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Leave room for the session about to be created
	if err := lm.rotateLogSessions(max(lm.maxLogsToKeep-1, 0)); err != nil {
		return fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	lm.currentSessionDir = filepath.Join(lm.logDir, lm.now().Format(SessionLayout))
	if err := os.MkdirAll(lm.currentSessionDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return nil
}

// initLogger creates a zap logger writing to a line-bounded file and
// forwarding errors to OpenTelemetry.
func (lm *Manager) initLogger(path string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(lm.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	fileCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(logger.NewLogRotator(file, lm.maxLogLines, path)),
		zapLevel,
	)

	return zap.New(
		zapcore.NewTee(fileCore, NewCore(zapcore.ErrorLevel)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// rotateLogSessions removes the oldest sessions until at most keep remain.
func (lm *Manager) rotateLogSessions(keep int) error {
	entries, err := os.ReadDir(lm.logDir)
	if err != nil {
		return err
	}

	sessions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			sessions = append(sessions, entry.Name())
		}
	}

	if len(sessions) <= keep {
		return nil
	}

	// Session names sort chronologically
	sort.Strings(sessions)

	for _, name := range sessions[:len(sessions)-keep] {
		if err := os.RemoveAll(filepath.Join(lm.logDir, name)); err != nil {
			return err
		}
	}

	return nil
}
