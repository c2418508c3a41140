package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrTokenMissing          = errors.New("bot token is not configured (set bot.token or BOT_TOKEN)")
	ErrUnknownPlatform       = errors.New("unknown bot platform")
	ErrUnknownStoreBackend   = errors.New("unknown store backend")
	ErrInvalidChannelLink    = errors.New("invalid channel link")
	ErrDiscordTargetMissing  = errors.New("discord guild_id and member_role_id are required")
	ErrInvalidWorkerCount    = errors.New("bot.workers must be positive")
)

// CurrentVersion is the expected version of bot.toml.
const CurrentVersion = 1

// ConfigFileName is the file searched for in every config path.
const ConfigFileName = "bot.toml"

// EnvPrefix marks environment variables mapped onto config keys.
// TERMSGATE_BOT__TOKEN maps to bot.token.
const EnvPrefix = "TERMSGATE_"

// Supported platforms.
const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
)

// Supported consent store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Environment names accepted for compatibility with older deployments.
var legacyEnv = map[string]string{ //nolint:gochecknoglobals // -
	"BOT_TOKEN":    "bot.token",
	"CHANNEL_LINK": "bot.channel_link",
	"ADMIN_ID":     "bot.operator_id",
}

// Config represents the entire application configuration.
type Config struct {
	Version    int        `koanf:"version"`
	Bot        Bot        `koanf:"bot"`
	Telegram   Telegram   `koanf:"telegram"`
	Discord    Discord    `koanf:"discord"`
	Terms      Terms      `koanf:"terms"`
	Logs       Logs       `koanf:"logs"`
	Store      Store      `koanf:"store"`
	Redis      Redis      `koanf:"redis"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Debug      Debug      `koanf:"debug"`
	Telemetry  Telemetry  `koanf:"telemetry"`
}

// Bot contains settings shared by every platform.
type Bot struct {
	Platform       string `koanf:"platform"`        // telegram or discord
	Token          string `koanf:"token"`           // Bot authentication token
	ChannelLink    string `koanf:"channel_link"`    // Invite link shown after acceptance
	OperatorID     int64  `koanf:"operator_id"`     // Chat receiving proof documents and notices
	Workers        int    `koanf:"workers"`         // Maximum concurrently handled events
	StartupRetries uint64 `koanf:"startup_retries"` // Connection attempts before giving up
}

// Telegram contains Telegram specific configuration.
type Telegram struct {
	PollTimeout int  `koanf:"poll_timeout"` // Long polling timeout in seconds
	Debug       bool `koanf:"debug"`        // Log raw API traffic
}

// Discord contains Discord specific configuration.
type Discord struct {
	GuildID      uint64 `koanf:"guild_id"`       // Guild whose joins are adjudicated
	MemberRoleID uint64 `koanf:"member_role_id"` // Role granting access to the channel
}

// Terms contains the text shown to users and printed on proof documents.
type Terms struct {
	Version string   `koanf:"version"` // Version recorded with each decision
	Brand   string   `koanf:"brand"`   // Name printed in the document banner
	Title   string   `koanf:"title"`   // Heading of the terms prompt
	Prompt  string   `koanf:"prompt"`  // Body of the terms prompt
	Lines   []string `koanf:"lines"`   // Terms lines reproduced in the proof document
}

// Logs contains decision log locations.
type Logs struct {
	Dir        string `koanf:"dir"`         // Directory holding the decision logs
	AcceptFile string `koanf:"accept_file"` // File receiving accepted entries
	RejectFile string `koanf:"reject_file"` // File receiving rejected entries
}

// Store selects the consent store backend.
type Store struct {
	Backend string `koanf:"backend"` // memory or redis
	Timeout int    `koanf:"timeout"` // Seconds allowed for each Redis store call
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `koanf:"host"`     // Redis hostname
	Port     int    `koanf:"port"`     // Redis port
	Username string `koanf:"username"` // Redis username
	Password string `koanf:"password"` // Redis password
	// DisableCache turns off client-side caching for servers without
	// CLIENT TRACKING support.
	DisableCache bool `koanf:"disable_cache"`
}

// PostgreSQL contains configuration for the decision log mirror.
type PostgreSQL struct {
	Enabled      bool   `koanf:"enabled"`        // Mirror decisions into the database
	Host         string `koanf:"host"`           // Database hostname
	Port         int    `koanf:"port"`           // Database port
	User         string `koanf:"user"`           // Database username
	Password     string `koanf:"password"`       // Database password
	DBName       string `koanf:"db_name"`        // Database name
	MaxOpenConns int    `koanf:"max_open_conns"` // Maximum open connections
	AutoMigrate  bool   `koanf:"auto_migrate"`   // Apply pending migrations on start-up
}

// Debug contains debug-related configuration.
type Debug struct {
	LogLevel      string `koanf:"log_level"`        // Log level (debug, info, warn, error)
	MaxLogsToKeep int    `koanf:"max_logs_to_keep"` // Maximum log sessions to keep
	MaxLogLines   int    `koanf:"max_log_lines"`    // Maximum lines per log file
}

// Telemetry contains tracing configuration.
type Telemetry struct {
	UptraceDSN  string `koanf:"uptrace_dsn"`  // Uptrace DSN, tracing is disabled when empty
	ServiceName string `koanf:"service_name"` // Service name reported with spans
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Dir restricts the config file search to a single directory.
	Dir string
	// EnvFile is the dotenv file loaded into the environment. Defaults to .env.
	EnvFile string
}

// LoadConfig loads bot.toml (when present), the dotenv file and the environment,
// in that order of precedence from lowest to highest.
// Returns the config along with the directory the file was found in.
func LoadConfig(opts LoadOptions) (*Config, string, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	k := koanf.New(".")

	// Find the config file
	usedConfigPath := ""

	for _, path := range searchPaths(opts.Dir) {
		configPath := filepath.Join(path, ConfigFileName)
		if _, err := os.Stat(configPath); err != nil {
			continue
		}

		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", configPath, err)
		}

		usedConfigPath = path

		break
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if usedConfigPath != "" {
		if err := checkConfigVersion(cfg.Version, CurrentVersion); err != nil {
			return nil, "", err
		}
	} else {
		cfg.Version = CurrentVersion
	}

	cfg.applyDefaults()

	return &cfg, usedConfigPath, nil
}

// Validate checks the settings needed before the bot can serve.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return ErrTokenMissing
	}

	switch c.Bot.Platform {
	case PlatformTelegram:
	case PlatformDiscord:
		if c.Discord.GuildID == 0 || c.Discord.MemberRoleID == 0 {
			return ErrDiscordTargetMissing
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, c.Bot.Platform)
	}

	switch c.Store.Backend {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreBackend, c.Store.Backend)
	}

	if c.Bot.Workers <= 0 {
		return ErrInvalidWorkerCount
	}

	if c.Bot.ChannelLink != "" {
		u, err := url.Parse(c.Bot.ChannelLink)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidChannelLink, err)
		}

		switch u.Scheme {
		case "https", "http", "tg":
		default:
			return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidChannelLink, u.Scheme)
		}
	}

	return nil
}

// applyDefaults fills every unset value.
func (c *Config) applyDefaults() {
	c.Bot.Platform = strings.ToLower(strings.TrimSpace(c.Bot.Platform))
	if c.Bot.Platform == "" {
		c.Bot.Platform = PlatformTelegram
	}

	if c.Bot.Workers == 0 {
		c.Bot.Workers = 16
	}

	if c.Bot.StartupRetries == 0 {
		c.Bot.StartupRetries = 5
	}

	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60
	}

	if c.Terms.Version == "" {
		c.Terms.Version = "1.0"
	}

	if c.Terms.Brand == "" {
		c.Terms.Brand = "SecureX_Tools"
	}

	if c.Terms.Title == "" {
		c.Terms.Title = "Terms & Conditions"
	}

	if c.Terms.Prompt == "" {
		c.Terms.Prompt = "Accept or reject to continue."
	}

	if len(c.Terms.Lines) == 0 {
		c.Terms.Lines = []string{
			"By continuing, you confirm that:",
			"- All content is for educational purposes.",
			"- You accept full responsibility for its use.",
		}
	}

	if c.Logs.Dir == "" {
		c.Logs.Dir = "Logs"
	}

	if c.Logs.AcceptFile == "" {
		c.Logs.AcceptFile = "AGREE.txt"
	}

	if c.Logs.RejectFile == "" {
		c.Logs.RejectFile = "REJECTED.txt"
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = StoreMemory
	}

	if c.Store.Timeout <= 0 {
		c.Store.Timeout = 5
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}

	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}

	if c.PostgreSQL.Host == "" {
		c.PostgreSQL.Host = "localhost"
	}

	if c.PostgreSQL.Port == 0 {
		c.PostgreSQL.Port = 5432
	}

	if c.PostgreSQL.MaxOpenConns == 0 {
		c.PostgreSQL.MaxOpenConns = 4
	}

	if c.Debug.LogLevel == "" {
		c.Debug.LogLevel = "info"
	}

	if c.Debug.MaxLogsToKeep == 0 {
		c.Debug.MaxLogsToKeep = 10
	}

	if c.Debug.MaxLogLines == 0 {
		c.Debug.MaxLogLines = 10000
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "termsgate"
	}
}

// searchPaths lists the directories checked for bot.toml.
func searchPaths(dir string) []string {
	if dir != "" {
		return []string{dir}
	}

	paths := []string{".termsgate"}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".termsgate", "config"))
	}

	return append(paths, "/etc/termsgate/config", "/app/config", "config", ".")
}

// envKey maps an environment variable name onto a config key.
// Unknown variables map to an empty key and are skipped.
func envKey(name string) string {
	if key, ok := legacyEnv[name]; ok {
		return key
	}

	rest, ok := strings.CutPrefix(name, EnvPrefix)
	if !ok || rest == "" {
		return ""
	}

	return strings.ReplaceAll(strings.ToLower(rest), "__", ".")
}

// envValue skips blank variables so they never mask file settings.
func envValue(name, value string) (string, any) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}

	return envKey(name), value
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s", ErrConfigVersionMissing, ConfigFileName)
	}

	if current != expected {
		return fmt.Errorf("%w: %s (got: %d, expected: %d)",
			ErrConfigVersionMismatch, ConfigFileName, current, expected)
	}

	return nil
}
