// Package config binds server settings to command-line flags and
// GEOGUESS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/geoguess/internal/factory"
	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/services/notify"
	redisstorage "github.com/mcoot/geoguess/internal/storage/redis"
)

// EnvPrefix is prepended to every flag name to form its environment variable
const EnvPrefix = "GEOGUESS"

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config holds server settings
type Config struct {
	Bind            string
	Port            int
	OperatorID      int64
	BotToken        string
	Production      bool
	Storage         string
	RedisURL        string
	SessionTTL      time.Duration
	LogLevel        string
	LogFormat       string
	NotifyQueueSize int
}

// Validate checks settings that flags alone cannot constrain
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.OperatorID <= 0 {
		return errors.New("--operator-id is required")
	}
	if c.BotToken == "" {
		return errors.New("--bot-token is required")
	}

	switch c.Storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage %q: must be memory or redis", c.Storage)
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != LogFormatJSON && c.LogFormat != LogFormatText {
		return fmt.Errorf("invalid log format %q: must be json or text", c.LogFormat)
	}
	if c.NotifyQueueSize < 1 {
		return fmt.Errorf("invalid notify queue size: %d", c.NotifyQueueSize)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("invalid session ttl: %s", c.SessionTTL)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// Logger builds the process logger writing to w
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// FactoryConfig translates the settings into application wiring options
func (c *Config) FactoryConfig(logger *slog.Logger) factory.Config {
	cfg := factory.Config{
		BotToken:       c.BotToken,
		OperatorID:     model.ExternalID(c.OperatorID),
		ProductionMode: c.Production,
		Logger:         logger,
		StorageType:    c.Storage,
		NotifyConfig:   notify.Config{QueueSize: c.NotifyQueueSize},
	}

	if c.Storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		redisCfg.SessionTTL = c.SessionTTL
		cfg.RedisConfig = &redisCfg
	}

	return cfg
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewCommand creates the server command. Flags are filled from the
// environment when not given explicitly; run is invoked with the validated
// configuration.
func NewCommand(cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "geoguess-server",
		Short: "Realtime location guessing game server.",
		Args:  cobra.ExactArgs(0),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			applyEnv(v, cmd.Flags())
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg)
		},
	}

	defaults := redisstorage.DefaultConfig()
	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: GEOGUESS_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: GEOGUESS_PORT)")
	fs.Int64Var(&cfg.OperatorID, "operator-id", 0, "external id of the operator (env: GEOGUESS_OPERATOR_ID)")
	fs.StringVar(&cfg.BotToken, "bot-token", "", "bot token assertions are signed with (env: GEOGUESS_BOT_TOKEN)")
	fs.BoolVar(&cfg.Production, "production", true, "refuse test authentication (env: GEOGUESS_PRODUCTION)")
	fs.StringVar(&cfg.Storage, "storage", factory.StorageTypeMemory, "storage backend: memory, redis (env: GEOGUESS_STORAGE)")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "redis connection url (env: GEOGUESS_REDIS_URL)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", defaults.SessionTTL, "lifetime of idle session bindings in redis (env: GEOGUESS_SESSION_TTL)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error (env: GEOGUESS_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", LogFormatJSON, "log format: json, text (env: GEOGUESS_LOG_FORMAT)")
	fs.IntVar(&cfg.NotifyQueueSize, "notify-queue-size", notify.DefaultConfig().QueueSize, "pending notifications kept before dropping (env: GEOGUESS_NOTIFY_QUEUE_SIZE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// applyEnv copies environment values into flags the user did not set
func applyEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
