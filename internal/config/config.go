// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Liveness  LivenessConfig  `mapstructure:"liveness"`
	Games     GamesConfig     `mapstructure:"games"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Warnings  WarningsConfig  `mapstructure:"warnings"`
	Timezone  string          `mapstructure:"timezone"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig selects the storage backend and holds its connection settings.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// ChannelsConfig names the chats that receive member join and leave notices.
// Zero means the chat where the event happened.
type ChannelsConfig struct {
	Welcome int64 `mapstructure:"welcome"`
	Leave   int64 `mapstructure:"leave"`
}

// LivenessConfig configures the keep-alive HTTP endpoint.
type LivenessConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// GamesConfig holds per-kind session timing.
type GamesConfig struct {
	Typing    TypingConfig    `mapstructure:"typing"`
	RPS       RPSConfig       `mapstructure:"rps"`
	Math      MathConfig      `mapstructure:"math"`
	Challenge ChallengeConfig `mapstructure:"challenge"`
}

// TypingConfig holds typing race configuration.
type TypingConfig struct {
	RoundSeconds  int      `mapstructure:"round_seconds"`
	InviteSeconds int      `mapstructure:"invite_seconds"`
	Texts         []string `mapstructure:"texts"`
	PageSize      int      `mapstructure:"page_size"`
}

// RPSConfig holds rock-paper-scissors configuration.
type RPSConfig struct {
	InviteSeconds int `mapstructure:"invite_seconds"`
	MoveSeconds   int `mapstructure:"move_seconds"`
}

// MathConfig holds arithmetic quiz configuration.
type MathConfig struct {
	AnswerSeconds int `mapstructure:"answer_seconds"`
}

// ChallengeConfig holds video challenge configuration.
type ChallengeConfig struct {
	VideoPath               string `mapstructure:"video_path"`
	MaxVideoBytes           int64  `mapstructure:"max_video_bytes"`
	QuestionIntervalSeconds int    `mapstructure:"question_interval_seconds"`
	AnswerWindowSeconds     int    `mapstructure:"answer_window_seconds"`
	CompletionTag           string `mapstructure:"completion_tag"`
}

// EconomyConfig holds coin rewards outside of dungeons.
type EconomyConfig struct {
	AttendanceReward int64 `mapstructure:"attendance_reward"`
	FishMin          int64 `mapstructure:"fish_min"`
	FishMax          int64 `mapstructure:"fish_max"`
}

// WarningsConfig holds moderation thresholds.
type WarningsConfig struct {
	RoleThreshold int    `mapstructure:"role_threshold"`
	KickThreshold int    `mapstructure:"kick_threshold"`
	Role          string `mapstructure:"role"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Seconds converts a config value in seconds to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Location resolves the configured timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory. A .env file in the
// working directory is loaded into the environment first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_DRIVER, GAMES_TYPING_ROUND_SECONDS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Economy.FishMin > c.Economy.FishMax {
		return fmt.Errorf("economy.fish_min must not exceed economy.fish_max")
	}
	if len(c.Games.Typing.Texts) == 0 {
		return fmt.Errorf("games.typing.texts must not be empty")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "Asia/Seoul")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/arcade.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arcade")
	v.SetDefault("database.name", "arcade")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("liveness.enabled", true)
	v.SetDefault("liveness.addr", ":8080")

	v.SetDefault("games.typing.round_seconds", 28)
	v.SetDefault("games.typing.invite_seconds", 60)
	v.SetDefault("games.typing.page_size", 10)
	v.SetDefault("games.typing.texts", DefaultTypingTexts)
	v.SetDefault("games.rps.invite_seconds", 60)
	v.SetDefault("games.rps.move_seconds", 60)
	v.SetDefault("games.math.answer_seconds", 30)
	v.SetDefault("games.challenge.video_path", "challenge_video.mp4")
	v.SetDefault("games.challenge.max_video_bytes", 8*1024*1024)
	v.SetDefault("games.challenge.question_interval_seconds", 180)
	v.SetDefault("games.challenge.answer_window_seconds", 60)
	v.SetDefault("games.challenge.completion_tag", "Challenge Champion")

	v.SetDefault("economy.attendance_reward", 250)
	v.SetDefault("economy.fish_min", 20)
	v.SetDefault("economy.fish_max", 50)

	v.SetDefault("warnings.role_threshold", 3)
	v.SetDefault("warnings.kick_threshold", 5)
	v.SetDefault("warnings.role", "warned")
}

// DefaultTypingTexts are the sentences used when none are configured.
var DefaultTypingTexts = []string{
	"The quick brown fox jumps over the lazy dog.",
	"Practice makes perfect, so keep on typing every day.",
	"A journey of a thousand miles begins with a single step.",
	"Slow and steady typing still beats sloppy fast typing.",
	"Bright stars shine above the quiet sleeping city tonight.",
	"Every great programmer was once a curious beginner.",
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
