package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/arcade.db", cfg.Database.Path)
	assert.Equal(t, 28, cfg.Games.Typing.RoundSeconds)
	assert.Equal(t, 60, cfg.Games.RPS.InviteSeconds)
	assert.Equal(t, 30, cfg.Games.Math.AnswerSeconds)
	assert.Equal(t, 180, cfg.Games.Challenge.QuestionIntervalSeconds)
	assert.Equal(t, int64(8*1024*1024), cfg.Games.Challenge.MaxVideoBytes)
	assert.Equal(t, int64(250), cfg.Economy.AttendanceReward)
	assert.Equal(t, 3, cfg.Warnings.RoleThreshold)
	assert.Equal(t, 5, cfg.Warnings.KickThreshold)
	assert.Len(t, cfg.Games.Typing.Texts, len(DefaultTypingTexts))
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("GAMES_TYPING_ROUND_SECONDS", "12")
	t.Setenv("BOT_TOKEN", "token-from-env")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 12, cfg.Games.Typing.RoundSeconds)
	assert.Equal(t, "token-from-env", cfg.Bot.Token)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
bot:
  token: "file-token"
admin:
  ids: [1, 2]
games:
  math:
    answer_seconds: 45
  typing:
    texts: ["only sentence"]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Bot.Token)
	assert.Equal(t, 45, cfg.Games.Math.AnswerSeconds)
	assert.Equal(t, []string{"only sentence"}, cfg.Games.Typing.Texts)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "mysql"},
		Games:    GamesConfig{Typing: TypingConfig{Texts: DefaultTypingTexts}},
	}
	assert.Error(t, cfg.Validate())

	cfg.Database = DatabaseConfig{Driver: DriverSQLite}
	assert.Error(t, cfg.Validate(), "sqlite requires a path")

	cfg.Database.Path = "x.db"
	assert.NoError(t, cfg.Validate())

	cfg.Economy = EconomyConfig{FishMin: 10, FishMax: 5}
	assert.Error(t, cfg.Validate())
}

func TestIsChatAllowed(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(-100), "empty whitelist allows everything")

	cfg.Whitelist.Chats = []int64{-100}
	assert.True(t, cfg.IsChatAllowed(-100))
	assert.False(t, cfg.IsChatAllowed(-200))
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "UTC"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())
}
