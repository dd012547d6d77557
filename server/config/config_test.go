package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	fn := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fn, []byte(content), 0644))
	return fn
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "firewatch.json", `{
		"listen": ":9000",
		"storage": {"filesystem": {"root": "/var/lib/firewatch"}},
		"classifier": {"url": "http://localhost:8000"},
		"monitor": {"fire": {"confidence": 0.5, "minArea": 100}},
		"telegram": {"cooldownSeconds": 60}
	}`)

	cfg, err := LoadConfig(cfgFile, "")
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Listen)
	require.Equal(t, "/var/lib/firewatch", cfg.Storage.Filesystem.Root)
	require.EqualValues(t, 0.5, cfg.Monitor.Fire.Confidence)
	require.Equal(t, 100, cfg.Monitor.Fire.MinArea)
	// Untouched fields keep their defaults
	require.EqualValues(t, 0.70, cfg.Monitor.Smoke.Confidence)
	require.Equal(t, 4500, cfg.Monitor.Smoke.MinArea)
	require.Equal(t, 4, cfg.Monitor.FireFrames)
	require.Equal(t, 6, cfg.Monitor.SmokeFrames)
	require.Equal(t, 100, cfg.Monitor.HistorySize)

	n := cfg.NotificationSettings()
	require.Equal(t, time.Minute, n.Cooldown)
	require.EqualValues(t, 0.70, n.FireThreshold)
	require.EqualValues(t, 0.60, n.SmokeThreshold)
	require.Equal(t, 10*time.Second, cfg.HttpTimeout())
	require.Equal(t, time.Duration(0), cfg.Retention())
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgFile := writeFile(t, dir, "firewatch.json", `{"storage": {"gcs": {"bucket": "snaps"}}, "telegram": {"chatID": "1"}}`)
	envFile := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=abc:123\nFIREWATCH_CLASSIFIER_URL=http://gpu:8000\n")
	t.Setenv(EnvChatID, " 999 ")
	t.Setenv(EnvBotToken, "")
	os.Unsetenv(EnvBotToken)
	t.Setenv(EnvClassifierURL, "")
	os.Unsetenv(EnvClassifierURL)

	cfg, err := LoadConfig(cfgFile, envFile)
	require.NoError(t, err)
	require.Equal(t, "abc:123", cfg.Telegram.BotToken)
	require.Equal(t, "999", cfg.Telegram.ChatID)
	require.Equal(t, "http://gpu:8000", cfg.Classifier.URL)
	require.Equal(t, "snaps", cfg.Storage.GCS.Bucket)

	_, err = LoadConfig(cfgFile, filepath.Join(dir, "missing.env"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := DefaultConfig()
		c.Classifier.URL = "http://localhost:8000"
		c.Storage.Filesystem = &StorageConfigFS{Root: "/tmp"}
		return c
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Storage.Filesystem = nil
	require.Error(t, c.Validate())

	c = valid()
	c.Classifier.URL = ""
	require.Error(t, c.Validate())

	c = valid()
	c.Monitor.FireFrames = 0
	require.Error(t, c.Validate())

	c = valid()
	c.Monitor.Smoke.Confidence = 1.5
	require.Error(t, c.Validate())

	c = valid()
	c.RetentionDays = -1
	require.Error(t, c.Validate())

	c = valid()
	c.RetentionDays = 7
	require.Equal(t, 7*24*time.Hour, c.Retention())
}

func TestLoadConfigBadJSON(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(writeFile(t, dir, "bad.json", `{"listen": `), "")
	require.Error(t, err)
	_, err = LoadConfig(filepath.Join(dir, "nope.json"), "")
	require.Error(t, err)
}
