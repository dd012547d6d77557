package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/firewatch/server/monitor"
	"github.com/cyclopcam/firewatch/server/notifications"
	"github.com/joho/godotenv"
)

// Environment variables that override the config file.
// These are secrets, so they usually live in a .env file next to the config.
const (
	EnvBotToken      = "TELEGRAM_BOT_TOKEN"
	EnvChatID        = "TELEGRAM_CHAT_ID"
	EnvClassifierURL = "FIREWATCH_CLASSIFIER_URL"
)

const DefaultTelegramAPI = "https://api.telegram.org"

type Config struct {
	Listen        string           `json:"listen"`        // eg ":8080"
	DB            dbh.DBConfig     `json:"db"`            // Subject database. If Driver is empty, we use sqlite at DBFilename.
	DBFilename    string           `json:"dbFilename"`    // Path to sqlite database, if DB is not configured
	Storage       StorageConfig    `json:"storage"`       // Where alert snapshots go
	RetentionDays int              `json:"retentionDays"` // Snapshots older than this are deleted. Zero keeps them forever.
	Classifier    ClassifierConfig `json:"classifier"`
	Monitor       monitor.Settings `json:"monitor"`
	Telegram      TelegramConfig   `json:"telegram"`
	RateLimit     int              `json:"rateLimit"` // Max frames per second, per client IP, on /api/detect
}

// One of the storage options must be configured (i.e. either 'filesystem' or 'gcs')
type StorageConfig struct {
	Filesystem *StorageConfigFS  `json:"filesystem"`
	GCS        *StorageConfigGCS `json:"gcs"`
}

type StorageConfigFS struct {
	Root string `json:"root"` // Path to the root of the filesystem
}

type StorageConfigGCS struct {
	Bucket string `json:"bucket"` // Name of the GCS bucket
	Public bool   `json:"public"` // Whether the bucket is public, so that snapshot URLs can point directly into GCS
}

type ClassifierConfig struct {
	URL             string `json:"url"`             // Base URL of the inference service, eg http://localhost:8000
	ModelConfigFile string `json:"modelConfigFile"` // Optional JSON description of the model
}

type TelegramConfig struct {
	APIUrl             string  `json:"apiUrl"`             // Defaults to DefaultTelegramAPI
	BotToken           string  `json:"botToken"`           // Usually supplied by TELEGRAM_BOT_TOKEN
	ChatID             string  `json:"chatID"`             // Fallback recipient. Usually supplied by TELEGRAM_CHAT_ID
	FireThreshold      float32 `json:"fireThreshold"`      // Minimum confirmed fire confidence to alert on
	SmokeThreshold     float32 `json:"smokeThreshold"`     // Minimum confirmed smoke confidence to alert on
	CooldownSeconds    int     `json:"cooldownSeconds"`    // Minimum time between alerts
	HttpTimeoutSeconds int     `json:"httpTimeoutSeconds"` // Timeout of each request to the chat service
}

func DefaultConfig() *Config {
	n := notifications.DefaultSettings()
	return &Config{
		Listen:     ":8080",
		DBFilename: "firewatch.sqlite",
		Monitor:    monitor.DefaultSettings(),
		Telegram: TelegramConfig{
			APIUrl:             DefaultTelegramAPI,
			FireThreshold:      n.FireThreshold,
			SmokeThreshold:     n.SmokeThreshold,
			CooldownSeconds:    int(n.Cooldown / time.Second),
			HttpTimeoutSeconds: int(notifications.DefaultHttpTimeout / time.Second),
		},
		RateLimit: 10,
	}
}

// LoadConfig reads the JSON config file (if filename is not empty), and then the environment.
// envFile is optional. If it is specified, it must exist.
// Fields missing from the JSON file keep their defaults.
func LoadConfig(filename, envFile string) (*Config, error) {
	cfg := DefaultConfig()
	if filename != "" {
		raw, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("Error loading %v: %w", filename, err)
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
		}
	}
	if envFile != "" {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("Error loading %v: %w", envFile, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBotToken)); v != "" {
		c.Telegram.BotToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvChatID)); v != "" {
		c.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvClassifierURL)); v != "" {
		c.Classifier.URL = v
	}
}

func (c *Config) Validate() error {
	m := &c.Monitor
	if m.Fire.Confidence < 0 || m.Fire.Confidence > 1 || m.Smoke.Confidence < 0 || m.Smoke.Confidence > 1 {
		return errors.New("Monitor confidence thresholds must be between 0 and 1")
	}
	if m.Fire.MinArea < 0 || m.Smoke.MinArea < 0 {
		return errors.New("Monitor minArea may not be negative")
	}
	if m.FireFrames < 1 || m.SmokeFrames < 1 {
		return errors.New("Monitor fireFrames and smokeFrames must be at least 1")
	}
	if m.HistorySize < 1 {
		return errors.New("Monitor historySize must be at least 1")
	}
	if m.CLAHETileGrid < 1 || m.CLAHEClipLimit <= 0 {
		return errors.New("Monitor CLAHE settings must be positive")
	}
	if m.SnapshotQuality < 1 || m.SnapshotQuality > 100 {
		return errors.New("Monitor snapshotQuality must be between 1 and 100")
	}
	if c.Telegram.CooldownSeconds < 0 || c.Telegram.HttpTimeoutSeconds < 1 {
		return errors.New("Telegram cooldownSeconds may not be negative, and httpTimeoutSeconds must be at least 1")
	}
	if c.Classifier.URL == "" {
		return fmt.Errorf("Classifier URL must be configured (or set %v)", EnvClassifierURL)
	}
	if c.Storage.Filesystem == nil && c.Storage.GCS == nil {
		return errors.New("One of the storage options must be configured (i.e. either 'filesystem' or 'gcs')")
	}
	if c.RetentionDays < 0 {
		return errors.New("retentionDays may not be negative")
	}
	return nil
}

// NotificationSettings translates the telegram section into gatekeeper settings
func (c *Config) NotificationSettings() notifications.Settings {
	return notifications.Settings{
		FireThreshold:  c.Telegram.FireThreshold,
		SmokeThreshold: c.Telegram.SmokeThreshold,
		Cooldown:       time.Duration(c.Telegram.CooldownSeconds) * time.Second,
		BotToken:       c.Telegram.BotToken,
		ChatID:         c.Telegram.ChatID,
	}
}

func (c *Config) HttpTimeout() time.Duration {
	return time.Duration(c.Telegram.HttpTimeoutSeconds) * time.Second
}

// Retention returns the maximum age of a snapshot, or zero if snapshots are kept forever
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
