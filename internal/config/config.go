package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env              string  `mapstructure:"env"`            // current application environment (local, dev, prod etc)
	TelegramAPIToken string  `mapstructure:"-"`              // Telegram API token loaded from environment
	BankJSONPath     string  `mapstructure:"bank_json_path"` // path to JSON file with the question bank
	SQLitePath       string  `mapstructure:"sqlite_path"`    // path to the local progress cache
	DB               DB      `mapstructure:"database"`       // database configuration section
	Trainer          Trainer `mapstructure:"trainer"`        // training configuration section
}

// DB contains database-related configuration parameters. The URL is
// optional: without it the bot runs local-only and sync stays offline.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// Trainer contains training-session parameters.
type Trainer struct {
	SessionSize  int           `mapstructure:"session_size"`  // questions per adaptive session
	ExamCount    int           `mapstructure:"exam_count"`    // number of exam sets the bank is split into
	ExamDuration time.Duration `mapstructure:"exam_duration"` // countdown for exam-style rounds
	SyncDebounce time.Duration `mapstructure:"sync_debounce"` // coalescing window for outbound sync writes
	ReminderSpec string        `mapstructure:"reminder_spec"` // cron expression for practice reminders
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("bank_json_path", "assets/questions.json")
	v.SetDefault("sqlite_path", "data/progress.db")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")
	v.SetDefault("trainer.session_size", 30)
	v.SetDefault("trainer.exam_count", 10)
	v.SetDefault("trainer.exam_duration", "30m")
	v.SetDefault("trainer.sync_debounce", "500ms")
	v.SetDefault("trainer.reminder_spec", "0 17 * * *")

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.TelegramAPIToken = v.GetString("telegram_api_token")
	if cfg.TelegramAPIToken == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	// DATABASE_URL is optional: progress lives locally first and cross
	// device sync is best effort.
	cfg.DB.URL = v.GetString("database_url")

	return &cfg, nil
}
