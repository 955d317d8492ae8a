// Package config provides configuration loading, validation, and management
// for the relay console. It handles reading from YAML files, overlaying
// environment variables, setting default values, and validating parameters.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variables before they overlay
// file values, e.g. RELAY_SERVER_ADDR -> server_addr.
const envPrefix = "RELAY_"

// Config defines the application configuration parameters for all components
// of the relay console, including logging, the HTTP server, the Telegram
// relay client, scheduled tasks, and database configuration.
type Config struct {
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogJSON  bool   `koanf:"log_json"`

	DBPath string `koanf:"db_path"`

	ServerAddr        string        `koanf:"server_addr"         validate:"required"`
	ServerCORSOrigins []string      `koanf:"server_cors_origins"`
	ServerTimeout     time.Duration `koanf:"server_timeout"      validate:"min=1s,max=5m"`

	// RelayAPIURL overrides the Telegram Bot API endpoint, mainly for
	// self-hosted API servers and tests. Empty means the public API.
	RelayAPIURL      string        `koanf:"relay_api_url"      validate:"omitempty,url"`
	RelaySendTimeout time.Duration `koanf:"relay_send_timeout" validate:"min=1s,max=5m"`

	SchedStatsRefresh   string `koanf:"sched_stats_refresh"`
	SchedAdminSync      string `koanf:"sched_admin_sync"`
	SchedSQLMaintenance string `koanf:"sched_sql_maintenance"`

	InstallMsgDBError      string `koanf:"install_msg_db_error"`
	InstallMsgConfigError  string `koanf:"install_msg_config_error"`
	InstallMsgStepOrder    string `koanf:"install_msg_step_order"`
	InstallMsgTokenMissing string `koanf:"install_msg_token_missing"`
	InstallMsgComplete     string `koanf:"install_msg_complete"`
}

// Load reads configuration from the given YAML file, overlays RELAY_*
// environment variables, sets default values for optional fields, and
// validates the result. A missing config file is not an error; defaults
// and environment variables still apply.
func Load(path string) (*Config, error) {
	startTime := time.Now()
	slog.Info("loading configuration", "path", path)

	config := &Config{}
	setDefaults(config)

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load configuration file",
				"error", err,
				"path", path)
			return nil, err
		}
		slog.Info("configuration file not found, using defaults", "path", path)
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		slog.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	if err := k.Unmarshal("", config); err != nil {
		slog.Error("failed to parse configuration", "error", err, "path", path)
		return nil, err
	}

	if err := validator.New().Struct(config); err != nil {
		slog.Error("configuration validation failed", "error", err)
		return nil, err
	}

	slog.Info("configuration loaded successfully",
		"log_level", config.LogLevel,
		"db_path", config.DBPath,
		"server_addr", config.ServerAddr,
		"duration_ms", time.Since(startTime).Milliseconds())

	return config, nil
}

func setDefaults(config *Config) {
	config.LogLevel = "info"
	config.LogJSON = false

	config.DBPath = "storage.db"

	config.ServerAddr = ":8080"
	config.ServerCORSOrigins = []string{"*"}
	config.ServerTimeout = 30 * time.Second

	config.RelaySendTimeout = 30 * time.Second

	config.SchedStatsRefresh = "*/5 * * * *"
	config.SchedAdminSync = "0 * * * *"
	config.SchedSQLMaintenance = "0 3 * * *"

	config.InstallMsgDBError = "تعذر تهيئة قاعدة البيانات. حاول مرة أخرى."
	config.InstallMsgConfigError = "تعذر حفظ إعدادات البوت. تحقق من البيانات المدخلة."
	config.InstallMsgStepOrder = "لا يمكن تخطي خطوات التثبيت."
	config.InstallMsgTokenMissing = "رمز البوت مطلوب."
	config.InstallMsgComplete = "اكتمل التثبيت بنجاح."
}
