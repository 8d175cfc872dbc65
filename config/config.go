package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/icodeforyou/doctypes-dashboard/logging"
	"github.com/spf13/viper"
)

const (
	DefaultUpstreamURL     = "http://localhost:8000/get_doc_types/"
	DefaultMqttTopic       = "doctypes/distribution"
	DefaultMaintenanceCron = "30 2 * * *"
)

type AppConfigApi struct {
	Address string
	Port    int16
	// If not assigned, the server will serve embedded files.
	// If assigned, the server will serve files from the directory,
	// that must contain a "static" and "templates" directory.
	// This is useful for development.
	WwwDir *string `mapstructure:"www_dir"`
}

func (a AppConfigApi) GetPort() int16 {
	if a.Port == 0 {
		return 8080
	}
	return a.Port
}

type AppConfigUpstream struct {
	// Where the document type distribution is fetched from
	URL *string `mapstructure:"url"`
	// Zero means no timeout at all
	Timeout time.Duration `mapstructure:"timeout"`
}

func (u AppConfigUpstream) GetURL() string {
	if u.URL == nil || *u.URL == "" {
		return DefaultUpstreamURL
	}
	return *u.URL
}

type AppConfigDatabase struct {
	Path string
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
	// Defaults to a "backups" directory next to the database file
	BackupDir string `mapstructure:"backup_dir"`
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 90
	}
	return *d.BackupRetentionDays
}

type AppConfigMqtt struct {
	Host     string // Publishing is disabled when empty
	Port     int16
	Username string
	Password string
	Topic    *string `mapstructure:"topic"`
}

func (m AppConfigMqtt) Enabled() bool {
	return m.Host != ""
}

func (m AppConfigMqtt) GetPort() int16 {
	if m.Port == 0 {
		return 1883
	}
	return m.Port
}

func (m AppConfigMqtt) GetTopic() string {
	if m.Topic == nil || *m.Topic == "" {
		return DefaultMqttTopic
	}
	return *m.Topic
}

type AppConfigMaintenance struct {
	RunAt *string `mapstructure:"run_at"`
}

func (m AppConfigMaintenance) GetRunAt() string {
	if m.RunAt == nil || *m.RunAt == "" {
		return DefaultMaintenanceCron
	}
	return *m.RunAt
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for database console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return logging.LogAttrFormatJSON
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api         AppConfigApi
	Upstream    AppConfigUpstream    `mapstructure:"upstream"`
	Database    AppConfigDatabase    `mapstructure:"database"`
	Mqtt        AppConfigMqtt        `mapstructure:"mqtt"`
	Maintenance AppConfigMaintenance `mapstructure:"maintenance"`
	Logging     AppConfigLogging     `mapstructure:"logging"`
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	return &c, nil
}
