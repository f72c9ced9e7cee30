// Package config loads application settings from config.yaml, .env and
// RELATORIOS_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Session  SessionConfig
	PDF      PDFConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr        string
	MaxUploadMB int64
}

type DatabaseConfig struct {
	Path string
}

type StorageConfig struct {
	UploadDir string
}

type SessionConfig struct {
	Secret string
}

type PDFConfig struct {
	// UTF8Font is a TrueType file used for report text; empty means cp1252 core fonts.
	UTF8Font string
}

type LogConfig struct {
	Level       string
	Format      string
	Development bool
}

const envPrefix = "RELATORIOS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("database.path", "relatorios.db")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("session.secret", "change-me")
	v.SetDefault("pdf.utf8_font", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.development", false)
}

// Load reads configuration. configPath may be empty, in which case
// ./config.yaml is used when present.
func Load(configPath string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			MaxUploadMB: v.GetInt64("server.max_upload_mb"),
		},
		Database: DatabaseConfig{Path: v.GetString("database.path")},
		Storage:  StorageConfig{UploadDir: v.GetString("storage.upload_dir")},
		Session:  SessionConfig{Secret: v.GetString("session.secret")},
		PDF:      PDFConfig{UTF8Font: v.GetString("pdf.utf8_font")},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Format:      v.GetString("log.format"),
			Development: v.GetBool("log.development"),
		},
	}
	if cfg.Server.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("server.max_upload_mb must be positive, got %d", cfg.Server.MaxUploadMB)
	}
	return cfg, nil
}
