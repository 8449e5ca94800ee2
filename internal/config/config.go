package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	JWT      JWTConfig      `yaml:"jwt"`
	Log      LogConfig      `yaml:"log"`
	Streak   StreakConfig   `yaml:"streak"`
	APNs     APNsConfig     `yaml:"apns"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AWSConfig holds the S3-compatible storage used for shared prayers
type AWSConfig struct {
	Region    string        `yaml:"region"`
	S3Bucket  string        `yaml:"s3_bucket"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Endpoint  string        `yaml:"endpoint"`
	ShareTTL  time.Duration `yaml:"share_ttl"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret  string `yaml:"secret"`
	ExpDays int    `yaml:"exp_days"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	// File enables a rotating log file in addition to stderr
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// StreakConfig holds streak computation settings
type StreakConfig struct {
	// Timezone decides which calendar day "today" is when the client sends none
	Timezone string `yaml:"timezone"`
}

// APNsConfig holds streak reminder push settings
type APNsConfig struct {
	Enabled    bool          `yaml:"enabled"`
	KeyFile    string        `yaml:"key_file"`
	KeyID      string        `yaml:"key_id"`
	TeamID     string        `yaml:"team_id"`
	Topic      string        `yaml:"topic"`
	Production bool          `yaml:"production"`
	Interval   time.Duration `yaml:"interval"`
}

// Load reads configuration from a YAML file.
// Values from a .env file or DEO_* environment variables take precedence.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies env overrides and defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrideString(&c.Database.Host, "DEO_DATABASE_HOST")
	overrideInt(&c.Database.Port, "DEO_DATABASE_PORT")
	overrideString(&c.Database.User, "DEO_DATABASE_USER")
	overrideString(&c.Database.Password, "DEO_DATABASE_PASSWORD")
	overrideString(&c.Database.DBName, "DEO_DATABASE_NAME")
	overrideString(&c.JWT.Secret, "DEO_JWT_SECRET")
	overrideString(&c.AWS.AccessKey, "DEO_AWS_ACCESS_KEY")
	overrideString(&c.AWS.SecretKey, "DEO_AWS_SECRET_KEY")
	overrideString(&c.Log.Level, "DEO_LOG_LEVEL")
	overrideInt(&c.Server.Port, "DEO_PORT")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.JWT.ExpDays == 0 {
		c.JWT.ExpDays = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Streak.Timezone == "" {
		c.Streak.Timezone = "UTC"
	}
	if c.AWS.ShareTTL == 0 {
		c.AWS.ShareTTL = 24 * time.Hour
	}
	if c.APNs.Interval == 0 {
		c.APNs.Interval = time.Hour
	}
}

// Validate checks settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if _, err := c.Streak.Location(); err != nil {
		return err
	}
	if c.APNs.Enabled && (c.APNs.KeyFile == "" || c.APNs.KeyID == "" || c.APNs.TeamID == "" || c.APNs.Topic == "") {
		return fmt.Errorf("apns: key_file, key_id, team_id and topic are required when enabled")
	}
	return nil
}

// Location resolves the configured streak time zone
func (s StreakConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid streak.timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
