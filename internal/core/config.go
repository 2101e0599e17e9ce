package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/backend/database"
	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"
)

const (
	DatabaseTypeSQLite   = "sqlite"
	DatabaseTypePostgres = "postgres"

	defaultPort              = 5000
	defaultSQLiteConnection  = "skin_cancer.db"
	defaultModelPath         = "models/efficientnet_b0.onnx"
	defaultFeedbackDirectory = "feedback_data"
	defaultMaxUploadSize     = "16M"
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
	Host             string `yaml:"host"`
	Name             string `yaml:"name"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	// MaxIdleConns of zero closes every connection once an operation releases it.
	MaxIdleConns int `yaml:"maxIdleConns"`
}

type Model struct {
	Path            string `yaml:"path"`
	OnnxLibraryPath string `yaml:"onnxLibraryPath"`
}

type ServiceConfig struct {
	Port             int      `yaml:"port"`
	Database         Database `yaml:"database"`
	Model            Model    `yaml:"model"`
	FeedbackDir      string   `yaml:"feedbackDir"`
	MaxUploadSize    string   `yaml:"maxUploadSize"`
	CORSAllowOrigins []string `yaml:"corsAllowOrigins"`
}

func defaultConfig() ServiceConfig {
	return ServiceConfig{
		Port: defaultPort,
		Database: Database{
			Type: DatabaseTypeSQLite,
		},
		Model: Model{
			Path: defaultModelPath,
		},
		FeedbackDir:      defaultFeedbackDirectory,
		MaxUploadSize:    defaultMaxUploadSize,
		CORSAllowOrigins: []string{"*"},
	}
}

// LoadConfig loads configuration from the specified YAML file, then applies
// environment overrides. A missing file leaves the defaults in place.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	config := defaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("config file not found, using defaults and environment", "path", configPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}

	if config.Database.Type == DatabaseTypeSQLite && config.Database.ConnectionString == "" {
		config.Database.ConnectionString = defaultSQLiteConnection
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(config *ServiceConfig) error {
	if value, ok := os.LookupEnv("PORT"); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", value, err)
		}
		config.Port = port
	}

	overrides := []struct {
		key    string
		target *string
	}{
		{"DB_TYPE", &config.Database.Type},
		{"DB_HOST", &config.Database.Host},
		{"DB_NAME", &config.Database.Name},
		{"DB_USER", &config.Database.User},
		{"DB_PASS", &config.Database.Password},
		{"MODEL_PATH", &config.Model.Path},
		{"ONNX_LIBRARY_PATH", &config.Model.OnnxLibraryPath},
		{"FEEDBACK_DIR", &config.FeedbackDir},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.key); ok && value != "" {
			*o.target = value
		}
	}
	return nil
}

func (config *ServiceConfig) validate() error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("port %d out of range", config.Port)
	}
	if config.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.maxIdleConns must not be negative")
	}

	switch config.Database.Type {
	case DatabaseTypeSQLite:
		if config.Database.ConnectionString == "" {
			return fmt.Errorf("sqlite requires a connectionString")
		}
	case DatabaseTypePostgres:
		if config.Database.Host == "" && config.Database.ConnectionString != "" {
			break
		}
		if config.Database.Host == "" || config.Database.Name == "" || config.Database.User == "" {
			return fmt.Errorf("postgres requires host, name and user or a connectionString")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", config.Database.Type)
	}

	if config.FeedbackDir == "" {
		return fmt.Errorf("feedbackDir must not be empty")
	}
	if _, err := bytes.Parse(config.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid maxUploadSize %q: %w", config.MaxUploadSize, err)
	}
	return nil
}

// DataSourceName returns the driver connection string for the configured database.
// For postgres the individual host/name/user/password fields win over connectionString.
func (d Database) DataSourceName() string {
	if d.Type == DatabaseTypePostgres && d.Host != "" {
		return database.PostgresConnectionString(d.Host, d.Name, d.User, d.Password)
	}
	return d.ConnectionString
}
