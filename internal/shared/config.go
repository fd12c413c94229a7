package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Every field can be overridden by a CHORDPAPER_* environment variable, see [ApplyEnv].
type Config struct {
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Google   GoogleConfig   `toml:"google"`
	Queue    QueueConfig    `toml:"queue"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" env:"CHORDPAPER_LOG_LEVEL"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"CHORDPAPER_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns" env:"CHORDPAPER_DATABASE_MAX_OPEN_CONNS,strict"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"CHORDPAPER_DATABASE_MAX_IDLE_CONNS,strict"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string   `toml:"host" env:"CHORDPAPER_SERVER_HOST"`
	Port              int      `toml:"port" env:"CHORDPAPER_SERVER_PORT,strict"`
	AllowedOrigins    []string `toml:"allowed_origins" env:"CHORDPAPER_ALLOWED_ORIGINS"`
	RequestsPerSecond float64  `toml:"requests_per_second" env:"CHORDPAPER_REQUESTS_PER_SECOND,strict"`
	Burst             int      `toml:"burst" env:"CHORDPAPER_BURST,strict"`
	ReadTimeout       int      `toml:"read_timeout_seconds" env:"CHORDPAPER_READ_TIMEOUT_SECONDS,strict"`
	WriteTimeout      int      `toml:"write_timeout_seconds" env:"CHORDPAPER_WRITE_TIMEOUT_SECONDS,strict"`
	ShutdownTimeout   int      `toml:"shutdown_timeout_seconds" env:"CHORDPAPER_SHUTDOWN_TIMEOUT_SECONDS,strict"`
}

// GoogleConfig contains Google identity settings.
//
// ClientSecret and RedirectURI are only used by the `auth google` developer command.
type GoogleConfig struct {
	ClientID     string `toml:"client_id" env:"CHORDPAPER_GOOGLE_CLIENT_ID"`
	CertsURL     string `toml:"certs_url" env:"CHORDPAPER_GOOGLE_CERTS_URL"`
	ClientSecret string `toml:"client_secret" env:"CHORDPAPER_GOOGLE_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"CHORDPAPER_GOOGLE_REDIRECT_URI"`
}

// QueueConfig contains job queue settings. An empty URL disables the broker and jobs are only logged.
type QueueConfig struct {
	URL  string `toml:"url" env:"CHORDPAPER_QUEUE_URL"`
	Name string `toml:"name" env:"CHORDPAPER_QUEUE_NAME"`
}

// Addr returns the host:port the HTTP server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeouts returns the read, write and shutdown timeouts as durations.
func (c ServerConfig) Timeouts() (read, write, shutdown time.Duration) {
	return time.Duration(c.ReadTimeout) * time.Second,
		time.Duration(c.WriteTimeout) * time.Second,
		time.Duration(c.ShutdownTimeout) * time.Second
}

// Validate checks the settings required to serve the API.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d is out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Google.ClientID == "" {
		return fmt.Errorf("%w: google.client_id is required", ErrInvalidConfig)
	}
	if c.Google.CertsURL == "" {
		return fmt.Errorf("%w: google.certs_url is required", ErrInvalidConfig)
	}
	if c.Queue.URL != "" && c.Queue.Name == "" {
		return fmt.Errorf("%w: queue.name is required when queue.url is set", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig assembles the process configuration: defaults, then the TOML file at path if it exists,
// then the environment.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the environment without overriding variables
// that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides config fields from their CHORDPAPER_* environment variables. Numeric fields are strict, so
// a value that does not parse is an error.
func ApplyEnv(config *Config) error {
	err := envdecode.Decode(config)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
