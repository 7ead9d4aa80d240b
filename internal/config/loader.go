package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Export   ExportConfig   `mapstructure:"export"`
	Window   WindowConfig   `mapstructure:"window"`
	Database DatabaseConfig `mapstructure:"database"`
	Features FeaturesConfig `mapstructure:"features"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL is the origin the UI bridge talks to.
func (s *ServerConfig) BaseURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

// ExportConfig describes how the external export script is launched.
type ExportConfig struct {
	Command         string            `mapstructure:"command"`
	Args            []string          `mapstructure:"args"`
	Script          string            `mapstructure:"script"`
	Workdir         string            `mapstructure:"workdir"`
	Env             map[string]string `mapstructure:"env"`
	OutputDir       string            `mapstructure:"output_dir"`
	Format          string            `mapstructure:"format"`
	Timeout         time.Duration     `mapstructure:"timeout"`
	KeepSessions    int               `mapstructure:"keep_sessions"`
	ShutdownTimeout time.Duration     `mapstructure:"shutdown_timeout"`
}

type WindowConfig struct {
	Title       string        `mapstructure:"title"`
	Width       int           `mapstructure:"width"`
	Height      int           `mapstructure:"height"`
	OpenBrowser bool          `mapstructure:"open_browser"`
	CloseGrace  time.Duration `mapstructure:"close_grace"`
	LockFile    string        `mapstructure:"lock_file"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

type AuthConfig struct {
	APIToken       string   `mapstructure:"api_token"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.output_paths", []string{"stdout"})
	v.SetDefault("logger.error_output_paths", []string{"stderr"})

	v.SetDefault("export.command", "python3")
	v.SetDefault("export.script", "run_export.py")
	v.SetDefault("export.output_dir", "output")
	v.SetDefault("export.format", "MAL XML + HTML")
	v.SetDefault("export.keep_sessions", 20)
	v.SetDefault("export.shutdown_timeout", 5*time.Second)

	v.SetDefault("window.title", "Multi-Site Manga Exporter")
	v.SetDefault("window.width", 1400)
	v.SetDefault("window.height", 900)
	v.SetDefault("window.open_browser", true)
	v.SetDefault("window.close_grace", 10*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("features.request_id_header", "X-Request-ID")
	v.SetDefault("features.enable_request_logging", true)

	v.SetDefault("auth.allowed_origins", []string{"*"})
}

// Load reads the config file at path. An empty or missing path yields the
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MANGA_EXPORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ResolvePath picks the first config file that exists, in the order the
// binaries look for it when started from the repo root or from cmd/.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, candidate := range []string{"config/config.yaml", "../config/config.yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Export.Command) == "" {
		return errors.New("config: export.command is required")
	}
	if strings.TrimSpace(c.Export.Script) == "" {
		return errors.New("config: export.script is required")
	}
	if c.Export.KeepSessions < 1 {
		c.Export.KeepSessions = 1
	}
	return nil
}
