package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultLocations are the two cloakroom counters records and users are assigned to.
var DefaultLocations = []string{"gents location", "ladies location"}

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		UploadMaxBytes     int64    `mapstructure:"upload_max_bytes"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	// Admin is the built-in administrator that exists outside the users table.
	Admin struct {
		Username   string `mapstructure:"username"`
		Password   string `mapstructure:"password"`
		TOTPSecret string `mapstructure:"totp_secret"`
	} `mapstructure:"admin"`

	Storage struct {
		Driver    string `mapstructure:"driver"`
		UploadDir string `mapstructure:"upload_dir"`
		R2        struct {
			Endpoint  string `mapstructure:"endpoint"`
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
			Bucket    string `mapstructure:"bucket"`
			Region    string `mapstructure:"region"`
		} `mapstructure:"r2"`
	} `mapstructure:"storage"`

	Audit struct {
		File      string `mapstructure:"file"`
		DBEnabled bool   `mapstructure:"db_enabled"`
	} `mapstructure:"audit"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Locations []string `mapstructure:"locations"`

	Return struct {
		SameDayOnly bool `mapstructure:"same_day_only"`
	} `mapstructure:"return"`
}

// DSN returns the pgx connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// MigrateURL is the DSN in the form golang-migrate's pgx5 driver expects.
func (c *Config) MigrateURL() string {
	return "pgx5" + strings.TrimPrefix(c.DSN(), "postgres")
}

func Load() (*Config, error) {
	return LoadFile("configs/config.yaml")
}

// LoadFile reads the optional yaml file at path, then layers environment
// variables on top of it.
func LoadFile(path string) (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if len(cfg.Locations) != 2 {
		return nil, fmt.Errorf("exactly two locations must be configured, got %d", len(cfg.Locations))
	}
	switch cfg.Storage.Driver {
	case "local", "r2":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("server.upload_max_bytes", 5*1024*1024)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "cloakroom")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("jwt.expiration_hours", 8)
	v.SetDefault("jwt.issuer", "cloakroom-backend")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.r2.region", "auto")
	// Empty defaults let STORAGE_R2_* variables reach Unmarshal.
	v.SetDefault("storage.r2.endpoint", "")
	v.SetDefault("storage.r2.access_key", "")
	v.SetDefault("storage.r2.secret_key", "")
	v.SetDefault("storage.r2.bucket", "")
	v.SetDefault("audit.file", "logs/audit.log")
	v.SetDefault("audit.db_enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("locations", DefaultLocations)
	v.SetDefault("return.same_day_only", true)
}

// applyEnvOverrides keeps the short variable names used by existing deployments.
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Server.Port = n
		}
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if user := os.Getenv("ADMIN_USERNAME"); user != "" {
		cfg.Admin.Username = user
	}
	if pass := os.Getenv("ADMIN_PASSWORD"); pass != "" {
		cfg.Admin.Password = pass
	}
	if secret := os.Getenv("ADMIN_TOTP_SECRET"); secret != "" {
		cfg.Admin.TOTPSecret = secret
	}
}
