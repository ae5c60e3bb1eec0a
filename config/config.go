package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RBACPolicy struct {
	Role     string `yaml:"role"`
	Resource string `yaml:"resource"`
	Action   string `yaml:"action"`
}

type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"` // gin mode: debug, release, test
	} `yaml:"server"`

	Database struct {
		Driver          string        `yaml:"driver"` // postgres or memory
		URL             string        `yaml:"url"`
		Timezone        string        `yaml:"timezone"`
		MaxOpenConns    int           `yaml:"maxOpenConns"`
		MaxIdleConns    int           `yaml:"maxIdleConns"`
		ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
		Migrate         bool          `yaml:"migrate"`
	} `yaml:"database"`

	Mongo struct {
		URI        string `yaml:"uri"`
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	JWT struct {
		Secret string `yaml:"secret"`
		Expiry int    `yaml:"expiry"` // minutes
	} `yaml:"jwt"`

	Session struct {
		Name   string `yaml:"name"`
		Secret string `yaml:"secret"`
		MaxAge int    `yaml:"maxAge"` // seconds
		Secure bool   `yaml:"secure"`
	} `yaml:"session"`

	Gamification struct {
		XPPerLevel          int    `yaml:"xpPerLevel"`
		XPLoginStreak       int    `yaml:"xpLoginStreak"`
		XPPolicyAck         int    `yaml:"xpPolicyAck"`
		WeeklyResetSchedule string `yaml:"weeklyResetSchedule"`
		Timezone            string `yaml:"timezone"`
	} `yaml:"gamification"`

	Auth struct {
		PasswordMinLength int           `yaml:"passwordMinLength"`
		BcryptCost        int           `yaml:"bcryptCost"`
		LoginAttempts     int           `yaml:"loginAttempts"`
		LoginWindow       time.Duration `yaml:"loginWindow"`
	} `yaml:"auth"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`

	CORS struct {
		AllowOrigins []string `yaml:"allowOrigins"`
	} `yaml:"cors"`

	RBAC struct {
		Policies []RBACPolicy `yaml:"policies"`
	} `yaml:"rbac"`

	Activity struct {
		Store string `yaml:"store"` // sql or mongo
	} `yaml:"activity"`
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 1313
	cfg.Server.Mode = "release"

	cfg.Database.Driver = "postgres"
	cfg.Database.Timezone = "UTC"
	cfg.Database.MaxOpenConns = 20
	cfg.Database.MaxIdleConns = 10
	cfg.Database.ConnMaxLifetime = 5 * time.Minute
	cfg.Database.Migrate = true

	cfg.Mongo.Collection = "activity_logs"

	cfg.JWT.Expiry = 24 * 60

	cfg.Session.Name = "maternar_session"
	cfg.Session.MaxAge = 7 * 24 * 3600

	cfg.Gamification.XPPerLevel = 1000
	cfg.Gamification.XPLoginStreak = 10
	cfg.Gamification.XPPolicyAck = 50
	cfg.Gamification.WeeklyResetSchedule = "0 0 * * MON"
	cfg.Gamification.Timezone = "UTC"

	cfg.Auth.PasswordMinLength = 6
	cfg.Auth.BcryptCost = 10
	cfg.Auth.LoginAttempts = 10
	cfg.Auth.LoginWindow = 15 * time.Minute

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	cfg.CORS.AllowOrigins = []string{"http://localhost:5173"}

	cfg.RBAC.Policies = []RBACPolicy{
		{"admin", "gamification", "write"},
		{"admin", "course", "write"},
		{"admin", "policy", "write"},
		{"admin", "link", "write"},
		{"admin", "user", "read"},
		{"admin", "user", "write"},
		{"admin", "event", "write"},
		{"user", "event", "write"},
	}

	cfg.Activity.Store = "sql"
	return &cfg
}

// LoadConfig reads the configuration file on top of the defaults, then
// applies MATERNAR_* environment overrides. A .env file in the working
// directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"MATERNAR_DATABASE_DRIVER": &c.Database.Driver,
		"MATERNAR_DATABASE_URL":    &c.Database.URL,
		"MATERNAR_MONGO_URI":       &c.Mongo.URI,
		"MATERNAR_REDIS_ADDR":      &c.Redis.Addr,
		"MATERNAR_REDIS_PASSWORD":  &c.Redis.Password,
		"MATERNAR_JWT_SECRET":      &c.JWT.Secret,
		"MATERNAR_SESSION_SECRET":  &c.Session.Secret,
		"MATERNAR_LOG_LEVEL":       &c.Log.Level,
		"MATERNAR_LOG_FORMAT":      &c.Log.Format,
		"MATERNAR_ACTIVITY_STORE":  &c.Activity.Store,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("MATERNAR_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MATERNAR_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("MATERNAR_CORS_ORIGINS"); ok {
		c.CORS.AllowOrigins = strings.Split(v, ",")
	}
	return nil
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Session.Secret == "" {
		c.Session.Secret = c.JWT.Secret
	}
	if c.Gamification.XPPerLevel <= 0 {
		return fmt.Errorf("gamification.xpPerLevel must be positive")
	}
	if _, err := time.LoadLocation(c.Gamification.Timezone); err != nil {
		return fmt.Errorf("invalid gamification.timezone: %w", err)
	}
	switch c.Activity.Store {
	case "sql":
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required when activity.store is mongo")
		}
	default:
		return fmt.Errorf("unknown activity store %q", c.Activity.Store)
	}
	return nil
}

// Location returns the timezone used for streak day boundaries.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Gamification.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
