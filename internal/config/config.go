package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/keshon/cmdguard/internal/cooldown"
)

type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN"`
	DeveloperID           string   `env:"DEVELOPER_ID"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	StatusAddr            string   `env:"STATUS_ADDR"`

	Cooldown CooldownConfig `envPrefix:"COOLDOWN_"`
	Store    StoreConfig
	Log      LogConfig `envPrefix:"LOG_"`
}

type CooldownConfig struct {
	Message          string        `env:"MESSAGE" envDefault:"Not so fast. Try again in {time}." validate:"cooldown_template"`
	OwnerBypass      bool          `env:"OWNER_BYPASS" envDefault:"true"`
	OwnerIDs         []string      `env:"OWNER_IDS" envSeparator:","`
	DurableThreshold int           `env:"DURABLE_THRESHOLD" envDefault:"300" validate:"gt=0"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m" validate:"gte=0"`
}

// StoreConfig selects the durable cooldown backend.
type StoreConfig struct {
	Driver        string `env:"STORE_DRIVER" envDefault:"datastore" validate:"oneof=datastore redis sqlite"`
	Path          string `env:"STORAGE_PATH" envDefault:"datastore.json"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"cmdguard"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"cooldowns.db"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	File   string `env:"FILE"`
	Pretty bool   `env:"PRETTY" envDefault:"true"`
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the process environment without touching .env.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cooldown_template", func(fl validator.FieldLevel) bool {
		return strings.Count(fl.Field().String(), cooldown.Placeholder) == 1
	})
	return v
}

// Validate checks field constraints. The cooldown message must hold the
// placeholder exactly once.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "cooldown_template" {
				return fmt.Errorf("invalid config: COOLDOWN_MESSAGE must contain %s exactly once", cooldown.Placeholder)
			}
			return fmt.Errorf("invalid config: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireDiscord reports an error when the bot cannot log in.
func (c *Config) RequireDiscord() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	return nil
}

// Owners returns the bypass owner ids, with the developer included.
func (c *Config) Owners() []string {
	owners := slices.Clone(c.Cooldown.OwnerIDs)
	if c.DeveloperID != "" && !slices.Contains(owners, c.DeveloperID) {
		owners = append(owners, c.DeveloperID)
	}
	return owners
}

// ManagerConfig converts the env settings into the manager's config.
func (c *Config) ManagerConfig() cooldown.Config {
	return cooldown.Config{
		Message:          c.Cooldown.Message,
		OwnerBypass:      c.Cooldown.OwnerBypass,
		OwnerIDs:         c.Owners(),
		DurableThreshold: time.Duration(c.Cooldown.DurableThreshold) * time.Second,
	}
}
