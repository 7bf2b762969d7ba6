// Package config loads the bot configuration from a YAML file overlaid with
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds every configuration section.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	NATS          NATSConfig          `yaml:"nats"`
	Discord       DiscordConfig       `yaml:"discord"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Score         ScoreConfig         `yaml:"score"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DatabaseConfig selects the store. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN    string `yaml:"dsn"    env:"DATABASE_URL"`
}

// NATSConfig holds NATS configuration. An empty URL selects the in-process bus.
type NATSConfig struct {
	URL           string `yaml:"url"            env:"NATS_URL"`
	StreamName    string `yaml:"stream_name"    env:"NATS_STREAM"`
	ConsumerGroup string `yaml:"consumer_group" env:"NATS_CONSUMER_GROUP"`
	NKeySeed      string `yaml:"nkey_seed"      env:"NATS_NKEY_SEED"`
}

// DiscordConfig holds Discord configuration. An empty token runs the bot
// without a gateway session.
type DiscordConfig struct {
	Token          string        `yaml:"token"           env:"DISCORD_TOKEN"`
	PublishTimeout time.Duration `yaml:"publish_timeout" env:"DISCORD_PUBLISH_TIMEOUT"`
}

// SchedulerConfig holds the pass schedules, six-field cron with seconds first.
type SchedulerConfig struct {
	Backend               string        `yaml:"backend"                 env:"SCHEDULER_BACKEND"`
	VoiceTickSpec         string        `yaml:"voice_tick_spec"         env:"SCHEDULER_VOICE_TICK_SPEC"`
	DecaySpec             string        `yaml:"decay_spec"              env:"SCHEDULER_DECAY_SPEC"`
	GraceRecheckSpec      string        `yaml:"grace_recheck_spec"      env:"SCHEDULER_GRACE_RECHECK_SPEC"`
	CooldownSweepInterval time.Duration `yaml:"cooldown_sweep_interval" env:"SCHEDULER_COOLDOWN_SWEEP_INTERVAL"`
}

// ScoreConfig tunes the in-memory cooldown tracker.
type ScoreConfig struct {
	CooldownMaxAge time.Duration `yaml:"cooldown_max_age" env:"SCORE_COOLDOWN_MAX_AGE"`
}

// APIConfig holds the admin HTTP API configuration.
type APIConfig struct {
	ListenAddr string  `yaml:"listen_addr" env:"API_LISTEN_ADDR"`
	JWTSecret  string  `yaml:"jwt_secret"  env:"JWT_SECRET"`
	RateLimit  float64 `yaml:"rate_limit"  env:"API_RATE_LIMIT"`
	RateBurst  int     `yaml:"rate_burst"  env:"API_RATE_BURST"`
}

// ObservabilityConfig holds logging and metrics configuration.
type ObservabilityConfig struct {
	Environment string `yaml:"environment"  env:"ENV"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	LogLevel    string `yaml:"log_level"    env:"LOG_LEVEL"`
}

// LoadConfig reads filename, overlays environment variables and applies
// defaults. A missing file is not an error; the environment alone is used.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "file:levelbot.db"
	}
	if c.NATS.StreamName == "" {
		c.NATS.StreamName = "LEVELBOT"
	}
	if c.NATS.ConsumerGroup == "" {
		c.NATS.ConsumerGroup = "levelbot"
	}
	if c.Discord.PublishTimeout == 0 {
		c.Discord.PublishTimeout = 5 * time.Second
	}
	if c.Scheduler.Backend == "" {
		c.Scheduler.Backend = "cron"
	}
	if c.Scheduler.VoiceTickSpec == "" {
		c.Scheduler.VoiceTickSpec = "0 * * * * *"
	}
	if c.Scheduler.DecaySpec == "" {
		c.Scheduler.DecaySpec = "0 0 4 * * *"
	}
	if c.Scheduler.GraceRecheckSpec == "" {
		c.Scheduler.GraceRecheckSpec = "0 30 * * * *"
	}
	if c.Scheduler.CooldownSweepInterval == 0 {
		c.Scheduler.CooldownSweepInterval = 10 * time.Minute
	}
	if c.Score.CooldownMaxAge == 0 {
		c.Score.CooldownMaxAge = 6 * time.Hour
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = 5
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = 20
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "levelbot"
	}
}

var specParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn: required"))
	}

	switch c.Scheduler.Backend {
	case "cron":
	case "river":
		if c.Database.Driver != "postgres" {
			errs = append(errs, errors.New("scheduler.backend: river requires the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("scheduler.backend: unsupported %q", c.Scheduler.Backend))
	}
	for name, spec := range map[string]string{
		"scheduler.voice_tick_spec":    c.Scheduler.VoiceTickSpec,
		"scheduler.decay_spec":         c.Scheduler.DecaySpec,
		"scheduler.grace_recheck_spec": c.Scheduler.GraceRecheckSpec,
	} {
		if _, err := specParser.Parse(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Scheduler.CooldownSweepInterval < 0 {
		errs = append(errs, errors.New("scheduler.cooldown_sweep_interval: must be positive"))
	}
	if c.Score.CooldownMaxAge < 0 {
		errs = append(errs, errors.New("score.cooldown_max_age: must be positive"))
	}
	if c.API.RateLimit < 0 || c.API.RateBurst < 0 {
		errs = append(errs, errors.New("api: rate limit and burst must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
