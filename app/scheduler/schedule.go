package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Backend selects what triggers the passes.
type Backend string

const (
	// BackendCron runs the passes from an in-process cron. Suited to a single replica.
	BackendCron Backend = "cron"
	// BackendRiver enqueues the passes as River periodic jobs so only one
	// replica runs each trigger. Requires Postgres.
	BackendRiver Backend = "river"
)

// Default schedules, in six-field cron syntax with a leading seconds field.
const (
	DefaultVoiceTickSpec         = "0 * * * * *"
	DefaultDecaySpec             = "0 0 4 * * *"
	DefaultGraceRecheckSpec      = "0 30 * * * *"
	DefaultCooldownSweepInterval = 10 * time.Minute
)

// Config configures the scheduler.
type Config struct {
	Backend               Backend
	VoiceTickSpec         string
	DecaySpec             string
	GraceRecheckSpec      string
	CooldownSweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendCron
	}
	if c.VoiceTickSpec == "" {
		c.VoiceTickSpec = DefaultVoiceTickSpec
	}
	if c.DecaySpec == "" {
		c.DecaySpec = DefaultDecaySpec
	}
	if c.GraceRecheckSpec == "" {
		c.GraceRecheckSpec = DefaultGraceRecheckSpec
	}
	if c.CooldownSweepInterval <= 0 {
		c.CooldownSweepInterval = DefaultCooldownSweepInterval
	}
	return c
}

var specParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses a six-field cron expression (seconds first) or a
// descriptor such as "@daily".
func ParseSchedule(spec string) (cron.Schedule, error) {
	s, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse %q: %w", spec, err)
	}
	return s, nil
}
