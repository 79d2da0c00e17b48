package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type SpecKind int

const (
	SpecInterval SpecKind = iota
	SpecCron
)

// Schedule is the dispatcher's polling cadence: either a fixed interval
// ("1m", "30s") or a standard cron spec ("* * * * *").
type Schedule struct {
	Kind   SpecKind
	Every  time.Duration
	Cron   cron.Schedule
	Source string
}

// DefaultSchedule polls once a minute, bounding worst-case delivery lag.
func DefaultSchedule() Schedule {
	return Schedule{Kind: SpecInterval, Every: time.Minute, Source: "default"}
}

// ParseSchedule accepts a Go duration, a 5-field cron spec, or the
// explicit prefixes "interval:<duration>" and "cron:<spec>".
// An empty string yields the default one-minute interval.
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultSchedule(), nil
	}

	if rest, ok := strings.CutPrefix(s, "interval:"); ok {
		return parseInterval(rest)
	}
	if rest, ok := strings.CutPrefix(s, "cron:"); ok {
		return parseCron(rest)
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return Schedule{}, fmt.Errorf("interval must be > 0, got %q", raw)
		}
		return Schedule{Kind: SpecInterval, Every: d, Source: "duration"}, nil
	}
	if sched, err := cron.ParseStandard(s); err == nil {
		return Schedule{Kind: SpecCron, Cron: sched, Source: "cron"}, nil
	}
	return Schedule{}, fmt.Errorf("unrecognized schedule %q (want a duration like \"1m\" or a cron spec like \"* * * * *\")", raw)
}

func parseInterval(s string) (Schedule, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 {
		return Schedule{}, fmt.Errorf("interval must be > 0, got %q", s)
	}
	return Schedule{Kind: SpecInterval, Every: d, Source: "duration"}, nil
}

func parseCron(s string) (Schedule, error) {
	sched, err := cron.ParseStandard(strings.TrimSpace(s))
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron spec: %w", err)
	}
	return Schedule{Kind: SpecCron, Cron: sched, Source: "cron"}, nil
}

// next returns the instant of the tick after now.
func (s Schedule) next(now time.Time) time.Time {
	if s.Kind == SpecCron && s.Cron != nil {
		return s.Cron.Next(now)
	}
	every := s.Every
	if every <= 0 {
		every = time.Minute
	}
	return now.Add(every)
}
