package strategy

import (
	"context"
	"time"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/config"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// periodic self-grants access on a fixed cadence, for uncoordinated fleets
// that accept simultaneous reboots. A cron schedule opens a window of the
// configured length; both questions answer true only inside a window. With
// no schedule configured every window is open.
type periodic struct {
	schedule cron.Schedule
	length   time.Duration
	now      func() time.Time
}

func newPeriodic(cfg config.StrategyConfig) (*periodic, error) {
	strat := &periodic{
		length: cfg.PeriodicLength,
		now:    time.Now,
	}
	if cfg.PeriodicSchedule == "" {
		return strat, nil
	}
	if cfg.PeriodicLength <= 0 {
		return nil, errors.New("periodic strategy requires a window length alongside its schedule")
	}

	schedule, err := cron.ParseStandard(cfg.PeriodicSchedule)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid periodic schedule %q", cfg.PeriodicSchedule)
	}
	strat.schedule = schedule
	return strat, nil
}

func (s *periodic) Name() string {
	return "periodic"
}

func (s *periodic) ReportSteady(ctx context.Context) bool {
	return s.inWindow()
}

func (s *periodic) HasGreenLight(ctx context.Context) bool {
	return s.inWindow()
}

// inWindow reports whether a window opened within the last `length`. The
// window length is expected to be shorter than the schedule's cadence.
func (s *periodic) inWindow() bool {
	if s.schedule == nil {
		return true
	}
	now := s.now()
	opened := s.schedule.Next(now.Add(-s.length))
	return !opened.After(now)
}
