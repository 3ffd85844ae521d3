package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/config"
	"gotest.tools/assert"
)

func TestPeriodicAlwaysOpenWithoutSchedule(t *testing.T) {
	strat, err := newPeriodic(config.StrategyConfig{Name: "periodic"})
	assert.NilError(t, err)

	ctx := context.Background()
	assert.Check(t, strat.ReportSteady(ctx))
	assert.Check(t, strat.HasGreenLight(ctx))
}

func TestPeriodicScheduleRequiresLength(t *testing.T) {
	_, err := newPeriodic(config.StrategyConfig{
		Name:             "periodic",
		PeriodicSchedule: "0 2 * * 6",
	})
	assert.ErrorContains(t, err, "window length")
}

func TestPeriodicBadSchedule(t *testing.T) {
	_, err := newPeriodic(config.StrategyConfig{
		Name:             "periodic",
		PeriodicSchedule: "whenever",
		PeriodicLength:   time.Hour,
	})
	assert.ErrorContains(t, err, "invalid periodic schedule")
}

func TestPeriodicWindowMembership(t *testing.T) {
	// Window opens daily at 02:00 for two hours.
	strat, err := newPeriodic(config.StrategyConfig{
		Name:             "periodic",
		PeriodicSchedule: "0 2 * * *",
		PeriodicLength:   2 * time.Hour,
	})
	assert.NilError(t, err)

	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		at     time.Time
		inside bool
	}{
		{"before-window", day.Add(1*time.Hour + 59*time.Minute), false},
		{"window-opens", day.Add(2 * time.Hour), true},
		{"mid-window", day.Add(3 * time.Hour), true},
		{"window-closing", day.Add(3*time.Hour + 59*time.Minute), true},
		{"after-window", day.Add(4*time.Hour + time.Minute), false},
		{"late-day", day.Add(20 * time.Hour), false},
	}

	ctx := context.Background()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			strat.now = func() time.Time { return tc.at }
			assert.Equal(t, strat.HasGreenLight(ctx), tc.inside)
			assert.Equal(t, strat.ReportSteady(ctx), tc.inside)
		})
	}
}
