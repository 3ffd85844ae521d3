// Package strategy gates update finalization with a fleet-coordination
// policy. A strategy answers two questions: may the node report steady
// state now, and does it have a green light to reboot now. Answers are
// plain booleans; a policy that cannot reach its coordinator answers false
// rather than erroring, so ambiguity never turns into a reboot.
package strategy

import (
	"context"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/config"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/identity"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"github.com/pkg/errors"
)

// Strategy is the finalization policy consulted by the agent on every tick.
type Strategy interface {
	// Name identifies the policy variant in logs.
	Name() string
	// ReportSteady reports whether the node has confirmed steady state.
	ReportSteady(ctx context.Context) bool
	// HasGreenLight reports whether the node may finalize and reboot now.
	HasGreenLight(ctx context.Context) bool
}

// New selects the configured strategy variant. An empty name defaults to
// immediate; an unrecognized name is a configuration error and must abort
// startup.
func New(log logging.Logger, cfg config.StrategyConfig, ident identity.Identity) (Strategy, error) {
	switch cfg.Name {
	case "", "immediate":
		return &immediate{}, nil
	case "never":
		return &never{reportsSteady: cfg.NeverReportsSteady}, nil
	case "periodic":
		return newPeriodic(cfg)
	case "remote_http":
		return newRemoteHTTP(log, cfg, ident)
	default:
		return nil, errors.Errorf("unsupported strategy %q", cfg.Name)
	}
}
