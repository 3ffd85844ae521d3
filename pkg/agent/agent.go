package agent

import (
	"context"
	"time"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/backend"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/graph"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/release"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/strategy"
	"github.com/pkg/errors"
)

// fetcher resolves the next release reachable from the current version.
type fetcher interface {
	FetchNext(ctx context.Context) (*release.Release, error)
}

// Agent is the long-lived state machine driving the update lifecycle.
type Agent struct {
	log      logging.Logger
	strategy strategy.Strategy
	graph    fetcher
	backend  backend.Backend
	interval time.Duration

	progress progression
}

// New wires an agent to its collaborators. Every handle is passed in here;
// nothing is looked up dynamically later.
func New(log logging.Logger, strat strategy.Strategy, graphClient fetcher, be backend.Backend, interval time.Duration) (*Agent, error) {
	switch {
	case strat == nil:
		return nil, errors.New("finalization strategy is nil")
	case graphClient == nil:
		return nil, errors.New("graph client is nil")
	case be == nil:
		return nil, errors.New("update backend is nil")
	case interval <= 0:
		return nil, errors.Errorf("non-positive tick interval %s", interval)
	}
	return &Agent{
		log:      log,
		strategy: strat,
		graph:    graphClient,
		backend:  be,
		interval: interval,
		progress: newProgression(),
	}, nil
}

// Run ticks the agent until the context is cancelled, starting with one
// immediate tick. Ticks execute synchronously in this loop, so two ticks
// never mutate state concurrently; ticker fires that land while a tick is
// still running are coalesced by the ticker channel.
func (a *Agent) Run(ctx context.Context) error {
	a.log.WithField("strategy", a.strategy.Name()).Debug("starting")
	defer a.log.Debug("finished")

	a.tick(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

// tick performs at most one action and one transition for the current
// state. Collaborator failures are logged and swallowed; the state is only
// ever updated on success, so the next tick retries the same step.
func (a *Agent) tick(ctx context.Context) {
	state := a.progress.Current()
	a.log.WithField("state", state).Trace("tick")

	switch state {
	case StateStart:
		a.tryInitialize()
	case StateInitializing:
		a.trySteady(ctx)
	case StateSteady:
		a.tryFindUpdate(ctx)
	case StateUpdateFound:
		a.tryStage(ctx)
	case StateUpdateInProgress:
		a.tryCheckProgress(ctx)
	case StateUpdateStaged:
		a.tryFinalize(ctx)
	case StateUpdateFinalizing:
		// Terminal for this process's lifetime; the environment restarts
		// a fresh agent after the reboot.
	default:
		a.log.WithField("state", state).Error("tick in unknown state")
	}
}

// tryInitialize acknowledges local setup. Bookkeeping only, idempotent.
func (a *Agent) tryInitialize() {
	a.transition(StateInitializing)
}

func (a *Agent) trySteady(ctx context.Context) {
	if !a.strategy.ReportSteady(ctx) {
		a.log.Warn("steady state not yet reached")
		return
	}
	a.log.Info("steady state confirmed")
	a.transition(StateSteady)
}

func (a *Agent) tryFindUpdate(ctx context.Context) {
	next, err := a.graph.FetchNext(ctx)
	if err != nil {
		if errors.Cause(err) == graph.ErrVersionNotFound {
			// Operator-actionable, but retried anyway in case the upstream
			// graph catches up.
			a.log.WithError(err).Warn("update graph is missing our current version")
		} else {
			a.log.WithError(err).Error("unable to check for updates")
		}
		return
	}
	if next == nil {
		a.log.Trace("no update available")
		return
	}

	a.progress.SetTarget(*next)
	a.log.WithField("version", next.Version).Info("update selected")
	a.transition(StateUpdateFound)
}

func (a *Agent) tryStage(ctx context.Context) {
	target := a.progress.Target()
	staged, err := a.backend.Stage(ctx, *target)
	if err != nil {
		a.log.WithError(err).WithField("version", target.Version).Error("unable to request staging")
		return
	}

	// The backend may hand back its own representation of the same target.
	a.progress.SetTarget(staged)
	a.transition(StateUpdateInProgress)
}

func (a *Agent) tryCheckProgress(ctx context.Context) {
	target := a.progress.Target()
	staged, err := a.backend.CheckProgress(ctx, *target)
	if err != nil {
		a.log.WithError(err).WithField("version", target.Version).Error("unable to check staging progress")
		return
	}
	if staged == nil {
		a.log.WithField("version", target.Version).Trace("update still staging")
		return
	}

	a.log.WithField("version", staged.Version).Info("update staged")
	a.transition(StateUpdateStaged)
}

func (a *Agent) tryFinalize(ctx context.Context) {
	if !a.strategy.HasGreenLight(ctx) {
		a.log.Trace("finalization not allowed now")
		return
	}
	a.log.Info("green-light for finalization")

	target := a.progress.Target()
	finalized, err := a.backend.Finalize(ctx, *target)
	if err != nil {
		a.log.WithError(err).WithField("version", target.Version).Error("unable to finalize update")
		return
	}

	a.log.WithField("version", finalized.Version).Info("awaiting reboot into finalized update")
	a.transition(StateUpdateFinalizing)
}

func (a *Agent) transition(to State) {
	from := a.progress.Current()
	a.progress.Advance(to)
	a.log.WithField("from", from).WithField("to", to).Info("state transition")
}
