// Package backend proxies the host's local update mechanism. The underlying
// service accepts one synchronous call per connection, so every operation is
// funneled through a small pool of serialized workers. The proxy also owns
// the single pending-update slot: one release at a time may be in flight,
// first write wins until it is consumed by finalization.
package backend

import (
	"context"
	"sync"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/release"
	"github.com/sirupsen/logrus"
)

// Backend drives staging and finalization of one release on the host.
type Backend interface {
	// Stage requests local staging of the release. Staging the release
	// already pending is a no-op success; a request for a different release
	// while one is pending is logged and dropped, returning the pending one.
	Stage(ctx context.Context, r release.Release) (release.Release, error)
	// CheckProgress reports whether the release has finished staging,
	// returning it when it has and nil while work is still in flight.
	CheckProgress(ctx context.Context, r release.Release) (*release.Release, error)
	// Finalize activates the staged release, consuming the pending slot.
	// The node reboots outside this process's lifetime.
	Finalize(ctx context.Context, r release.Release) (release.Release, error)
}

// Proxy implements Backend over a serialized worker pool.
type Proxy struct {
	log  logging.Logger
	pool *pool

	mu      sync.Mutex
	pending *release.Release
}

// New provides a Backend talking to the host updater over the system bus.
func New(log logging.Logger) *Proxy {
	return newProxy(log, dialSystemBus, poolSize)
}

func newProxy(log logging.Logger, dial dialFunc, workers int) *Proxy {
	return &Proxy{
		log:  log,
		pool: newPool(log, dial, workers),
	}
}

func (p *Proxy) Stage(ctx context.Context, r release.Release) (release.Release, error) {
	p.mu.Lock()
	if p.pending != nil {
		pending := p.pending.Clone()
		p.mu.Unlock()
		if pending.Version == r.Version {
			p.log.WithField("version", r.Version).Debug("stage already pending, nothing to do")
		} else {
			p.log.WithFields(logrus.Fields{
				"pending":   pending.Version,
				"requested": r.Version,
			}).Warn("stage requested while another update is pending, dropping request")
		}
		return pending, nil
	}
	// Reserve the slot before the IPC call so a concurrent stage for the
	// same release results in exactly one outstanding request.
	reserved := r.Clone()
	p.pending = &reserved
	p.mu.Unlock()

	p.log.WithField("version", r.Version).Debug("requesting to stage update")
	var staged release.Release
	err := p.pool.submit(ctx, func(c caller) error {
		var callErr error
		staged, callErr = c.stage(ctx, r)
		return callErr
	})
	if err != nil {
		p.clearPending()
		return release.Release{}, err
	}

	p.log.WithField("version", staged.Version).Info("staged update")
	return staged, nil
}

func (p *Proxy) CheckProgress(ctx context.Context, r release.Release) (*release.Release, error) {
	var deployed *release.Release
	err := p.pool.submit(ctx, func(c caller) error {
		var callErr error
		deployed, callErr = c.queryStaged(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if deployed == nil || deployed.Version != r.Version {
		p.log.WithField("version", r.Version).Trace("update not staged yet")
		return nil, nil
	}
	done := deployed.Clone()
	return &done, nil
}

func (p *Proxy) Finalize(ctx context.Context, r release.Release) (release.Release, error) {
	p.log.WithField("version", r.Version).Debug("requesting to finalize update")
	var finalized release.Release
	err := p.pool.submit(ctx, func(c caller) error {
		var callErr error
		finalized, callErr = c.finalize(ctx, r)
		return callErr
	})
	if err != nil {
		return release.Release{}, err
	}

	p.clearPending()
	p.log.WithField("version", finalized.Version).Info("finalized update")
	return finalized, nil
}

// Close releases the worker pool and its connections.
func (p *Proxy) Close() {
	p.pool.close()
}

func (p *Proxy) clearPending() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

// pendingRelease exposes the slot for inspection.
func (p *Proxy) pendingRelease() *release.Release {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return nil
	}
	dup := p.pending.Clone()
	return &dup
}
