package backend

import (
	"context"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/release"
	"github.com/pkg/errors"
)

// poolSize is the number of serialized workers; the updater accepts one
// synchronous call per connection.
const poolSize = 2

// caller is one blocking connection to the host updater. Implementations
// are not safe for concurrent use; a worker owns its caller exclusively.
type caller interface {
	stage(ctx context.Context, r release.Release) (release.Release, error)
	queryStaged(ctx context.Context) (*release.Release, error)
	finalize(ctx context.Context, r release.Release) (release.Release, error)
	close()
}

type dialFunc func() (caller, error)

type job struct {
	run  func(caller) error
	errc chan error
}

// pool serializes operations: each worker owns one connection and runs one
// job at a time, so concurrent requests queue instead of racing on a shared
// connection.
type pool struct {
	log  logging.Logger
	dial dialFunc
	jobs chan job
	stop chan struct{}
}

func newPool(log logging.Logger, dial dialFunc, workers int) *pool {
	p := &pool{
		log:  log,
		dial: dial,
		jobs: make(chan job),
		stop: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// submit queues one operation and waits for its outcome or context expiry.
func (p *pool) submit(ctx context.Context, run func(caller) error) error {
	j := job{run: run, errc: make(chan error, 1)}
	select {
	case p.jobs <- j:
	case <-p.stop:
		return errors.New("update backend pool is closed")
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "update backend request not dispatched")
	}

	select {
	case err := <-j.errc:
		return err
	case <-ctx.Done():
		// The worker keeps running the call; its result is discarded.
		return errors.Wrap(ctx.Err(), "update backend request abandoned")
	}
}

func (p *pool) close() {
	close(p.stop)
}

func (p *pool) worker() {
	var conn caller
	defer func() {
		if conn != nil {
			conn.close()
		}
	}()

	for {
		select {
		case <-p.stop:
			return
		case j := <-p.jobs:
			if conn == nil {
				fresh, err := p.dial()
				if err != nil {
					j.errc <- errors.Wrap(err, "unable to reach update backend")
					continue
				}
				conn = fresh
			}
			err := j.run(conn)
			if err != nil {
				// The connection state is unknown after a failed call.
				p.log.WithError(err).Debug("dropping backend connection after failed call")
				conn.close()
				conn = nil
			}
			j.errc <- err
		}
	}
}
