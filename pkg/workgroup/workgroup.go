package workgroup

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Workgroup runs related workers under a shared context. The first worker
// error is retained and reported by Wait; remaining workers are expected to
// observe the context and wind down.
type Workgroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
}

func WithContext(ctx context.Context) *Workgroup {
	grpctx, cancel := context.WithCancel(ctx)
	return &Workgroup{
		ctx:    grpctx,
		cancel: cancel,
	}
}

// Work starts fn as a worker. A worker returning a non-nil error cancels the
// group's context for its peers.
func (g *Workgroup) Work(fn func(context.Context) error) {
	g.group.Go(func() error {
		err := fn(g.ctx)
		if err != nil {
			g.cancel()
		}
		return err
	})
}

// Wait blocks until all workers return and provides the first error, if any.
func (g *Workgroup) Wait() error {
	defer g.cancel()
	return g.group.Wait()
}
