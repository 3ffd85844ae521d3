package sigcontext

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// WithSignalCancel derives a context that cancels itself when one of the
// given signals arrives. The returned cancel releases the signal handlers
// and must be called; once it runs, a repeated signal falls back to the go
// runtime's default handling (a second SIGINT terminates the process).
func WithSignalCancel(ctx context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigctx, ctxcancel := context.WithCancel(ctx)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	var once sync.Once
	cancel := func() {
		ctxcancel()
		once.Do(func() {
			signal.Stop(sigchan)
			close(sigchan)
		})
	}

	go func() {
		defer ctxcancel()
		for {
			select {
			case <-sigctx.Done():
				return
			case _, ok := <-sigchan:
				if !ok {
					return
				}
				ctxcancel()
			}
		}
	}()

	return sigctx, cancel
}
