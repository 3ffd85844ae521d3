package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/agent"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/backend"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/config"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/graph"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/identity"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/sigcontext"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/strategy"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/workgroup"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logging.New("main")

	app := &cli.App{
		Name:  "updatedog",
		Usage: "host agent managing OS updates against a fleet-wide policy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Value: config.DefaultDir,
				Usage: "directory holding configuration snippets",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "agent",
				Usage:  "run the long-lived update agent",
				Action: runAgent,
			},
			{
				Name:   "check-update",
				Usage:  "query the graph service once and report the next release",
				Action: runCheckUpdate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("updatedog stopped")
	}
}

// setup resolves configuration and identity; both are fatal on error and
// immutable afterwards.
func setup(c *cli.Context, log logging.Logger) (config.Config, identity.Identity, error) {
	if c.Bool("debug") {
		logging.Set(logging.Level("debug"))
	}

	if logging.Debuggable {
		log.Info("low-level logging.Debuggable is enabled in this build")
		log.Warn("logging.Debuggable produces large volumes of logs")
	}

	cfg, err := config.Read(c.String("config-dir"))
	if err != nil {
		return config.Config{}, identity.Identity{}, errors.WithMessage(err, "configuration error")
	}

	ident, err := identity.Load(cfg.Identity)
	if err != nil {
		return config.Config{}, identity.Identity{}, errors.WithMessage(err, "identity error")
	}
	log.WithField("version", ident.CurrentVersion).WithField("group", ident.Group).Debug("node identity resolved")

	return cfg, ident, nil
}

func runAgent(c *cli.Context) error {
	log := logging.New("agent")
	cfg, ident, err := setup(c, log)
	if err != nil {
		return err
	}

	strat, err := strategy.New(logging.New("strategy"), cfg.Strategy, ident)
	if err != nil {
		return errors.WithMessage(err, "configuration error")
	}

	graphClient := graph.New(logging.New("graph"), cfg.GraphBaseURL, ident)
	be := backend.New(logging.New("backend"))
	defer be.Close()

	a, err := agent.New(log, strat, graphClient, be, cfg.Interval)
	if err != nil {
		return errors.WithMessage(err, "could not set up agent")
	}

	ctx, cancel := sigcontext.WithSignalCancel(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	group := workgroup.WithContext(ctx)
	group.Work(a.Run)

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.WithError(err).Warn("unable to notify readiness")
	} else if ok {
		log.Debug("readiness notified to service manager")
	}

	return errors.WithMessage(group.Wait(), "run error")
}

func runCheckUpdate(c *cli.Context) error {
	log := logging.New("check-update")
	cfg, ident, err := setup(c, log)
	if err != nil {
		return err
	}

	ctx, cancel := sigcontext.WithSignalCancel(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient := graph.New(logging.New("graph"), cfg.GraphBaseURL, ident)
	start := time.Now()
	next, err := graphClient.FetchNext(ctx)
	if err != nil {
		return errors.WithMessage(err, "update check failed")
	}
	log.WithField("elapsed", time.Since(start)).Debug("update check complete")

	if next == nil {
		fmt.Println("no updates available")
		return nil
	}
	fmt.Printf("next update: %s\n", next.Version)
	return nil
}
