// Package config reads and validates the agent's configuration. Snippet
// files under a conf.d directory are merged in lexical order and validated
// into a Config, built once at startup and passed by value from then on.
package config

import (
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultDir is where configuration snippets are discovered.
	DefaultDir = "/etc/updatedog/conf.d"

	// defaultGraphBase is the graph service used when none is configured.
	defaultGraphBase = "http://localhost:9876"
	// defaultRemoteBase is the lock manager used when none is configured.
	defaultRemoteBase = "http://localhost:9999"

	defaultInterval = 5 * time.Minute
	minimumInterval = 10 * time.Second
)

// Config is the validated runtime configuration.
type Config struct {
	// Interval between agent ticks.
	Interval time.Duration
	// GraphBaseURL locates the upstream graph service.
	GraphBaseURL *url.URL
	// Strategy carries the selected finalization strategy inputs.
	Strategy StrategyConfig
	// Identity carries identity inputs, resolved later against OS metadata.
	Identity IdentityConfig
}

// StrategyConfig holds the per-variant strategy parameters. Name is not
// validated here; the strategy constructor owns the recognized set.
type StrategyConfig struct {
	Name               string
	RemoteBaseURL      *url.URL
	PeriodicSchedule   string
	PeriodicLength     time.Duration
	NeverReportsSteady bool
}

// IdentityConfig holds the identity fields sourced from configuration.
type IdentityConfig struct {
	Group    string
	NodeUUID string
	Stream   string
	Platform string
	// ThrottlePermille is nil when unset; the graph client then derives a
	// bucket from the node identity.
	ThrottlePermille *uint16
}

// Read loads, merges, and validates configuration snippets from dir.
func Read(dir string) (Config, error) {
	snippets, err := readSnippets(dir)
	if err != nil {
		return Config{}, err
	}
	return validate(mergeSnippets(snippets))
}

func validate(in inputs) (Config, error) {
	cfg := Config{
		Interval: defaultInterval,
	}

	if in.interval != "" {
		interval, err := time.ParseDuration(in.interval)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid agent interval %q", in.interval)
		}
		if interval < minimumInterval {
			return Config{}, errors.Errorf("agent interval %s below minimum %s", interval, minimumInterval)
		}
		cfg.Interval = interval
	}

	cfg.GraphBaseURL = mustDefaultURL(defaultGraphBase)
	if in.graphBaseURL != "" {
		u, err := url.Parse(in.graphBaseURL)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid graph base URL %q", in.graphBaseURL)
		}
		cfg.GraphBaseURL = u
	}

	strat, err := validateStrategy(in)
	if err != nil {
		return Config{}, err
	}
	cfg.Strategy = strat

	ident, err := validateIdentity(in)
	if err != nil {
		return Config{}, err
	}
	cfg.Identity = ident

	return cfg, nil
}

func validateStrategy(in inputs) (StrategyConfig, error) {
	strat := StrategyConfig{
		Name:               in.strategy,
		PeriodicSchedule:   in.periodicSchedule,
		NeverReportsSteady: true,
	}
	if in.neverReportsSteady != nil {
		strat.NeverReportsSteady = *in.neverReportsSteady
	}

	strat.RemoteBaseURL = mustDefaultURL(defaultRemoteBase)
	if in.remoteBaseURL != "" {
		u, err := url.Parse(in.remoteBaseURL)
		if err != nil {
			return StrategyConfig{}, errors.Wrapf(err, "invalid lock manager base URL %q", in.remoteBaseURL)
		}
		strat.RemoteBaseURL = u
	}

	if in.periodicLength != "" {
		length, err := time.ParseDuration(in.periodicLength)
		if err != nil {
			return StrategyConfig{}, errors.Wrapf(err, "invalid periodic window length %q", in.periodicLength)
		}
		if length <= 0 {
			return StrategyConfig{}, errors.Errorf("periodic window length %s must be positive", length)
		}
		strat.PeriodicLength = length
	}

	return strat, nil
}

func validateIdentity(in inputs) (IdentityConfig, error) {
	ident := IdentityConfig{
		Group:    in.group,
		NodeUUID: in.nodeUUID,
		Stream:   in.stream,
		Platform: in.platform,
	}

	if in.throttlePermille != "" {
		permille, err := strconv.ParseUint(in.throttlePermille, 10, 16)
		if err != nil {
			return IdentityConfig{}, errors.Wrapf(err, "invalid throttle_permille %q", in.throttlePermille)
		}
		if permille > 1000 {
			return IdentityConfig{}, errors.Errorf("throttle_permille %d out of range 0-1000", permille)
		}
		value := uint16(permille)
		ident.ThrottlePermille = &value
	}

	return ident, nil
}

func mustDefaultURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
