package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// snippet is one TOML configuration fragment. Fields are pointers so a
// later snippet only overrides what it actually sets.
type snippet struct {
	Agent    *agentSnippet    `toml:"agent"`
	Graph    *graphSnippet    `toml:"graph"`
	Updates  *updatesSnippet  `toml:"updates"`
	Identity *identitySnippet `toml:"identity"`
}

type agentSnippet struct {
	// Interval between agent ticks, as a duration string.
	Interval *string `toml:"interval"`
}

type graphSnippet struct {
	// BaseURL of the upstream graph service.
	BaseURL *string `toml:"base_url"`
}

type updatesSnippet struct {
	// Strategy name: immediate|never|periodic|remote_http.
	Strategy   *string               `toml:"strategy"`
	RemoteHTTP *remoteHTTPSnippet    `toml:"remote_http"`
	Periodic   *periodicSnippet      `toml:"periodic"`
	Never      *neverStrategySnippet `toml:"never"`
}

type remoteHTTPSnippet struct {
	// BaseURL of the remote lock manager.
	BaseURL *string `toml:"base_url"`
}

type periodicSnippet struct {
	// Schedule is a cron expression opening a finalization window.
	Schedule *string `toml:"schedule"`
	// Length of each window, as a duration string.
	Length *string `toml:"length"`
}

type neverStrategySnippet struct {
	ReportSteady *bool `toml:"report_steady"`
}

type identitySnippet struct {
	Group            *string `toml:"group"`
	NodeUUID         *string `toml:"node_uuid"`
	Stream           *string `toml:"stream"`
	Platform         *string `toml:"platform"`
	ThrottlePermille *string `toml:"throttle_permille"`
}

// readSnippets loads every *.toml fragment under dir in lexical order. A
// missing directory is not an error; the node then runs on defaults.
func readSnippets(dir string) ([]snippet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "unable to read config directory %q", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	snippets := make([]snippet, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read config snippet %q", path)
		}
		var snip snippet
		if err := toml.Unmarshal(raw, &snip); err != nil {
			return nil, errors.Wrapf(err, "unable to parse config snippet %q", path)
		}
		snippets = append(snippets, snip)
	}
	return snippets, nil
}

// inputs is the merged, not yet validated, configuration.
type inputs struct {
	interval           string
	graphBaseURL       string
	strategy           string
	remoteBaseURL      string
	periodicSchedule   string
	periodicLength     string
	neverReportsSteady *bool
	group              string
	nodeUUID           string
	stream             string
	platform           string
	throttlePermille   string
}

// mergeSnippets folds fragments in order; for each field the last snippet
// that sets it wins.
func mergeSnippets(snippets []snippet) inputs {
	var in inputs
	for _, snip := range snippets {
		if snip.Agent != nil {
			setString(&in.interval, snip.Agent.Interval)
		}
		if snip.Graph != nil {
			setString(&in.graphBaseURL, snip.Graph.BaseURL)
		}
		if snip.Updates != nil {
			setString(&in.strategy, snip.Updates.Strategy)
			if snip.Updates.RemoteHTTP != nil {
				setString(&in.remoteBaseURL, snip.Updates.RemoteHTTP.BaseURL)
			}
			if snip.Updates.Periodic != nil {
				setString(&in.periodicSchedule, snip.Updates.Periodic.Schedule)
				setString(&in.periodicLength, snip.Updates.Periodic.Length)
			}
			if snip.Updates.Never != nil && snip.Updates.Never.ReportSteady != nil {
				v := *snip.Updates.Never.ReportSteady
				in.neverReportsSteady = &v
			}
		}
		if snip.Identity != nil {
			setString(&in.group, snip.Identity.Group)
			setString(&in.nodeUUID, snip.Identity.NodeUUID)
			setString(&in.stream, snip.Identity.Stream)
			setString(&in.platform, snip.Identity.Platform)
			setString(&in.throttlePermille, snip.Identity.ThrottlePermille)
		}
	}
	return in
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
