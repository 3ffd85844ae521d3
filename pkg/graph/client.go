package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/identity"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/release"
	"github.com/karlseguin/ccache"
	"github.com/pkg/errors"
)

const (
	// graphPath is the graph API endpoint (v1).
	graphPath = "v1/graph"

	// requestTimeout bounds one graph fetch so a hung upstream delays a
	// single tick instead of wedging the loop.
	requestTimeout = 10 * time.Second

	// cacheTTL is how long a resolved answer is reused before the upstream
	// is asked again. Errors are never cached.
	cacheTTL = 30 * time.Second

	cacheKey = "next-release"
)

// ErrVersionNotFound means the fetched graph does not contain the node's
// current version. This is a configuration or upstream-data inconsistency,
// distinct from transient network failure, and operator-actionable.
var ErrVersionNotFound = errors.New("current version not found in graph")

// Client fetches update graphs and resolves the next reachable release.
// Calls are idempotent and side-effect-free beyond the network round trip;
// retries happen by the caller's next tick, never internally.
type Client struct {
	log      logging.Logger
	endpoint *url.URL
	identity identity.Identity
	http     *http.Client
	cache    *ccache.Cache
}

// New builds a graph client for the given service base URL and identity.
func New(log logging.Logger, baseURL *url.URL, ident identity.Identity) *Client {
	return &Client{
		log:      log,
		endpoint: baseURL.JoinPath(graphPath),
		identity: ident,
		http:     &http.Client{Timeout: requestTimeout},
		cache:    ccache.New(ccache.Configure().MaxSize(16)),
	}
}

type cachedAnswer struct {
	next *release.Release
}

// FetchNext asks the upstream for the update graph and resolves the
// greatest release reachable from the current version. It returns
// (nil, nil) when the node is already at the front of its stream.
func (c *Client) FetchNext(ctx context.Context) (*release.Release, error) {
	if item := c.cache.Get(cacheKey); item != nil && !item.Expired() {
		if answer, ok := item.Value().(cachedAnswer); ok {
			c.log.Trace("graph answer served from cache")
			return cloned(answer.next), nil
		}
	}

	graph, err := c.fetchGraph(ctx)
	if err != nil {
		return nil, err
	}

	next, err := c.resolveNext(graph)
	if err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, cachedAnswer{next: cloned(next)}, cacheTTL)
	return next, nil
}

func (c *Client) fetchGraph(ctx context.Context) (*Graph, error) {
	target := *c.endpoint
	target.RawQuery = c.queryParams().Encode()
	c.log.WithField("endpoint", target.Redacted()).Trace("fetching update graph")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build graph request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "graph request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("graph request failed with status %s", resp.Status)
	}

	var graph Graph
	if err := json.NewDecoder(resp.Body).Decode(&graph); err != nil {
		return nil, errors.Wrap(err, "unable to parse graph response")
	}
	return &graph, nil
}

func (c *Client) resolveNext(graph *Graph) (*release.Release, error) {
	current := c.identity.CurrentVersion
	index, found := graph.FindVersion(current)
	if !found {
		return nil, errors.WithMessage(ErrVersionNotFound, fmt.Sprintf("version %q", current))
	}

	nexts := graph.NextReleases(index)
	c.log.WithField("count", len(nexts)).Trace("reachable release updates")

	next := release.Latest(nexts)
	if next == nil {
		c.log.Trace("no next release")
		return nil, nil
	}
	c.log.WithField("version", next.Version).Info("available updates found, selecting next update")
	return next, nil
}

func (c *Client) queryParams() url.Values {
	params := url.Values{}
	params.Set("current_version", c.identity.CurrentVersion)
	params.Set("stream", c.identity.Stream)
	params.Set("arch", c.identity.Arch)
	params.Set("platform", c.identity.Platform)
	params.Set("throttle_permille", strconv.FormatUint(uint64(c.throttleBucket()), 10))
	return params
}

// throttleBucket is the configured permille value, or a stable bucket
// derived from node UUID and current version so that unconfigured nodes
// spread evenly across the rollout.
func (c *Client) throttleBucket() uint16 {
	if c.identity.ThrottlePermille != nil {
		return *c.identity.ThrottlePermille
	}
	hash := fnv.New64a()
	hash.Write(c.identity.NodeUUID[:])
	hash.Write([]byte(c.identity.CurrentVersion))
	return uint16(hash.Sum64()%1000) + 1
}

func cloned(r *release.Release) *release.Release {
	if r == nil {
		return nil
	}
	dup := r.Clone()
	return &dup
}
