package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/config"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/identity"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// preRebootPath grants the reboot green light (v1).
	preRebootPath = "v1/pre-reboot"
	// steadyStatePath confirms steady state (v1).
	steadyStatePath = "v1/steady-state"

	lockRequestTimeout = 10 * time.Second
)

// remoteHTTP defers both questions to a fleet-wide lock manager. Exactly an
// HTTP 200 is a positive answer; any other status, transport error, or
// malformed response means "not now". The node must never reboot merely
// because the lock manager was unreachable.
type remoteHTTP struct {
	log       logging.Logger
	preReboot *url.URL
	steady    *url.URL
	params    clientParams
	http      *http.Client
}

// clientParams is the request body identifying this node to the manager.
type clientParams struct {
	CurrentVersion string `json:"current_version"`
	NodeUUID       string `json:"node_uuid"`
	Group          string `json:"group"`
}

type lockRequest struct {
	ClientParams clientParams `json:"client_params"`
}

func newRemoteHTTP(log logging.Logger, cfg config.StrategyConfig, ident identity.Identity) (*remoteHTTP, error) {
	if cfg.RemoteBaseURL == nil {
		return nil, errors.New("remote_http strategy requires a lock manager base URL")
	}
	return &remoteHTTP{
		log:       log,
		preReboot: cfg.RemoteBaseURL.JoinPath(preRebootPath),
		steady:    cfg.RemoteBaseURL.JoinPath(steadyStatePath),
		params: clientParams{
			CurrentVersion: ident.CurrentVersion,
			NodeUUID:       ident.NodeUUID.String(),
			Group:          ident.Group,
		},
		http: &http.Client{Timeout: lockRequestTimeout},
	}, nil
}

func (s *remoteHTTP) Name() string {
	return "remote_http"
}

func (s *remoteHTTP) ReportSteady(ctx context.Context) bool {
	s.log.Trace("reporting steady state to lock manager")
	return s.postPositive(ctx, s.steady)
}

func (s *remoteHTTP) HasGreenLight(ctx context.Context) bool {
	s.log.Trace("requesting reboot green light from lock manager")
	return s.postPositive(ctx, s.preReboot)
}

// postPositive asks one manager endpoint for permission. All ambiguity is
// a negative answer, never an error.
func (s *remoteHTTP) postPositive(ctx context.Context, endpoint *url.URL) bool {
	body, err := json.Marshal(lockRequest{ClientParams: s.params})
	if err != nil {
		s.log.WithError(err).Warn("unable to encode lock manager request")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		s.log.WithError(err).Warn("unable to build lock manager request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		s.log.WithError(err).WithField("endpoint", endpoint.Redacted()).Warn("lock manager unreachable, answering no")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.WithFields(logrus.Fields{
			"endpoint": endpoint.Redacted(),
			"status":   resp.Status,
		}).Trace("lock manager denied request")
		return false
	}
	return true
}
