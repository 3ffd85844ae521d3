package strategy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/config"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/internal/identities"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/internal/testoutput"
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/logging"
	"gotest.tools/assert"
)

func testRemote(t *testing.T, serverURL string) *remoteHTTP {
	t.Helper()
	log := testoutput.Logger(t, logging.New("strategy"))
	strat, err := newRemoteHTTP(log, config.StrategyConfig{
		Name:          "remote_http",
		RemoteBaseURL: mustURL(t, serverURL),
	}, identities.Node())
	assert.NilError(t, err)
	return strat
}

func TestRemoteHTTPGrantsOnOK(t *testing.T) {
	var gotPath string
	var gotBody lockRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NilError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	strat := testRemote(t, server.URL)
	assert.Check(t, strat.HasGreenLight(context.Background()))
	assert.Equal(t, gotPath, "/v1/pre-reboot")
	assert.Equal(t, gotBody.ClientParams.CurrentVersion, "1.0.0")
	assert.Equal(t, gotBody.ClientParams.Group, "default")
	assert.Equal(t, gotBody.ClientParams.NodeUUID, identities.NodeUUID.String())

	assert.Check(t, strat.ReportSteady(context.Background()))
	assert.Equal(t, gotPath, "/v1/steady-state")
}

func TestRemoteHTTPFailClosed(t *testing.T) {
	cases := []struct {
		name   string
		status int
	}{
		{"accepted-is-not-ok", http.StatusAccepted},
		{"forbidden", http.StatusForbidden},
		{"server-error", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			strat := testRemote(t, server.URL)
			assert.Check(t, !strat.HasGreenLight(context.Background()))
			assert.Check(t, !strat.ReportSteady(context.Background()))
		})
	}
}

func TestRemoteHTTPUnreachableIsDenial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	// Connection refused is an answer, not a failure.
	strat := testRemote(t, server.URL)
	assert.Check(t, !strat.HasGreenLight(context.Background()))
	assert.Check(t, !strat.ReportSteady(context.Background()))
}
