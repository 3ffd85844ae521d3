// Package identity builds the node's self-description sent with every
// outbound request. It is computed once at startup from OS metadata and
// configuration and never changes afterwards.
package identity

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/config"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultGroup    = "default"
	defaultStream   = "stable"
	defaultPlatform = "metal"

	osReleasePath = "/etc/os-release"
	machineIDPath = "/etc/machine-id"
)

// appNamespace scopes derived node UUIDs to this application, so the same
// machine-id yields distinct UUIDs across unrelated tools.
var appNamespace = uuid.MustParse("de612916-7c03-4b52-89a1-e4c205dcfb5b")

// Identity describes this node to the graph service and the lock manager.
type Identity struct {
	// Arch is the machine architecture, in GOARCH notation.
	Arch string
	// CurrentVersion is the running OS version.
	CurrentVersion string
	// Group is the fleet update group.
	Group string
	// NodeUUID uniquely and stably identifies this node.
	NodeUUID uuid.UUID
	// Platform names the runtime platform flavor.
	Platform string
	// Stream is the update stream followed by this node.
	Stream string
	// ThrottlePermille is the rollout bucket, 0 (never) to 1000
	// (unlimited); nil when left for the server to derive.
	ThrottlePermille *uint16
}

// Load resolves the node identity from configuration and host metadata.
func Load(cfg config.IdentityConfig) (Identity, error) {
	currentVersion, err := currentVersionFromHost()
	if err != nil {
		return Identity{}, errors.WithMessage(err, "unable to determine current OS version")
	}

	nodeUUID, err := resolveNodeUUID(cfg.NodeUUID)
	if err != nil {
		return Identity{}, err
	}

	ident := Identity{
		Arch:             runtime.GOARCH,
		CurrentVersion:   currentVersion,
		Group:            orDefault(cfg.Group, defaultGroup),
		NodeUUID:         nodeUUID,
		Platform:         orDefault(cfg.Platform, defaultPlatform),
		Stream:           orDefault(cfg.Stream, defaultStream),
		ThrottlePermille: cfg.ThrottlePermille,
	}
	return ident, nil
}

func resolveNodeUUID(configured string) (uuid.UUID, error) {
	if configured != "" {
		id, err := uuid.Parse(configured)
		if err != nil {
			return uuid.UUID{}, errors.Wrapf(err, "invalid configured node_uuid %q", configured)
		}
		return id, nil
	}

	raw, err := os.ReadFile(machineIDPath)
	if err != nil {
		return uuid.UUID{}, errors.Wrapf(err, "unable to read %s", machineIDPath)
	}
	return DeriveNodeUUID(strings.TrimSpace(string(raw))), nil
}

// DeriveNodeUUID maps a machine ID to a stable application-scoped UUID.
func DeriveNodeUUID(machineID string) uuid.UUID {
	return uuid.NewSHA1(appNamespace, []byte(machineID))
}

func currentVersionFromHost() (string, error) {
	fp, err := os.Open(osReleasePath)
	if err != nil {
		return "", errors.Wrapf(err, "unable to open %s", osReleasePath)
	}
	defer fp.Close()
	return versionFromOSRelease(fp)
}

// versionFromOSRelease extracts VERSION_ID from os-release formatted input.
func versionFromOSRelease(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found || key != "VERSION_ID" {
			continue
		}
		value = strings.Trim(value, `"'`)
		if value == "" {
			break
		}
		return value, nil
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrap(err, "unable to scan os-release")
	}
	return "", errors.New("no VERSION_ID in os-release")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
