// Package identities provides canned node identities for tests.
package identities

import (
	"github.com/amazonlinux/bottlerocket/updatedog/pkg/identity"
	"github.com/google/uuid"
)

// NodeUUID is the stable UUID used by test identities.
var NodeUUID = uuid.MustParse("3e97e3b9-7491-4621-8bd0-e8eb5ea9b404")

type option func(*identity.Identity)

// Node provides a plausible node identity, adjusted by any options.
func Node(opts ...option) identity.Identity {
	ident := identity.Identity{
		Arch:           "amd64",
		CurrentVersion: "1.0.0",
		Group:          "default",
		NodeUUID:       NodeUUID,
		Platform:       "metal",
		Stream:         "stable",
	}
	for _, opt := range opts {
		opt(&ident)
	}
	return ident
}

// WithCurrentVersion overrides the identity's running OS version.
func WithCurrentVersion(version string) option {
	return func(i *identity.Identity) {
		i.CurrentVersion = version
	}
}

// WithThrottle pins the identity's rollout bucket.
func WithThrottle(permille uint16) option {
	return func(i *identity.Identity) {
		i.ThrottlePermille = &permille
	}
}
