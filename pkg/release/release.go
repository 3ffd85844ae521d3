// Package release holds the update payload identifier shared by the graph
// client, the update backend, and the agent, together with the total order
// used to select among reachable updates.
package release

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Release identifies one OS update payload offered by the graph service.
// Values are small and copied freely; multiple components may hold the same
// release at once.
type Release struct {
	// Version is the release's version string, usually semver.
	Version string
	// Payload is the opaque payload identifier carried in graph metadata.
	Payload string
}

// Clone returns an independent copy of the release.
func (r Release) Clone() Release {
	return r
}

func (r Release) String() string {
	return r.Version
}

// Compare orders two releases. Semver-versioned releases order by semantic
// version; a semver release always outranks a non-semver one; non-semver
// pairs order lexically. Distinct version strings never compare equal, so
// the order is total and selection is deterministic.
func Compare(a, b Release) int {
	av, bv := canonical(a.Version), canonical(b.Version)
	avOK, bvOK := semver.IsValid(av), semver.IsValid(bv)

	switch {
	case avOK && !bvOK:
		return 1
	case !avOK && bvOK:
		return -1
	case avOK && bvOK:
		if c := semver.Compare(av, bv); c != 0 {
			return c
		}
	}
	// Equal semantic versions (eg. differing build metadata) and non-semver
	// pairs fall through to a lexical tiebreak to keep the order total.
	return strings.Compare(a.Version, b.Version)
}

// Less reports whether a orders before b.
func Less(a, b Release) bool {
	return Compare(a, b) < 0
}

// Latest picks the greatest release of the set, or nil for an empty set.
func Latest(rels []Release) *Release {
	var top *Release
	for i := range rels {
		if top == nil || Compare(rels[i], *top) > 0 {
			top = &rels[i]
		}
	}
	if top == nil {
		return nil
	}
	picked := top.Clone()
	return &picked
}

func canonical(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}
