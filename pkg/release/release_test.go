package release

import (
	"fmt"
	"testing"

	"gotest.tools/assert"
)

func TestCompareOrder(t *testing.T) {
	ordered := []Release{
		{Version: "aardvark"},
		{Version: "zebra"},
		{Version: "0.9.9"},
		{Version: "1.0.0"},
		{Version: "1.0.1"},
		{Version: "1.1.0"},
		{Version: "v1.1.1"},
		{Version: "2.0.0"},
	}

	for i := range ordered {
		for j := range ordered {
			a, b := ordered[i], ordered[j]
			t.Run(fmt.Sprintf("%s-vs-%s", a.Version, b.Version), func(t *testing.T) {
				c := Compare(a, b)
				switch {
				case i < j:
					assert.Check(t, c < 0, "expected %q < %q, got %d", a.Version, b.Version, c)
				case i > j:
					assert.Check(t, c > 0, "expected %q > %q, got %d", a.Version, b.Version, c)
				default:
					assert.Check(t, c == 0)
				}
				// Antisymmetry.
				assert.Check(t, Compare(b, a) == -c)
			})
		}
	}
}

func TestCompareTransitive(t *testing.T) {
	rels := []Release{
		{Version: "1.0.0"},
		{Version: "1.0.0+build.7"},
		{Version: "snapshot"},
		{Version: "1.2.0"},
		{Version: "v1.2.0"},
	}
	for _, a := range rels {
		for _, b := range rels {
			for _, c := range rels {
				if Compare(a, b) <= 0 && Compare(b, c) <= 0 {
					assert.Check(t, Compare(a, c) <= 0,
						"order not transitive across %q, %q, %q", a.Version, b.Version, c.Version)
				}
			}
		}
	}
}

func TestLatest(t *testing.T) {
	cases := []struct {
		name     string
		rels     []Release
		expected string
	}{
		{"empty", nil, ""},
		{"single", []Release{{Version: "1.0.0"}}, "1.0.0"},
		{"picks-greatest", []Release{
			{Version: "1.1.0"},
			{Version: "2.0.0"},
			{Version: "1.9.9"},
		}, "2.0.0"},
		{"semver-beats-opaque", []Release{
			{Version: "vnext"},
			{Version: "0.0.1"},
		}, "0.0.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			top := Latest(tc.rels)
			if tc.expected == "" {
				assert.Check(t, top == nil)
				return
			}
			assert.Assert(t, top != nil)
			assert.Equal(t, top.Version, tc.expected)
		})
	}
}

func TestCloneIndependent(t *testing.T) {
	orig := Release{Version: "1.0.0", Payload: "sha512-aaaa"}
	dup := orig.Clone()
	dup.Version = "9.9.9"
	assert.Equal(t, orig.Version, "1.0.0")
}
