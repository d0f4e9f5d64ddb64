package build

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStatusOutdated verifies that outdatedness is plain string inequality.
func TestStatusOutdated(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		installed string
		latest    string
		outdated  bool
	}{
		{"identical", "5.0-19000", "5.0-19000", false},
		{"newer remote", "5.0-19000", "5.0-19500", true},
		{"older remote still counts", "5.0-19500", "5.0-19000", true},
		{"padding difference counts", "5.0-019000", "5.0-19000", true},
		{"empty installed", "", "5.0-19000", true},
		{"both empty", "", "", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := &Status{Installed: tc.installed, Latest: Release{Version: tc.latest}}
			require.Equal(t, tc.outdated, s.Outdated())
		})
	}
}

// TestVariantString covers the variant names used in logs.
func TestVariantString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "mainline", VariantMainline.String())
	require.Equal(t, "ishiiruka", VariantIshiiruka.String())
	require.NotEmpty(t, Variant(42).String())
}
