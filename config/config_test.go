package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	afs := afero.NewMemMapFs()

	cfg, err := LoadConfig(afs, "")
	require.NoError(t, err)

	require.Equal(t, uint8(16), cfg.Audit.GapMask)
	require.Equal(t, OverlapPolicyExclude, cfg.Audit.OverlapPolicy)
	require.Equal(t, 50, cfg.Azure.PageSize)
	require.Equal(t, ".", cfg.Azure.CacheDir)
	require.True(t, cfg.UpdateCheckEnabled)
	require.Contains(t, cfg.Audit.IgnoredSubnetNames, "jenkinsarm-snet")
	require.Contains(t, cfg.Audit.ExcludedVNetCIDRs, "10.0.0.0/16")
}

func TestLoadConfigPartialFileOverlaysDefaults(t *testing.T) {
	afs := afero.NewMemMapFs()
	contents := `
{
	// only override the audit section
	audit: {
		gap_mask: 24
		overlap_policy: keep-one
		start_address: 10.8.0.0
	}
}
`
	require.NoError(t, afero.WriteFile(afs, "/etc/vnetaudit/config.hjson", []byte(contents), 0o644))

	cfg, err := LoadConfig(afs, "/etc/vnetaudit/config.hjson")
	require.NoError(t, err)

	require.Equal(t, uint8(24), cfg.Audit.GapMask)
	require.Equal(t, OverlapPolicyKeepOne, cfg.Audit.OverlapPolicy)
	require.Equal(t, "10.8.0.0", cfg.Audit.StartAddress)

	// untouched sections keep their defaults
	require.Equal(t, 500, cfg.Azure.RequestDelayMs)
	require.Equal(t, 500_000, cfg.Azure.MaxResponseBytes)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"gap mask too long", `{ audit: { gap_mask: 48 } }`},
		{"unknown overlap policy", `{ audit: { overlap_policy: zap } }`},
		{"page size zero", `{ azure: { page_size: 0 } }`},
		{"malformed excluded cidr", `{ audit: { excluded_vnet_cidrs: ["10.0.0.0"] } }`},
		{"bad start address", `{ audit: { start_address: "10.0.0" } }`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			afs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(afs, "/config.hjson", []byte(test.contents), 0o644))

			_, err := LoadConfig(afs, "/config.hjson")
			require.Error(t, err)
			require.ErrorIs(t, err, errReadingConfigFile)
		})
	}
}

func TestExcludedCIDRs(t *testing.T) {
	cfg := GetDefaultConfig()
	cidrs, err := cfg.ExcludedCIDRs()
	require.NoError(t, err)
	require.Len(t, cidrs, 2)
	require.Equal(t, "10.0.0.0/16", cidrs[0].String())
}

func TestStartAddr(t *testing.T) {
	cfg := GetDefaultConfig()
	addr, err := cfg.StartAddr()
	require.NoError(t, err)
	require.EqualValues(t, 0x0A000000, addr)
}
