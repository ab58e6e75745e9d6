package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudkiwi/vnetaudit/audit"
)

func TestSummarize(t *testing.T) {
	rows := []audit.ReportRow{
		{Gap: "Sub0", SubnetCIDR: "10.0.0.0/24", UsableHosts: 251, IPConfigCount: 100},
		{Gap: "-gap-", SubnetCIDR: "10.0.1.0/24", UsableHosts: 251},
		{Gap: "Sub1", SubnetCIDR: "10.0.2.0/25", UsableHosts: 123, IPConfigCount: 87},
		{Gap: "None", SubnetCIDR: "none", UsableHosts: 0},
	}

	summary, err := Summarize(rows)
	require.NoError(t, err)

	require.Equal(t, 3, summary.SubnetCount)
	require.Equal(t, 1, summary.GapCount)
	require.EqualValues(t, 374, summary.AllocatedHosts)
	require.EqualValues(t, 251, summary.UnusedHosts)
	require.EqualValues(t, 187, summary.AttachedNICs)
	require.InDelta(t, 50.0, summary.UtilizationPct, 0.01)
	require.InDelta(t, 187.0, summary.MeanSubnetHosts, 0.01)
	require.InDelta(t, 187.0, summary.MedianSubnetHosts, 0.01)
}

func TestSummarizeEmpty(t *testing.T) {
	summary, err := Summarize(nil)
	require.NoError(t, err)
	require.Zero(t, summary.SubnetCount)
	require.Zero(t, summary.UtilizationPct)
}

func TestWriteSummary(t *testing.T) {
	summary := Summary{
		SubnetCount:    159,
		GapCount:       42,
		AllocatedHosts: 125000,
		UnusedHosts:    31000,
		AttachedNICs:   61000,
		UtilizationPct: 48.8,
	}

	var out strings.Builder
	require.NoError(t, WriteSummary(&out, summary))

	require.Contains(t, out.String(), "125,000")
	require.Contains(t, out.String(), "48.8%")
	require.Contains(t, out.String(), "Subnets:")
}
