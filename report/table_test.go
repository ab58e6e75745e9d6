package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloudkiwi/vnetaudit/audit"
	"github.com/cloudkiwi/vnetaudit/netcalc"
)

func TestFormatOverlapsTable(t *testing.T) {
	conflicts := []audit.Conflict{
		{
			CIDR: netcalc.MustParse("10.0.0.0/16"),
			VNets: []audit.VNetInfo{
				{VNetName: "vnet-a", SubscriptionName: "Production", Location: "australiaeast", SubnetCount: 4},
				{VNetName: "vnet-b", SubscriptionName: "Development", Location: "australiaeast", SubnetCount: 1},
			},
		},
	}

	rendered := FormatOverlapsTable(conflicts).String()
	require.Contains(t, rendered, "10.0.0.0/16")
	require.Contains(t, rendered, "vnet-a")
	require.Contains(t, rendered, "vnet-b")
	require.Contains(t, rendered, "Conflicting CIDR")
}

func TestFormatVNetsTable(t *testing.T) {
	vnets := []audit.VNetInfo{
		{
			VNetName:         "prod-vnet",
			VNetCIDRs:        []netcalc.Cidr{netcalc.MustParse("10.2.0.0/16"), netcalc.MustParse("10.3.0.0/16")},
			SubscriptionName: "Production",
			Location:         "australiaeast",
			SubnetCount:      12,
		},
		{
			VNetName:         "hub-vnet",
			VNetCIDRs:        []netcalc.Cidr{netcalc.MustParse("10.0.0.0/16")},
			SubscriptionName: "Platform",
			Location:         "australiaeast",
			SubnetCount:      3,
		},
	}

	rendered := FormatVNetsTable(vnets, []netcalc.Cidr{netcalc.MustParse("10.0.0.0/16")}).String()
	require.Contains(t, rendered, "prod-vnet")
	require.Contains(t, rendered, "10.2.0.0/16,10.3.0.0/16")
	require.Contains(t, rendered, "Address Space")
	require.Contains(t, rendered, "excluded")
}
