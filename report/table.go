package report

import (
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cloudkiwi/vnetaudit/audit"
	"github.com/cloudkiwi/vnetaudit/netcalc"
)

func newTable(headers []string, data [][]string) *table.Table {
	re := lipgloss.NewRenderer(os.Stdout)
	baseStyle := re.NewStyle().Padding(0, 1)
	headerStyle := baseStyle.Foreground(lipgloss.Color("252")).Bold(true)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(re.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}

			even := row%2 == 0

			if even {
				return baseStyle.Foreground(lipgloss.Color("245"))
			}
			return baseStyle.Foreground(lipgloss.Color("252"))
		})
}

// FormatOverlapsTable renders address conflicts, one line per claimant with
// the conflicted block repeated on the first claimant only.
func FormatOverlapsTable(conflicts []audit.Conflict) *table.Table {
	var data [][]string

	for _, conflict := range conflicts {
		for i, vnet := range conflict.VNets {
			cidr := ""
			if i == 0 {
				cidr = conflict.CIDR.String()
			}
			data = append(data, []string{
				cidr,
				vnet.VNetName,
				vnet.SubscriptionName,
				vnet.Location,
				strconv.Itoa(vnet.SubnetCount),
			})
		}
	}

	return newTable([]string{"Conflicting CIDR", "VNet", "Subscription", "Location", "Subnets"}, data)
}

// FormatVNetsTable renders the per-VNet inventory summary. VNets advertising
// one of the excluded blocks are marked, they are dropped from the gap report
// under the default overlap policy.
func FormatVNetsTable(vnets []audit.VNetInfo, excluded []netcalc.Cidr) *table.Table {
	excludedSet := make(map[netcalc.Cidr]struct{}, len(excluded))
	for _, cidr := range excluded {
		excludedSet[cidr] = struct{}{}
	}

	var data [][]string
	for _, vnet := range vnets {
		mark := ""
		for _, cidr := range vnet.VNetCIDRs {
			if _, hit := excludedSet[cidr]; hit {
				mark = "excluded"
				break
			}
		}
		data = append(data, []string{
			vnet.VNetName,
			audit.FormatVNetCIDRs(vnet.VNetCIDRs),
			vnet.SubscriptionName,
			vnet.Location,
			strconv.Itoa(vnet.SubnetCount),
			mark,
		})
	}

	return newTable([]string{"VNet", "Address Space", "Subscription", "Location", "Subnets", ""}, data)
}
