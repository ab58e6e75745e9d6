package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cloudkiwi/vnetaudit/audit"
)

// csvHeader matches the long-standing report layout that downstream
// spreadsheets key on, including its quirks: the host count column has no
// header of its own.
const csvHeader = ` "cnt",   "gap",     "subnet_cidr", "broadcast",      "subnet_name",     "subscription_name",           "vnet_cidr",           "vnet_name",               "location",    "nsg",       "dns",       "subscription_id"`

// FormatField quotes a value and right-aligns it to the given width. Values
// wider than the field are emitted unpadded rather than truncated.
func FormatField(value string, width int) string {
	quoted := `"` + value + `"`
	if len(quoted) >= width {
		return quoted
	}
	return strings.Repeat(" ", width-len(quoted)) + quoted
}

// WriteCSV renders audit rows as fixed-width CSV. Every field is quoted and
// padded so the raw file is readable in a terminal as well as a spreadsheet.
func WriteCSV(w io.Writer, rows []audit.ReportRow) error {
	if _, err := fmt.Fprintln(w, csvHeader); err != nil {
		return err
	}
	for i := range rows {
		if _, err := fmt.Fprintln(w, formatCSVRow(&rows[i])); err != nil {
			return err
		}
	}
	return nil
}

func formatCSVRow(row *audit.ReportRow) string {
	hostCount := fmt.Sprintf("%d/%d_vms", row.IPConfigCount, row.UsableHosts)

	fields := []string{
		FormatField(strconv.Itoa(row.Index), 6),
		FormatField(row.Gap, 8),
		FormatField(row.SubnetCIDR, 18),
		FormatField(hostCount, 12),
		FormatField(row.Broadcast+"_br", 19),
		FormatField(row.SubnetName, 24),
		FormatField(row.SubscriptionName, 21),
		FormatField(row.VNetCIDR+"_vnet", 24),
		FormatField(row.VNetName, 30),
		FormatField(row.Location, 16),
		FormatField(row.NSG, 13),
		FormatField(row.DNS, 13),
		FormatField(row.SubscriptionID, 39),
	}
	return strings.Join(fields, ",")
}
