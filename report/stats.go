package report

import (
	"io"
	"strings"

	"github.com/montanaflynn/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cloudkiwi/vnetaudit/audit"
)

// Summary aggregates an audit report into the numbers people actually ask
// for: how much address space is allocated, how much of it sits idle and how
// big a typical subnet is.
type Summary struct {
	SubnetCount       int
	GapCount          int
	AllocatedHosts    uint64
	UnusedHosts       uint64
	AttachedNICs      uint64
	UtilizationPct    float64
	MeanSubnetHosts   float64
	MedianSubnetHosts float64
}

// Summarize computes the summary over a full report, splitting real subnet
// rows from synthesized gap rows. Placeholder rows for subnets without a
// CIDR carry no hosts and are counted as subnets only.
func Summarize(rows []audit.ReportRow) (Summary, error) {
	var summary Summary
	var subnetHosts []float64

	for i := range rows {
		row := &rows[i]
		if row.Gap == "-gap-" {
			summary.GapCount++
			summary.UnusedHosts += row.UsableHosts
			continue
		}

		summary.SubnetCount++
		summary.AllocatedHosts += row.UsableHosts
		summary.AttachedNICs += uint64(row.IPConfigCount)
		if row.SubnetCIDR != "none" {
			subnetHosts = append(subnetHosts, float64(row.UsableHosts))
		}
	}

	if summary.AllocatedHosts > 0 {
		summary.UtilizationPct = float64(summary.AttachedNICs) / float64(summary.AllocatedHosts) * 100
	}

	if len(subnetHosts) > 0 {
		mean, err := stats.Mean(subnetHosts)
		if err != nil {
			return Summary{}, err
		}
		median, err := stats.Median(subnetHosts)
		if err != nil {
			return Summary{}, err
		}
		summary.MeanSubnetHosts = mean
		summary.MedianSubnetHosts = median
	}

	return summary, nil
}

// WriteSummary prints the summary with thousands separators.
func WriteSummary(w io.Writer, summary Summary) error {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	p.Fprintf(&b, "Subnets:           %d\n", summary.SubnetCount)
	p.Fprintf(&b, "Gaps:              %d\n", summary.GapCount)
	p.Fprintf(&b, "Allocated hosts:   %d\n", summary.AllocatedHosts)
	p.Fprintf(&b, "Unused gap hosts:  %d\n", summary.UnusedHosts)
	p.Fprintf(&b, "Attached NICs:     %d\n", summary.AttachedNICs)
	p.Fprintf(&b, "Utilization:       %.1f%%\n", summary.UtilizationPct)
	p.Fprintf(&b, "Mean subnet size:  %.1f hosts\n", summary.MeanSubnetHosts)
	p.Fprintf(&b, "Median subnet:     %.1f hosts\n", summary.MedianSubnetHosts)

	_, err := io.WriteString(w, b.String())
	return err
}
