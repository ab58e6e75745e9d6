package audit

import (
	"errors"
	"fmt"
	"strings"

	zlog "github.com/cloudkiwi/vnetaudit/logger"

	"github.com/cloudkiwi/vnetaudit/inventory"
	"github.com/cloudkiwi/vnetaudit/netcalc"
)

var (
	ErrRecordsOutOfOrder = errors.New("subnet starts before the expected next address, input is not sorted or arithmetic is broken")
	ErrGapDoesNotFit     = errors.New("no block fits in the gap below the next subnet")
	ErrGapOutsideVNet    = errors.New("gap block reaches past its VNet's broadcast address")
)

// DefaultGapMask is the starting block size for synthesized gap rows.
const DefaultGapMask uint8 = 28

// ReportRow is one line of the audit report, either a real subnet or a
// synthesized gap. String fields use "None" sentinels rather than empty
// strings so the fixed-width output stays scannable.
type ReportRow struct {
	Index            int
	Gap              string
	SubnetCIDR       string
	Broadcast        string
	UsableHosts      uint64
	SubnetName       string
	SubscriptionName string
	VNetCIDR         string
	VNetName         string
	Location         string
	NSG              string
	DNS              string
	SubscriptionID   string
	IPConfigCount    uint32
}

// GapFinder walks subnet records in address order and reports the unused
// ranges between them. Two pieces of state thread across records: the address
// right after the last allocated block, and the CIDR of the last VNet seen.
type GapFinder struct {
	nextAddr     uint32
	previousVNet netcalc.Cidr
	defaultMask  uint8
}

// NewGapFinder starts the walk at startAddr. Gap blocks default to
// defaultMask and shrink from there as alignment and fit require.
func NewGapFinder(startAddr uint32, defaultMask uint8) *GapFinder {
	return &GapFinder{nextAddr: startAddr, defaultMask: defaultMask}
}

// Process runs the walk over records already sorted ascending by subnet CIDR
// and returns the full report. Any invariant violation aborts the whole
// report, a partial result would silently misreport the address space.
func (g *GapFinder) Process(records []inventory.Subnet) ([]ReportRow, error) {
	rows := make([]ReportRow, 0, len(records))
	for i := range records {
		recordRows, err := g.ProcessRecord(&records[i], i)
		if err != nil {
			return nil, err
		}
		rows = append(rows, recordRows...)
	}
	return rows, nil
}

// ProcessRecord emits the rows for one record: zero or more gap rows for the
// unused range before it, then the record's own row. index is the record's
// position in the sorted input.
func (g *GapFinder) ProcessRecord(s *inventory.Subnet, index int) ([]ReportRow, error) {
	logger := zlog.GetLogger()

	if s.SubnetCIDR == nil {
		logger.Warn().Str("subnet", s.SubnetName).Msg("subnet has no CIDR, emitting placeholder row")
		return []ReportRow{degenerateRow(s, index)}, nil
	}
	subnet := *s.SubnetCIDR

	networkAddr, err := subnet.NetworkAddr()
	if err != nil {
		return nil, err
	}
	if g.nextAddr > networkAddr {
		return nil, fmt.Errorf("%w: expected next %s, subnet %s",
			ErrRecordsOutOfOrder, netcalc.FormatAddr(g.nextAddr), subnet)
	}

	var rows []ReportRow
	for g.nextAddr < networkAddr {
		mask, err := FindLargestFittingBlock(g.nextAddr, g.defaultMask, subnet)
		if err != nil {
			return nil, err
		}
		gap := netcalc.Cidr{Addr: g.nextAddr, Prefix: mask}

		row, err := gapRow(gap, s)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)

		next, err := gap.NextBlock(gap.Prefix)
		if err != nil {
			return nil, err
		}
		g.nextAddr = next.Addr
	}

	if len(s.VNetCIDRs) > 0 {
		g.previousVNet = s.VNetCIDRs[0]
	}

	row, err := subnetRow(subnet, s, index)
	if err != nil {
		return nil, err
	}
	rows = append(rows, row)

	next, err := subnet.NextBlock(subnet.Prefix)
	if err != nil {
		return nil, err
	}
	g.nextAddr = next.Addr

	return rows, nil
}

// FindLargestFittingBlock picks the mask for a gap block starting at
// startAddr. The block can be no bigger than defaultMask allows, must have
// startAddr as a legal network address, and must end before the next real
// subnet begins.
func FindLargestFittingBlock(startAddr uint32, defaultMask uint8, below netcalc.Cidr) (uint8, error) {
	mask := defaultMask
	if alignment := netcalc.AlignmentMask(startAddr); alignment > mask {
		mask = alignment
	}

	belowNetwork, err := below.NetworkAddr()
	if err != nil {
		return 0, err
	}

	for {
		if mask > netcalc.MaxPrefix {
			return 0, fmt.Errorf("%w: start %s below %s",
				ErrGapDoesNotFit, netcalc.FormatAddr(startAddr), below)
		}
		candidate := netcalc.Cidr{Addr: startAddr, Prefix: mask}
		broadcast, err := candidate.BroadcastAddr()
		if err != nil {
			return 0, err
		}
		if broadcast < belowNetwork {
			return mask, nil
		}
		mask++
	}
}

// gapRow builds the row for a synthesized gap block. When the gap falls
// inside the upcoming record's VNet the row carries that VNet's identity and
// the block must not reach past the VNet's broadcast address; a gap between
// VNets carries no owner.
func gapRow(gap netcalc.Cidr, s *inventory.Subnet) (ReportRow, error) {
	broadcast, err := gap.BroadcastAddr()
	if err != nil {
		return ReportRow{}, err
	}
	hosts, err := gap.UsableHosts()
	if err != nil {
		return ReportRow{}, err
	}

	inVNet := false
	for _, vnet := range s.VNetCIDRs {
		if vnet.ContainsAddr(gap.Addr) {
			inVNet = true
			vnetBroadcast, err := vnet.BroadcastAddr()
			if err != nil {
				return ReportRow{}, err
			}
			if broadcast > vnetBroadcast {
				return ReportRow{}, fmt.Errorf("%w: gap %s, vnet %s (%s)",
					ErrGapOutsideVNet, gap, vnet, s.VNetName)
			}
			break
		}
	}

	row := ReportRow{
		Index:            0,
		Gap:              "-gap-",
		SubnetCIDR:       gap.String(),
		Broadcast:        netcalc.FormatAddr(broadcast),
		UsableHosts:      hosts,
		SubnetName:       "None",
		SubscriptionName: "None",
		VNetCIDR:         "None",
		VNetName:         "None",
		Location:         "None",
		NSG:              "Unused_nsg",
		DNS:              "Unused_dns",
		SubscriptionID:   "None",
		IPConfigCount:    0,
	}
	if inVNet {
		row.SubscriptionName = s.SubscriptionName
		row.VNetCIDR = FormatVNetCIDRs(s.VNetCIDRs)
		row.VNetName = s.VNetName
		row.SubscriptionID = s.SubscriptionID
	}
	return row, nil
}

func subnetRow(subnet netcalc.Cidr, s *inventory.Subnet, index int) (ReportRow, error) {
	broadcast, err := subnet.BroadcastAddr()
	if err != nil {
		return ReportRow{}, err
	}
	hosts, err := subnet.UsableHosts()
	if err != nil {
		return ReportRow{}, fmt.Errorf("subnet %s (%s): %w", subnet, s.SubnetName, err)
	}

	tag := fmt.Sprintf("Sub%d", s.SourceIndex)
	if s.GapTag != nil {
		tag = *s.GapTag
	}

	return ReportRow{
		Index:            index + 1,
		Gap:              tag,
		SubnetCIDR:       subnet.String(),
		Broadcast:        netcalc.FormatAddr(broadcast),
		UsableHosts:      hosts,
		SubnetName:       s.SubnetName,
		SubscriptionName: s.SubscriptionName,
		VNetCIDR:         FormatVNetCIDRs(s.VNetCIDRs),
		VNetName:         s.VNetName,
		Location:         s.Location,
		NSG:              NSGShortName(s.NSG),
		DNS:              FormatDNSServers(s.DNSServers),
		SubscriptionID:   s.SubscriptionID,
		IPConfigCount:    ipConfigCount(s),
	}, nil
}

// degenerateRow is the placeholder for a record without a CIDR. It carries
// the record's metadata but no address math and leaves the walk state alone.
func degenerateRow(s *inventory.Subnet, index int) ReportRow {
	return ReportRow{
		Index:            index + 1,
		Gap:              "None",
		SubnetCIDR:       "none",
		Broadcast:        "none",
		UsableHosts:      0,
		SubnetName:       s.SubnetName,
		SubscriptionName: s.SubscriptionName,
		VNetCIDR:         FormatVNetCIDRs(s.VNetCIDRs),
		VNetName:         s.VNetName,
		Location:         s.Location,
		NSG:              NSGShortName(s.NSG),
		DNS:              FormatDNSServers(s.DNSServers),
		SubscriptionID:   s.SubscriptionID,
		IPConfigCount:    ipConfigCount(s),
	}
}

// FormatVNetCIDRs joins a VNet's address blocks for display.
func FormatVNetCIDRs(cidrs []netcalc.Cidr) string {
	parts := make([]string, len(cidrs))
	for i, cidr := range cidrs {
		parts[i] = cidr.String()
	}
	return strings.Join(parts, ",")
}

// NSGShortName reduces a full security group resource reference to its last
// path segment.
func NSGShortName(nsg *string) string {
	if nsg == nil {
		return "None"
	}
	parts := strings.Split(*nsg, "/")
	return parts[len(parts)-1]
}

// FormatDNSServers joins custom DNS servers for display.
func FormatDNSServers(servers []string) string {
	if servers == nil {
		return "None"
	}
	return strings.Join(servers, ",")
}

func ipConfigCount(s *inventory.Subnet) uint32 {
	if s.IPConfigCount == nil {
		return 0
	}
	return *s.IPConfigCount
}
