package audit

import (
	"sort"

	zlog "github.com/cloudkiwi/vnetaudit/logger"

	"github.com/cloudkiwi/vnetaudit/inventory"
	"github.com/cloudkiwi/vnetaudit/netcalc"
)

// VNetInfo is one virtual network's identity plus how many subnet records it
// contributed. Identity is (name, subscription): the same VNet name recurring
// in another subscription is a different network.
type VNetInfo struct {
	VNetName         string
	VNetCIDRs        []netcalc.Cidr
	SubscriptionID   string
	SubscriptionName string
	Location         string
	SubnetCount      int
}

// Conflict is a single address block claimed by more than one VNet.
type Conflict struct {
	CIDR  netcalc.Cidr
	VNets []VNetInfo
}

// DefaultExcludedVNetCIDRs are hub address blocks that are peered into most
// VNets and therefore show up as claimed everywhere. Reporting them as
// conflicts would drown the real ones.
func DefaultExcludedVNetCIDRs() []netcalc.Cidr {
	return []netcalc.Cidr{
		netcalc.MustParse("10.0.0.0/16"),
		netcalc.MustParse("10.1.0.0/16"),
	}
}

// GroupVNets collapses subnet records into per-VNet summaries keyed on
// (name, subscription). CIDR lists are taken from the first record of each
// VNet; a later record disagreeing on the list is logged and ignored.
func GroupVNets(records []inventory.Subnet) []VNetInfo {
	logger := zlog.GetLogger()

	byKey := make(map[inventory.VNetKey]*VNetInfo)
	order := make([]inventory.VNetKey, 0)

	for i := range records {
		record := &records[i]
		key := record.VNetKey()
		info, seen := byKey[key]
		if !seen {
			cidrs := make([]netcalc.Cidr, len(record.VNetCIDRs))
			copy(cidrs, record.VNetCIDRs)
			byKey[key] = &VNetInfo{
				VNetName:         record.VNetName,
				VNetCIDRs:        cidrs,
				SubscriptionID:   record.SubscriptionID,
				SubscriptionName: record.SubscriptionName,
				Location:         record.Location,
				SubnetCount:      1,
			}
			order = append(order, key)
			continue
		}

		info.SubnetCount++
		if !sameCidrs(info.VNetCIDRs, record.VNetCIDRs) {
			logger.Warn().
				Str("vnet", record.VNetName).
				Str("subscription", record.SubscriptionName).
				Msg("subnet records disagree on their VNet's address space, keeping the first")
		}
	}

	vnets := make([]VNetInfo, 0, len(order))
	for _, key := range order {
		vnets = append(vnets, *byKey[key])
	}
	return vnets
}

func sameCidrs(a, b []netcalc.Cidr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FindOverlaps reports every VNet address block that is claimed by more than
// one VNet. Only identical blocks conflict here; a /16 enclosing someone
// else's /24 is peering, not a clash. Results are sorted by CIDR and each
// claimant list by rank, so the output does not depend on input order.
func FindOverlaps(records []inventory.Subnet) []Conflict {
	claims := make(map[netcalc.Cidr][]VNetInfo)
	for _, vnet := range GroupVNets(records) {
		for _, cidr := range vnet.VNetCIDRs {
			claims[cidr] = append(claims[cidr], vnet)
		}
	}

	conflicts := make([]Conflict, 0)
	for cidr, vnets := range claims {
		if len(vnets) < 2 {
			continue
		}
		sortByRank(vnets)
		conflicts = append(conflicts, Conflict{CIDR: cidr, VNets: vnets})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].CIDR.Less(conflicts[j].CIDR)
	})
	return conflicts
}

// sortByRank orders claimants best first: most subnets wins, then
// subscription name, then VNet name as a final tiebreak.
func sortByRank(vnets []VNetInfo) {
	sort.SliceStable(vnets, func(i, j int) bool {
		if vnets[i].SubnetCount != vnets[j].SubnetCount {
			return vnets[i].SubnetCount > vnets[j].SubnetCount
		}
		if vnets[i].SubscriptionName != vnets[j].SubscriptionName {
			return vnets[i].SubscriptionName < vnets[j].SubscriptionName
		}
		return vnets[i].VNetName < vnets[j].VNetName
	})
}

// FilterExcludedCIDRs drops subnet records belonging to VNets whose address
// list contains one of the excluded blocks. A nil excluded list uses the
// defaults.
func FilterExcludedCIDRs(records []inventory.Subnet, excluded []netcalc.Cidr) []inventory.Subnet {
	if excluded == nil {
		excluded = DefaultExcludedVNetCIDRs()
	}
	excludedSet := make(map[netcalc.Cidr]struct{}, len(excluded))
	for _, cidr := range excluded {
		excludedSet[cidr] = struct{}{}
	}

	kept := make([]inventory.Subnet, 0, len(records))
	for _, record := range records {
		drop := false
		for _, cidr := range record.VNetCIDRs {
			if _, hit := excludedSet[cidr]; hit {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, record)
		}
	}
	return kept
}

// FilterKeepOnePerConflict resolves each conflicting block by keeping the
// records of the best-ranked claimant and dropping the rest. Records of
// unconflicted VNets pass through untouched.
func FilterKeepOnePerConflict(records []inventory.Subnet) []inventory.Subnet {
	logger := zlog.GetLogger()

	losers := make(map[inventory.VNetKey]struct{})
	for _, conflict := range FindOverlaps(records) {
		for _, vnet := range conflict.VNets[1:] {
			key := inventory.VNetKey{VNetName: vnet.VNetName, SubscriptionID: vnet.SubscriptionID}
			if _, dup := losers[key]; dup {
				continue
			}
			losers[key] = struct{}{}
			logger.Info().
				Str("vnet", vnet.VNetName).
				Str("subscription", vnet.SubscriptionName).
				Str("cidr", conflict.CIDR.String()).
				Msg("dropping conflicting VNet, another claimant ranks higher")
		}
	}

	kept := make([]inventory.Subnet, 0, len(records))
	for _, record := range records {
		if _, drop := losers[record.VNetKey()]; drop {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}
