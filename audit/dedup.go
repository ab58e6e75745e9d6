package audit

import (
	"errors"
	"fmt"
	"sort"

	zlog "github.com/cloudkiwi/vnetaudit/logger"

	"github.com/cloudkiwi/vnetaudit/inventory"
)

var (
	ErrDuplicateProvenance = errors.New("same page and index fetched twice, the data source violated its pagination contract")
	ErrDuplicateSubnet     = errors.New("duplicate subnet survived de-duplication")
)

// DefaultIgnoredSubnetNames are placeholder and system subnets that carry no
// audit value: packer build leftovers, restore staging subnets and the like.
func DefaultIgnoredSubnetNames() []string {
	return []string{
		"default",
		"jenkinsarm-snet",
		"pkrsn1ooslfxj77",
		"pkrsn8jufz9plf6",
		"pkrsnsnajtq3h3i",
		"pkrsnxocivqofa6",
		"orggmcmg",
		"restore-vm-subnet",
	}
}

// dedupKey collapses records that describe the same physical subnet. The same
// (CIDR, subscription) pair recurring within one subscription is a pagination
// artifact; the same CIDR across different subscriptions is a real conflict
// and is deliberately NOT collapsed here (see overlap.go).
type dedupKey struct {
	cidr           string
	subscriptionID string
}

// Deduplicate drops records whose subnet name is on the ignore list or whose
// CIDR is unset, then collapses records sharing the same (CIDR, subscription)
// key, keeping the first after sorting. A nil ignoreNames uses the default
// list. The input slice is not modified.
func Deduplicate(records []inventory.Subnet, ignoreNames []string) []inventory.Subnet {
	logger := zlog.GetLogger()

	if ignoreNames == nil {
		ignoreNames = DefaultIgnoredSubnetNames()
	}
	ignored := make(map[string]struct{}, len(ignoreNames))
	for _, name := range ignoreNames {
		ignored[name] = struct{}{}
	}

	kept := make([]inventory.Subnet, 0, len(records))
	for _, record := range records {
		if _, skip := ignored[record.SubnetName]; skip {
			continue
		}
		if record.SubnetCIDR == nil {
			continue
		}
		kept = append(kept, record)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if cmp := kept[i].SubnetCIDR.Compare(*kept[j].SubnetCIDR); cmp != 0 {
			return cmp < 0
		}
		return kept[i].SubscriptionID < kept[j].SubscriptionID
	})

	deduped := kept[:0:0]
	var lastKey dedupKey
	for i, record := range kept {
		key := dedupKey{cidr: record.SubnetCIDR.String(), subscriptionID: record.SubscriptionID}
		if i > 0 && key == lastKey {
			logger.Debug().
				Str("subnet", record.SubnetName).
				Str("cidr", key.cidr).
				Msg("dropping duplicate subnet record")
			continue
		}
		deduped = append(deduped, record)
		lastKey = key
	}

	return deduped
}

// SortByCIDR returns the records sorted ascending by subnet CIDR, the order
// the gap finder requires. Records without a CIDR are not orderable and trail
// at the end in their original relative order.
func SortByCIDR(records []inventory.Subnet) []inventory.Subnet {
	sorted := make([]inventory.Subnet, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].SubnetCIDR, sorted[j].SubnetCIDR
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Less(*b)
		}
	})
	return sorted
}

// CheckProvenance fails if any (page, index) pair appears twice, which means
// a page of the paginated fetch was ingested twice.
func CheckProvenance(records []inventory.Subnet) error {
	type provenance struct{ block, index int }
	seen := make(map[provenance]struct{}, len(records))

	for i := range records {
		p := provenance{block: records[i].SourceBlock, index: records[i].SourceIndex}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: page %d index %d (subnet %q)",
				ErrDuplicateProvenance, p.block, p.index, records[i].SubnetName)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// VerifyUnique fails if two records still share a (CIDR, subscription) key;
// run it after Deduplicate as a pipeline sanity check.
func VerifyUnique(records []inventory.Subnet) error {
	seen := make(map[dedupKey]struct{}, len(records))
	for i := range records {
		if records[i].SubnetCIDR == nil {
			continue
		}
		key := dedupKey{cidr: records[i].SubnetCIDR.String(), subscriptionID: records[i].SubscriptionID}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s in subscription %s", ErrDuplicateSubnet, key.cidr, key.subscriptionID)
		}
		seen[key] = struct{}{}
	}
	return nil
}
