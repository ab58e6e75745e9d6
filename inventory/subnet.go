package inventory

import (
	"github.com/google/uuid"

	"github.com/cloudkiwi/vnetaudit/netcalc"
)

// Subnet is one subnet record as returned by the Azure Resource Graph query.
// The JSON field names match the projection in SubnetQuery, so records round
// trip unchanged through the cache file.
type Subnet struct {
	VNetName   string         `json:"vnet_name"`
	VNetCIDRs  []netcalc.Cidr `json:"vnet_cidr"`
	SubnetName string         `json:"subnet_name"`
	// SubnetCIDR is nil for subnets with no configured address range
	SubnetCIDR       *netcalc.Cidr `json:"subnet_cidr"`
	NSG              *string       `json:"nsg"`
	Location         string        `json:"location"`
	DNSServers       []string      `json:"dns_servers"`
	SubscriptionID   string        `json:"subscription_id"`
	SubscriptionName string        `json:"subscription_name"`
	IPConfigCount    *uint32       `json:"ip_configurations_count"`
	// GapTag overrides the source tag shown in report output
	GapTag *string `json:"gap,omitempty"`
	// SourceIndex and SourceBlock record where in the paginated fetch this
	// record came from; the same pair appearing twice means the data source
	// handed back a page twice
	SourceIndex int `json:"src_index"`
	SourceBlock int `json:"block_id"`
}

// VNetKey identifies a virtual network. The name alone is not enough, the
// same VNet name can recur across subscriptions.
type VNetKey struct {
	VNetName       string
	SubscriptionID string
}

// VNetKey returns the identity of the VNet this subnet belongs to.
func (s *Subnet) VNetKey() VNetKey {
	return VNetKey{VNetName: s.VNetName, SubscriptionID: s.SubscriptionID}
}

// HasValidSubscriptionID reports whether the record's subscription ID is a
// well-formed UUID, which Azure subscription IDs always are.
func (s *Subnet) HasValidSubscriptionID() bool {
	_, err := uuid.Parse(s.SubscriptionID)
	return err == nil
}

// Data is the envelope around a set of subnet records, mirroring the response
// shape of an Azure Resource Graph query page. The aggregate of all pages uses
// the same shape with SkipToken unset.
type Data struct {
	Data         []Subnet `json:"data"`
	SkipToken    *string  `json:"skip_token"`
	TotalRecords *uint32  `json:"total_records"`
	Count        int32    `json:"count"`
}
