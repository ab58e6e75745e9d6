package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/time/rate"

	zlog "github.com/cloudkiwi/vnetaudit/logger"
)

var (
	ErrSkipTokenRepeated   = errors.New("skip token repeated between pages, aborting to avoid an infinite pagination loop")
	ErrRecordCountMismatch = errors.New("record count reported by the data source does not match the records received")
)

// SubnetQuery is the Resource Graph query that flattens every VNet into one
// row per subnet and joins on the subscription display name.
const SubnetQuery = `resources
| where type == "microsoft.network/virtualnetworks"
| mv-expand properties.subnets
| project subscription_id=subscriptionId
        ,vnet_name=name
        ,vnet_cidr=properties.addressSpace.addressPrefixes
        ,subnet_name=properties_subnets.name
        ,subnet_cidr=properties_subnets.properties.addressPrefix
        ,nsg=properties_subnets.properties.networkSecurityGroup.id
        ,location=location
        ,dns_servers=properties.dhcpOptions.dnsServers
        ,ip_configurations_count=array_length(properties_subnets.properties.ipConfigurations)
| join kind=leftouter (
    resourcecontainers
        | where type == "microsoft.resources/subscriptions"
        | project subscription_id=subscriptionId, subscription_name=name
    ) on subscription_id
| project subscription_id, subscription_name, vnet_name, vnet_cidr, subnet_name, subnet_cidr, nsg, location, dns_servers, ip_configurations_count
| sort by vnet_name asc`

// Fetcher pulls the full subnet inventory out of Azure Resource Graph,
// following skip tokens until the result set is exhausted.
type Fetcher struct {
	Runner       Runner
	PageSize     int
	Limiter      *rate.Limiter
	ShowProgress bool
}

// NewFetcher returns a Fetcher that pauses requestDelay between pages.
func NewFetcher(runner Runner, pageSize int, requestDelay time.Duration) *Fetcher {
	return &Fetcher{
		Runner:       runner,
		PageSize:     pageSize,
		Limiter:      rate.NewLimiter(rate.Every(requestDelay), 1),
		ShowProgress: true,
	}
}

// FetchAll runs the subnet query page by page and returns the aggregated
// records, each stamped with its page ordinal and index within the page.
func (f *Fetcher) FetchAll(ctx context.Context) (*Data, error) {
	logger := zlog.GetLogger()

	var progress *mpb.Progress
	var bar *mpb.Bar
	if f.ShowProgress {
		progress = mpb.New(mpb.WithWidth(64))
	}

	var aggregate Data
	skipToken := ""

	for page := 0; ; page++ {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}

		tokenArg := ""
		if skipToken != "" {
			tokenArg = fmt.Sprintf(" --skip-token %s", skipToken)
		}
		command := fmt.Sprintf("az graph query --first %d%s -q '%s' --output json", f.PageSize, tokenArg, SubnetQuery)

		output, err := f.Runner.Run(ctx, command)
		if err != nil {
			return nil, fmt.Errorf("fetching subnet page %d: %w", page, err)
		}

		var block Data
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(output), &block); err != nil {
			return nil, fmt.Errorf("parsing subnet page %d: %w", page, err)
		}

		for i := range block.Data {
			block.Data[i].SourceIndex = i
			block.Data[i].SourceBlock = page
			if !block.Data[i].HasValidSubscriptionID() {
				logger.Warn().
					Str("subscription_id", block.Data[i].SubscriptionID).
					Str("subnet", block.Data[i].SubnetName).
					Msg("record carries a subscription ID that is not a UUID")
			}
		}

		aggregate.Data = append(aggregate.Data, block.Data...)
		aggregate.Count += block.Count
		if block.TotalRecords != nil {
			aggregate.TotalRecords = block.TotalRecords
		}

		if progress != nil && bar == nil && aggregate.TotalRecords != nil {
			bar = progress.AddBar(int64(*aggregate.TotalRecords),
				mpb.PrependDecorators(decor.Name("fetching subnets ")),
				mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
			)
		}
		if bar != nil {
			bar.IncrBy(len(block.Data))
		}

		logger.Info().
			Int("page", page).
			Int("records", len(block.Data)).
			Int32("running_total", aggregate.Count).
			Msg("received subnet page")

		if block.SkipToken == nil || *block.SkipToken == "" || *block.SkipToken == "null" {
			break
		}
		if *block.SkipToken == skipToken {
			return nil, ErrSkipTokenRepeated
		}
		skipToken = *block.SkipToken
	}

	if bar != nil {
		bar.SetTotal(bar.Current(), true)
	}
	if progress != nil {
		progress.Wait()
	}

	if int(aggregate.Count) != len(aggregate.Data) {
		return nil, fmt.Errorf("%w: reported %d, received %d", ErrRecordCountMismatch, aggregate.Count, len(aggregate.Data))
	}

	logger.Info().Int("records", len(aggregate.Data)).Msg("subnet inventory fetch complete")
	return &aggregate, nil
}
