package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hjson/hjson-go/v4"
	"github.com/spf13/afero"

	"github.com/cloudkiwi/vnetaudit/audit"
	"github.com/cloudkiwi/vnetaudit/netcalc"
	"github.com/cloudkiwi/vnetaudit/util"
)

var Version string

const DefaultConfigPath = "./config.hjson"

// Overlap policies decide what happens to subnet records of VNets whose
// address blocks clash before the gap report runs.
const (
	OverlapPolicyExclude    = "exclude"     // drop every claimant of an excluded block
	OverlapPolicyKeepOne    = "keep-one"    // keep the best-ranked claimant per conflict
	OverlapPolicyReportOnly = "report-only" // leave records alone, conflicts are display only
)

var errReadingConfigFile = errors.New("encountered an error while reading the config file")

type (
	Config struct {
		Audit              Audit `json:"audit" validate:"required"`
		Azure              Azure `json:"azure" validate:"required"`
		UpdateCheckEnabled bool  `json:"update_check_enabled" validate:"boolean"`
	}

	Audit struct {
		IgnoredSubnetNames []string `json:"ignored_subnet_names"`
		ExcludedVNetCIDRs  []string `json:"excluded_vnet_cidrs" validate:"omitempty,dive,cidrv4"`
		GapMask            uint8    `json:"gap_mask" validate:"lte=32"`
		StartAddress       string   `json:"start_address" validate:"required,ipv4"`
		OverlapPolicy      string   `json:"overlap_policy" validate:"oneof=exclude keep-one report-only"`
	}

	Azure struct {
		PageSize         int    `json:"page_size" validate:"gte=1,lte=1000"`
		RequestDelayMs   int    `json:"request_delay_ms" validate:"gte=0,lte=60000"`
		MaxResponseBytes int    `json:"max_response_bytes" validate:"gte=1024"`
		CacheDir         string `json:"cache_dir" validate:"required"`
	}
)

// LoadConfig reads the config file at the given path, falling back to the
// defaults when the file does not exist. An empty path means the default
// location.
func LoadConfig(afs afero.Fs, path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	contents, err := util.GetFileContents(afs, path)
	if errors.Is(err, util.ErrFileDoesNotExist) {
		cfg := GetDefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("%w, located by default at '%s', please correct the issue in the config and try again:\n\t- %w", errReadingConfigFile, path, err)
	}
	return &cfg, nil
}

// ReadConfigFromMemory reads the config from bytes already read into memory
// as opposed to reading from a file.
func ReadConfigFromMemory(data []byte) (*Config, error) {
	var cfg Config
	if err := unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func unmarshal(data []byte, cfg *Config) error {
	if err := hjson.Unmarshal(data, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return nil
}

// UnmarshalJSON overlays the file's values on top of the defaults so a
// partial config file is enough.
func (c *Config) UnmarshalJSON(bytes []byte) error {
	// temporary type drops the custom unmarshaller, plain unmarshalling
	// into Config would recurse forever
	type tmpConfig Config
	tmpCfg := tmpConfig(GetDefaultConfig())

	if err := hjson.Unmarshal(bytes, &tmpCfg); err != nil {
		return err
	}

	*c = Config(tmpCfg)
	return nil
}

// GetDefaultConfig returns a Config object with default values
func GetDefaultConfig() Config {
	if Version == "" {
		Version = "dev"
	}
	return defaultConfig()
}

// Validate validates the config struct values
func (cfg *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	return nil
}

// ExcludedCIDRs parses the configured excluded VNet blocks.
func (cfg *Config) ExcludedCIDRs() ([]netcalc.Cidr, error) {
	cidrs := make([]netcalc.Cidr, 0, len(cfg.Audit.ExcludedVNetCIDRs))
	for _, raw := range cfg.Audit.ExcludedVNetCIDRs {
		cidr, err := netcalc.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("excluded VNet CIDR %q: %w", raw, err)
		}
		cidrs = append(cidrs, cidr)
	}
	return cidrs, nil
}

// StartAddr parses the address the gap walk starts from.
func (cfg *Config) StartAddr() (uint32, error) {
	addr, err := netcalc.ParseAddr(cfg.Audit.StartAddress)
	if err != nil {
		return 0, fmt.Errorf("audit start address %q: %w", cfg.Audit.StartAddress, err)
	}
	return addr, nil
}

func defaultConfig() Config {
	excluded := make([]string, 0)
	for _, cidr := range audit.DefaultExcludedVNetCIDRs() {
		excluded = append(excluded, cidr.String())
	}

	return Config{
		Audit: Audit{
			IgnoredSubnetNames: audit.DefaultIgnoredSubnetNames(),
			ExcludedVNetCIDRs:  excluded,
			GapMask:            16,
			StartAddress:       "10.0.0.0",
			OverlapPolicy:      OverlapPolicyExclude,
		},
		Azure: Azure{
			PageSize:         50,
			RequestDelayMs:   500,
			MaxResponseBytes: 500_000,
			CacheDir:         ".",
		},
		UpdateCheckEnabled: true,
	}
}
