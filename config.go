package feedsync

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config is the configuration for the Processor.
//
// All duration fields accept standard Go duration strings like "30s", "5m", "1h"
// when loaded from YAML.
type Config struct {
	// Owner identifies this consumer instance on acquired leases.
	// Default: a random UUID, so every process gets a distinct identity.
	Owner string `yaml:"owner"`

	// LeasePrefix namespaces lease ids. Processors of different feeds can share
	// a bucket as long as their prefixes differ.
	LeasePrefix string `yaml:"leasePrefix"`

	// LeaseBucket is the NATS KV bucket holding lease documents.
	LeaseBucket string `yaml:"leaseBucket"`

	// TopologyBucket is the NATS KV bucket a topology.KVSource reads from.
	// Only used by NewKVTopology.
	TopologyBucket string `yaml:"topologyBucket"`

	// SyncInterval is the time between background CreateMissingLeases runs.
	// Recommended: 30 seconds.
	SyncInterval time.Duration `yaml:"syncInterval"`

	// OperationTimeout bounds a single synchronization run or gone handling.
	// Recommended: 10 seconds.
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// StartupTimeout bounds bucket preparation and the initial synchronization.
	StartupTimeout time.Duration `yaml:"startupTimeout"`

	// ShutdownTimeout bounds waiting for the background loop on Stop.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// MaxConcurrentLeaseCreates bounds concurrent lease creation in sync and split handling.
	MaxConcurrentLeaseCreates int `yaml:"maxConcurrentLeaseCreates"`

	// CreateEffectiveRangeLeases makes new gap-fill leases address key ranges
	// instead of partition ids. Such leases survive merges without conversion.
	CreateEffectiveRangeLeases bool `yaml:"createEffectiveRangeLeases"`

	// SplitInheritsContinuation starts split children from the parent's
	// continuation token instead of from the beginning of the feed.
	SplitInheritsContinuation bool `yaml:"splitInheritsContinuation"`

	// KVCreateRetries is the number of attempts used to create or open KV buckets.
	KVCreateRetries int `yaml:"kvCreateRetries"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Owner is left empty; SetDefaults generates one.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		LeasePrefix:               "feedsync",
		LeaseBucket:               "feedsync-leases",
		TopologyBucket:            "feedsync-topology",
		SyncInterval:              30 * time.Second,
		OperationTimeout:          10 * time.Second,
		StartupTimeout:            30 * time.Second,
		ShutdownTimeout:           10 * time.Second,
		MaxConcurrentLeaseCreates: 4,
		KVCreateRetries:           5,
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Owner == "" {
		cfg.Owner = uuid.NewString()
	}
	if cfg.LeasePrefix == "" {
		cfg.LeasePrefix = defaults.LeasePrefix
	}
	if cfg.LeaseBucket == "" {
		cfg.LeaseBucket = defaults.LeaseBucket
	}
	if cfg.TopologyBucket == "" {
		cfg.TopologyBucket = defaults.TopologyBucket
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = defaults.SyncInterval
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaults.StartupTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.MaxConcurrentLeaseCreates == 0 {
		cfg.MaxConcurrentLeaseCreates = defaults.MaxConcurrentLeaseCreates
	}
	if cfg.KVCreateRetries == 0 {
		cfg.KVCreateRetries = defaults.KVCreateRetries
	}
	// CreateEffectiveRangeLeases and SplitInheritsContinuation default to false.
}

// Validate checks configuration constraints.
//
// Rules:
//   - LeasePrefix and LeaseBucket are set
//   - SyncInterval, OperationTimeout > 0
//   - OperationTimeout <= SyncInterval (runs must not overlap)
//   - MaxConcurrentLeaseCreates >= 1
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.LeasePrefix == "" {
		return fmt.Errorf("LeasePrefix must not be empty")
	}
	if cfg.LeaseBucket == "" {
		return fmt.Errorf("LeaseBucket must not be empty")
	}
	if cfg.SyncInterval <= 0 {
		return fmt.Errorf("SyncInterval must be > 0, got %v", cfg.SyncInterval)
	}
	if cfg.OperationTimeout <= 0 {
		return fmt.Errorf("OperationTimeout must be > 0, got %v", cfg.OperationTimeout)
	}
	if cfg.OperationTimeout > cfg.SyncInterval {
		return fmt.Errorf(
			"OperationTimeout (%v) must be <= SyncInterval (%v) so sync runs do not overlap",
			cfg.OperationTimeout, cfg.SyncInterval,
		)
	}
	if cfg.MaxConcurrentLeaseCreates < 1 {
		return fmt.Errorf("MaxConcurrentLeaseCreates must be >= 1, got %d", cfg.MaxConcurrentLeaseCreates)
	}

	return nil
}

// ValidateWithWarnings logs warnings for legal but unusual values.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.SyncInterval < time.Second {
		logger.Warn(
			"SyncInterval is very short, topology will be polled aggressively",
			"syncInterval", cfg.SyncInterval,
			"recommended", "30s",
		)
	}
	if cfg.SplitInheritsContinuation && cfg.CreateEffectiveRangeLeases {
		logger.Warn("split children inherit continuation tokens of effective range leases; ensure the feed accepts them across partitions")
	}
}

// LoadConfig reads a YAML configuration file and applies defaults.
//
// Parameters:
//   - path: YAML file path
//
// Returns:
//   - Config: Parsed configuration with defaults applied
//   - error: Read, parse or validation error
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration and applies defaults.
//
// Example:
//
//	cfg, err := feedsync.ParseConfig([]byte(`
//	leasePrefix: orders
//	syncInterval: 15s
//	`))
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// TestConfig returns a configuration with fast timings for tests.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := feedsync.TestConfig()
//	cfg.LeasePrefix = "test-feed"
//	p, err := feedsync.NewProcessor(&cfg, nc, src)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.SyncInterval = 250 * time.Millisecond
	cfg.OperationTimeout = 250 * time.Millisecond
	cfg.StartupTimeout = 5 * time.Second
	cfg.ShutdownTimeout = 2 * time.Second

	return cfg
}
