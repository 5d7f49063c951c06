package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Filter types for the device filter.
const (
	FilterTypeInclude = "include"
	FilterTypeExclude = "exclude"
)

// Config is the root configuration structure for the Treeow daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	API      APIConfig      `yaml:"api"`
	Sync     SyncConfig     `yaml:"sync"`
	Cache    CacheConfig    `yaml:"cache"`
	Filter   FilterConfig   `yaml:"filter"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// AccountConfig contains the Treeow cloud account credentials used for the
// initial login. After the first successful login the token pair lives in
// the credential store; the password is only needed for re-authentication.
type AccountConfig struct {
	Account  string `yaml:"account"`
	Password string `yaml:"password"`
}

// APIConfig contains vendor API connection settings.
// The URLs are configurable so tests can point the client at a local server.
type APIConfig struct {
	BaseURL       string `yaml:"base_url"`
	Timeout       int    `yaml:"timeout"`
	AppVersionURL string `yaml:"app_version_url"`
	IOSVersionURL string `yaml:"ios_version_url"`
}

// SyncConfig contains the timing knobs for the sync engine.
// All intervals are in seconds.
type SyncConfig struct {
	PollInterval      int `yaml:"poll_interval"`
	HeartbeatInterval int `yaml:"heartbeat_interval"`
	PageSize          int `yaml:"page_size"`
}

// CacheConfig contains capability-schema cache settings.
type CacheConfig struct {
	// TTL is the validity window for a cached digital model, in seconds.
	TTL int `yaml:"ttl"`

	// PurgeEvery is the number of poll cycles between expired-entry sweeps.
	PurgeEvery int `yaml:"purge_every"`
}

// FilterConfig selects which discovered devices are synchronized.
// With type "exclude" the listed devices are skipped; with type "include"
// only the listed devices are kept. An empty exclude list keeps everything.
type FilterConfig struct {
	Type    string   `yaml:"type"`
	Devices []string `yaml:"devices"`
}

// DatabaseConfig contains SQLite database settings for the credential store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MQTTConfig contains settings for the optional MQTT state republisher.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains settings for the optional state-history recorder.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Load reads configuration from the given YAML file, applies environment
// variable overrides and validates the result.
//
// Environment variables follow the pattern TREEOW_SECTION_KEY,
// for example: TREEOW_DATABASE_PATH, TREEOW_MQTT_HOST.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:       "https://eziotes.treeow.com.cn",
			Timeout:       30,
			AppVersionURL: "https://itunes.apple.com/cn/lookup?id=6505056723",
			IOSVersionURL: "https://api.ipsw.me/v4/releases",
		},
		Sync: SyncConfig{
			PollInterval:      5,
			HeartbeatInterval: 10,
			PageSize:          50,
		},
		Cache: CacheConfig{
			TTL:        3600,
			PurgeEvery: 60,
		},
		Filter: FilterConfig{
			Type: FilterTypeExclude,
		},
		Database: DatabaseConfig{
			Path:        "./data/treeow.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "treeowd",
			},
			QoS:         1,
			TopicPrefix: "treeow",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Account
	if v := os.Getenv("TREEOW_ACCOUNT"); v != "" {
		cfg.Account.Account = v
	}
	if v := os.Getenv("TREEOW_PASSWORD"); v != "" {
		cfg.Account.Password = v
	}

	// Database
	if v := os.Getenv("TREEOW_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("TREEOW_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TREEOW_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TREEOW_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("TREEOW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Account.Account == "" {
		errs = append(errs, "account.account is required (set TREEOW_ACCOUNT environment variable)")
	}
	if c.Account.Password == "" {
		errs = append(errs, "account.password is required (set TREEOW_PASSWORD environment variable)")
	}

	if c.API.BaseURL == "" {
		errs = append(errs, "api.base_url is required")
	}

	if c.Sync.PollInterval < 1 {
		errs = append(errs, "sync.poll_interval must be at least 1 second")
	}
	if c.Sync.HeartbeatInterval < 1 {
		errs = append(errs, "sync.heartbeat_interval must be at least 1 second")
	}
	if c.Sync.PageSize < 1 {
		errs = append(errs, "sync.page_size must be positive")
	}

	if c.Cache.TTL < 1 {
		errs = append(errs, "cache.ttl must be positive")
	}
	if c.Cache.PurgeEvery < 1 {
		errs = append(errs, "cache.purge_every must be positive")
	}

	if c.Filter.Type != FilterTypeInclude && c.Filter.Type != FilterTypeExclude {
		errs = append(errs, "filter.type must be \"include\" or \"exclude\"")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetAPITimeout returns the vendor API request timeout as a Duration.
func (c *Config) GetAPITimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// GetPollInterval returns the device poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Sync.PollInterval) * time.Second
}

// GetHeartbeatInterval returns the per-device heartbeat interval as a Duration.
func (c *Config) GetHeartbeatInterval() time.Duration {
	return time.Duration(c.Sync.HeartbeatInterval) * time.Second
}

// GetCacheTTL returns the digital-model cache TTL as a Duration.
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// SkipDevice reports whether a discovered device should be skipped
// according to the device filter.
func (c *Config) SkipDevice(deviceID string) bool {
	listed := false
	for _, id := range c.Filter.Devices {
		if strings.EqualFold(id, deviceID) {
			listed = true
			break
		}
	}

	if c.Filter.Type == FilterTypeInclude {
		return !listed
	}
	return listed
}
