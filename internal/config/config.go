package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 19841

	DefaultFileWriteDelay = 150 * time.Millisecond

	envPrefix = "FRAMEWORK"
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// RemoteSource is the seam for a remote config backend (Consul, an
// etcd-kv config tree, a config-server) to overlay the merged
// file+env config last, completing the spec's four-tier precedence
// `remote > env > file > default` even though no concrete backend
// ships in this core (spec §6).
type RemoteSource interface {
	// Fetch returns key/value overrides using the same dotted keys as
	// the yaml schema (e.g. "network.port").
	Fetch() (map[string]any, error)
}

// DefaultConfig returns a configuration with sensible defaults for
// every section named in spec §6.
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			MaxConnections: 100,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			KeepAlive:      30 * time.Second,
		},
		Registry: RegistryConfig{
			Type:              "memory",
			Namespace:         "default",
			TTL:               30 * time.Second,
			HeartbeatInterval: 10 * time.Second,
		},
		ConnectionPool: ConnectionPoolConfig{
			Max:                 10,
			Min:                 1,
			IdleTimeout:         5 * time.Minute,
			MaxLifetime:         30 * time.Minute,
			ConnectionTimeout:   5 * time.Second,
			HealthCheckInterval: 15 * time.Second,
			KeepAlive:           true,
			TCPNoDelay:          true,
		},
		Resilience: ResilienceConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			BreakerTimeout:   30 * time.Second,
			MaxAttempts:      3,
			InitialDelay:     100 * time.Millisecond,
			MaxDelay:         5 * time.Second,
			Multiplier:       2.0,
		},
		Router: RouterConfig{
			LoadBalancerStrategy: "round-robin",
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:      "info",
				PrettyLogs: true,
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
	}
}

// Load resolves configuration through the full four-tier precedence:
// remote (if remote is non-nil) > env > file > default. onConfigChange,
// if non-nil, is invoked (debounced) whenever the underlying file
// changes on disk; it does not fire for remote-source changes, since
// RemoteSource has no push/watch contract of its own.
func Load(remote RemoteSource, onConfigChange func()) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone only answers Get for keys viper already knows,
	// so bind every schema key explicitly to let Unmarshal see env
	// overrides even when no config file is present.
	var bindEnv func(prefix string, t reflect.Type)
	bindEnv = func(prefix string, t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			key := prefix + f.Tag.Get("mapstructure")
			if f.Type.Kind() == reflect.Struct {
				bindEnv(key+".", f.Type)
				continue
			}
			_ = v.BindEnv(key)
		}
	}
	bindEnv("", reflect.TypeOf(*cfg))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv(envPrefix + "_CONFIG_FILE"); configFile != "" {
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if remote != nil {
		overrides, err := remote.Fetch()
		if err != nil {
			return nil, fmt.Errorf("remote config fetch: %w", err)
		}
		for key, val := range overrides {
			v.Set(key, val)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unable to decode config after remote overlay: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v.WatchConfig()
	if onConfigChange != nil {
		v.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				return
			}
			lastReload = now

			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
	}

	return cfg, nil
}

// Validate checks the invariants spec §4.3/§4.4 and §6 place on config.
func (c *Config) Validate() error {
	if c.Network.Port <= 0 || c.Network.Port > 65535 {
		return fmt.Errorf("network.port must be in (0, 65535], got %d", c.Network.Port)
	}
	if c.Registry.Type != "memory" && c.Registry.Type != "etcd" {
		return fmt.Errorf("registry.type must be \"memory\" or \"etcd\", got %q", c.Registry.Type)
	}
	if c.Registry.Type == "etcd" && len(c.Registry.Endpoints) == 0 {
		return fmt.Errorf("registry.endpoints must be non-empty when registry.type is \"etcd\"")
	}
	if c.ConnectionPool.Min < 0 || c.ConnectionPool.Min > c.ConnectionPool.Max {
		return fmt.Errorf("connectionPool: require 0 <= min <= max, got min=%d max=%d",
			c.ConnectionPool.Min, c.ConnectionPool.Max)
	}
	if c.Resilience.MaxAttempts < 1 {
		return fmt.Errorf("resilience.maxAttempts must be >= 1, got %d", c.Resilience.MaxAttempts)
	}
	switch c.Observability.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("observability.logging.level must be one of debug|info|warn|error, got %q",
			c.Observability.Logging.Level)
	}
	return nil
}
