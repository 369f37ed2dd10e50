package config

import "time"

// Config holds the full configuration surface (spec §6):
// network.*, registry.*, connectionPool.*, observability.logging.*.
type Config struct {
	Network        NetworkConfig        `yaml:"network" mapstructure:"network"`
	Registry       RegistryConfig       `yaml:"registry" mapstructure:"registry"`
	ConnectionPool ConnectionPoolConfig `yaml:"connectionPool" mapstructure:"connectionPool"`
	Resilience     ResilienceConfig     `yaml:"resilience" mapstructure:"resilience"`
	Router         RouterConfig         `yaml:"router" mapstructure:"router"`
	Observability  ObservabilityConfig  `yaml:"observability" mapstructure:"observability"`
}

// NetworkConfig controls the demo entrypoint's listening socket and the
// transport-level defaults applied to outbound connections.
type NetworkConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	MaxConnections int           `yaml:"maxConnections" mapstructure:"maxConnections"`
	ReadTimeout    time.Duration `yaml:"readTimeout" mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout" mapstructure:"writeTimeout"`
	KeepAlive      time.Duration `yaml:"keepAlive" mapstructure:"keepAlive"`
}

// RegistryConfig selects and configures a Registry backend (spec §4.1).
type RegistryConfig struct {
	Type              string        `yaml:"type" mapstructure:"type"` // "memory" | "etcd"
	Endpoints         []string      `yaml:"endpoints" mapstructure:"endpoints"`
	Namespace         string        `yaml:"namespace" mapstructure:"namespace"`
	TTL               time.Duration `yaml:"ttl" mapstructure:"ttl"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval" mapstructure:"heartbeatInterval"`
}

// ConnectionPoolConfig is the shared default applied to every pool the
// ConnectionManager creates per endpoint (spec §4.3/§4.4).
type ConnectionPoolConfig struct {
	Max                 int           `yaml:"max" mapstructure:"max"`
	Min                 int           `yaml:"min" mapstructure:"min"`
	IdleTimeout         time.Duration `yaml:"idleTimeout" mapstructure:"idleTimeout"`
	MaxLifetime         time.Duration `yaml:"maxLifetime" mapstructure:"maxLifetime"`
	ConnectionTimeout   time.Duration `yaml:"connectionTimeout" mapstructure:"connectionTimeout"`
	HealthCheckInterval time.Duration `yaml:"healthCheckInterval" mapstructure:"healthCheckInterval"`
	KeepAlive           bool          `yaml:"keepAlive" mapstructure:"keepAlive"`
	TCPNoDelay          bool          `yaml:"tcpNoDelay" mapstructure:"tcpNoDelay"`
}

// ResilienceConfig configures the default CircuitBreaker and RetryPolicy
// applied by the client facade (spec §4.5/§4.6).
type ResilienceConfig struct {
	FailureThreshold int           `yaml:"failureThreshold" mapstructure:"failureThreshold"`
	SuccessThreshold int           `yaml:"successThreshold" mapstructure:"successThreshold"`
	BreakerTimeout   time.Duration `yaml:"breakerTimeout" mapstructure:"breakerTimeout"`
	MaxAttempts      int           `yaml:"maxAttempts" mapstructure:"maxAttempts"`
	InitialDelay     time.Duration `yaml:"initialDelay" mapstructure:"initialDelay"`
	MaxDelay         time.Duration `yaml:"maxDelay" mapstructure:"maxDelay"`
	Multiplier       float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// RouterConfig selects the default load-balancing strategy the
// MessageRouter applies once a RoutingRule (or registry fallback)
// resolves a candidate endpoint set (spec §4.2/§4.7).
type RouterConfig struct {
	LoadBalancerStrategy string `yaml:"loadBalancerStrategy" mapstructure:"loadBalancerStrategy"`
}

// ObservabilityConfig is the ambient logging surface (spec §6 names
// only observability.logging.level; the rest generalises olla's
// logging config to this framework's styled logger).
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// LoggingConfig controls internal/logger.New.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"` // debug|info|warn|error
	PrettyLogs bool   `yaml:"prettyLogs" mapstructure:"prettyLogs"`
	FileOutput bool   `yaml:"fileOutput" mapstructure:"fileOutput"`
	LogDir     string `yaml:"logDir" mapstructure:"logDir"`
	MaxSizeMB  int    `yaml:"maxSizeMb" mapstructure:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups" mapstructure:"maxBackups"`
	MaxAgeDays int     `yaml:"maxAgeDays" mapstructure:"maxAgeDays"`
}
