package registry

import (
	"fmt"

	"github.com/olla-project/framework/internal/config"
	"github.com/olla-project/framework/internal/core/ports"
	"github.com/olla-project/framework/internal/logger"
)

// New builds the Registry backend selected by cfg.Type ("memory" or
// "etcd"), generalising olla's factory.NewModelRegistry type-switch to
// this framework's two Registry implementations (spec §4.1).
func New(cfg config.RegistryConfig, log logger.StyledLogger) (ports.Registry, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryRegistry(cfg.TTL, log), nil
	case "etcd":
		return NewEtcdRegistry(EtcdConfig{
			Endpoints: cfg.Endpoints,
			Namespace: cfg.Namespace,
			TTL:       cfg.TTL,
		}, log)
	default:
		return nil, fmt.Errorf("registry: unsupported type %q", cfg.Type)
	}
}
