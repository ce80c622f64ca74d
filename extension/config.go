package extension

import (
	"github.com/xraph/hookgate"
)

// Config holds configuration for the extension. It can be set
// programmatically or loaded from the "hookgate" key of the host's
// configuration.
type Config struct {
	// Gateway is the core gateway configuration.
	Gateway hookgate.Config `json:"gateway" koanf:"gateway" yaml:"gateway"`

	// BasePath is the URL prefix for all hookgate routes (default: "/webhooks").
	BasePath string `json:"base_path" koanf:"base_path" yaml:"base_path"`

	// AdminToken guards project administration routes. Empty disables them.
	AdminToken string `json:"admin_token" koanf:"admin_token" yaml:"admin_token"`

	// DisableRoutes skips route registration on the Forge router.
	DisableRoutes bool `json:"disable_routes" koanf:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate skips store migrations on Init.
	DisableMigrate bool `json:"disable_migrate" koanf:"disable_migrate" yaml:"disable_migrate"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Gateway:  hookgate.DefaultConfig(),
		BasePath: "/webhooks",
	}
}

// gatewayOptions converts the configuration into hookgate options. Options
// passed with WithGatewayOption are applied after these.
func (c Config) gatewayOptions() []hookgate.Option {
	return []hookgate.Option{hookgate.WithConfig(c.Gateway)}
}
