package parbreak

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// HostConfig holds the optional per-host SSH defaults used when launching a
// worker on that host. A zero field is left off the ssh command line, so
// ssh's own default applies.
type HostConfig struct {
	User     string `toml:"user"`
	Identity string `toml:"identity"`
}

// SSHConfig is the parsed form of the optional --ssh-config TOML file,
// keyed by host. Grounded in the teacher's `cmd/cocofarm/config.go`
// go-toml-tree loading of its own per-worker-group settings, generalized
// here to per-host SSH defaults since our spec has no worker groups.
type SSHConfig struct {
	Hosts map[string]HostConfig `toml:"hosts"`
}

// LoadSSHConfig reads and parses path. A missing file is not an error — it
// simply means no per-host overrides are configured.
func LoadSSHConfig(path string) (*SSHConfig, error) {
	if path == "" {
		return &SSHConfig{Hosts: map[string]HostConfig{}}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &SSHConfig{Hosts: map[string]HostConfig{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ssh config: %w", err)
	}
	var cfg SSHConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse ssh config %s: %w", path, err)
	}
	if cfg.Hosts == nil {
		cfg.Hosts = map[string]HostConfig{}
	}
	return &cfg, nil
}

// For returns the configured defaults for host, or a zero HostConfig if
// none are set.
func (c *SSHConfig) For(host string) HostConfig {
	if c == nil {
		return HostConfig{}
	}
	return c.Hosts[host]
}
