package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const maskedSecret = "********"

// MaskedYAML renders the effective configuration as YAML with secret
// keys hidden, for "config show" style output.
func (c *Config) MaskedYAML() (string, error) {
	cp := *c
	cp.Providers = make(map[string]map[string]Provider, len(c.Providers))
	for pname, models := range c.Providers {
		masked := make(map[string]Provider, len(models))
		for mname, p := range models {
			if p.API.SecretKey != "" {
				p.API.SecretKey = maskedSecret
			}
			masked[mname] = p
		}
		cp.Providers[pname] = masked
	}
	out, err := yaml.Marshal(&cp)
	if err != nil {
		return "", fmt.Errorf("render config: %w", err)
	}
	return string(out), nil
}
