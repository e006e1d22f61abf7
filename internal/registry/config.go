package registry

import "auth-failover/pkg/config"

// EndpointsFromConfig converts configured servers into registry endpoints
func EndpointsFromConfig(servers []config.EndpointConfig) []Endpoint {
	out := make([]Endpoint, 0, len(servers))
	for _, s := range servers {
		out = append(out, Endpoint{URL: s.URL, Priority: s.Priority, Enabled: s.Enabled})
	}
	return out
}

// SettingsFromConfig takes the health tunables from the client section, falling
// back to defaults for anything left unset.
func SettingsFromConfig(cfg config.ClientConfig) Settings {
	s := DefaultSettings()
	if cfg.HealthInterval > 0 {
		s.HealthInterval = cfg.HealthInterval
	}
	if cfg.ProbeTimeout > 0 {
		s.ProbeTimeout = cfg.ProbeTimeout
	}
	if cfg.MaxFailures > 0 {
		s.MaxFailures = cfg.MaxFailures
	}
	return s
}
