package cluster

import "time"

// Config controls the orchestrator.
type Config struct {
	// NodeID is this process's identifier (random UUID if empty).
	NodeID string
	// BindAddress is the address the election/heartbeat endpoint binds to.
	// A plain host uses tcp://; a full URL (e.g. inproc://name) is used as-is.
	BindAddress string
	// Port for the election/heartbeat endpoint.
	Port int
	// HeartbeatInterval is the cadence of leader heartbeats.
	HeartbeatInterval time.Duration
	// ElectionTimeout is how long a heartbeat may be stale before a node is
	// judged unhealthy and an election is started. Must exceed
	// HeartbeatInterval.
	ElectionTimeout time.Duration
}

// DefaultConfig returns the defaults used when the caller supplies nothing.
func DefaultConfig() Config {
	return Config{
		BindAddress:       "0.0.0.0",
		Port:              8766,
		HeartbeatInterval: 5 * time.Second,
		ElectionTimeout:   15 * time.Second,
	}
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.BindAddress == "" {
		return ErrInvalidBindAddress
	}
	if c.Port < 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	if c.ElectionTimeout <= c.HeartbeatInterval {
		return ErrElectionTimeoutTooSmall
	}
	return nil
}
