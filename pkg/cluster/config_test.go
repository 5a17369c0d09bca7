package cluster

import (
	"errors"
	"testing"
	"time"
)

// TestDefaultConfig tests the default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BindAddress != "0.0.0.0" {
		t.Errorf("Expected bind address 0.0.0.0, got %s", cfg.BindAddress)
	}
	if cfg.Port != 8766 {
		t.Errorf("Expected port 8766, got %d", cfg.Port)
	}
	if cfg.HeartbeatInterval != 5*time.Second {
		t.Errorf("Expected heartbeat interval 5s, got %v", cfg.HeartbeatInterval)
	}
	if cfg.ElectionTimeout != 15*time.Second {
		t.Errorf("Expected election timeout 15s, got %v", cfg.ElectionTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// TestConfigValidate tests configuration validation rules
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"empty bind address", func(c *Config) { c.BindAddress = "" }, ErrInvalidBindAddress},
		{"negative port", func(c *Config) { c.Port = -1 }, ErrInvalidPort},
		{"port too large", func(c *Config) { c.Port = 70000 }, ErrInvalidPort},
		{"zero heartbeat", func(c *Config) { c.HeartbeatInterval = 0 }, ErrInvalidHeartbeatInterval},
		{"election timeout below heartbeat", func(c *Config) {
			c.HeartbeatInterval = 10 * time.Second
			c.ElectionTimeout = 5 * time.Second
		}, ErrElectionTimeoutTooSmall},
		{"election timeout equal to heartbeat", func(c *Config) {
			c.HeartbeatInterval = 5 * time.Second
			c.ElectionTimeout = 5 * time.Second
		}, ErrElectionTimeoutTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestNodeStateString tests string representation of node states
func TestNodeStateString(t *testing.T) {
	tests := []struct {
		state NodeState
		want  string
	}{
		{StateFollower, "follower"},
		{StateCandidate, "candidate"},
		{StateLeader, "leader"},
		{StateDisconnected, "disconnected"},
		{NodeState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("NodeState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
