package cluster

import "errors"

// Configuration errors
var (
	ErrInvalidBindAddress       = errors.New("bind address cannot be empty")
	ErrInvalidPort              = errors.New("port must be between 0 and 65535")
	ErrInvalidHeartbeatInterval = errors.New("heartbeat interval must be positive")
	ErrElectionTimeoutTooSmall  = errors.New("election timeout must be greater than heartbeat interval")
)

// Lifecycle errors
var (
	ErrAlreadyRunning = errors.New("orchestrator already running")
)
