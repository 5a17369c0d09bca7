// Package cluster provides cluster membership and coordination.
//
// This package handles:
//   - Node registration and membership tracking
//   - Heartbeat-based failure detection
//   - Term-based leader election with a single-node fast path
//   - The request/reply election and heartbeat channel
package cluster
