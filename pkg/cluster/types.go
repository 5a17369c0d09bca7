package cluster

import "time"

// NodeState represents a node's position in the election state machine.
type NodeState int

const (
	// StateFollower is a node following the current leader.
	StateFollower NodeState = iota
	// StateCandidate is a node requesting votes.
	StateCandidate
	// StateLeader is the elected leader.
	StateLeader
	// StateDisconnected is a node that lost contact with the cluster.
	StateDisconnected
)

// String returns the string representation of a NodeState.
func (s NodeState) String() string {
	switch s {
	case StateFollower:
		return "follower"
	case StateCandidate:
		return "candidate"
	case StateLeader:
		return "leader"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Health status values tracked per node.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// Node is one membership record per known cluster participant.
type Node struct {
	ID            string
	Address       string
	Port          int
	State         NodeState
	Term          uint64
	VotedFor      string
	LastHeartbeat time.Time
	HealthStatus  string
}

// NodeStatus is the serializable view of a Node exposed on the status surface.
type NodeStatus struct {
	NodeID        string    `json:"node_id"`
	Address       string    `json:"address"`
	Port          int       `json:"port"`
	State         string    `json:"state"`
	Term          uint64    `json:"term"`
	VotedFor      string    `json:"voted_for,omitempty"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	HealthStatus  string    `json:"health_status"`
}

func (n *Node) status() NodeStatus {
	return NodeStatus{
		NodeID:        n.ID,
		Address:       n.Address,
		Port:          n.Port,
		State:         n.State.String(),
		Term:          n.Term,
		VotedFor:      n.VotedFor,
		LastHeartbeat: n.LastHeartbeat,
		HealthStatus:  n.HealthStatus,
	}
}

// Status is the snapshot returned by the status query surface.
type Status struct {
	NodeID      string                `json:"node_id"`
	State       string                `json:"state"`
	CurrentTerm uint64                `json:"current_term"`
	LeaderID    string                `json:"leader_id,omitempty"`
	IsLeader    bool                  `json:"is_leader"`
	NodeCount   int                   `json:"node_count"`
	Nodes       map[string]NodeStatus `json:"nodes"`
}

// Message types understood on the election/heartbeat channel.
const (
	MsgHeartbeat          = "heartbeat"
	MsgVoteRequest        = "vote_request"
	MsgLeaderAnnouncement = "leader_announcement"
)

// Message is the wire shape exchanged on the election/heartbeat channel.
type Message struct {
	Type        string `json:"type"`
	NodeID      string `json:"node_id,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
	LeaderID    string `json:"leader_id,omitempty"`
	Term        uint64 `json:"term,omitempty"`
}

type statusReply struct {
	Status string `json:"status"`
}

type voteReply struct {
	VoteGranted bool `json:"vote_granted"`
}
