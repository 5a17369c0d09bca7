package cluster

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// TestStartElectionSingleNode tests that a lone candidate wins immediately
func TestStartElectionSingleNode(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")

	o.StartElection()

	if !o.IsLeader() {
		t.Error("Expected a lone node to win its own election")
	}
	if term := o.Status().CurrentTerm; term != 1 {
		t.Errorf("Expected term 1 after election, got %d", term)
	}
}

// TestStartElectionWhileLeader tests that a sitting leader never re-elects itself
func TestStartElectionWhileLeader(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")

	o.StartElection()
	term := o.Status().CurrentTerm

	o.StartElection()
	if got := o.Status().CurrentTerm; got != term {
		t.Errorf("Expected term to stay %d while leading, got %d", term, got)
	}
}

// TestTermMonotonicity tests that successive elections only raise the term
func TestTermMonotonicity(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")
	o.RegisterNode("node-2", "localhost", 9001, StateFollower)

	var last uint64
	for i := 0; i < 3; i++ {
		o.HandleLeaderAnnouncement("node-2", last) // step back to follower

		o.StartElection()
		term := o.Status().CurrentTerm
		if term <= last {
			t.Fatalf("Term went from %d to %d, must be strictly increasing", last, term)
		}
		last = term
	}
}

// TestHandleVoteRequestSingleVotePerTerm tests the one-vote-per-term rule
func TestHandleVoteRequestSingleVotePerTerm(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")

	if !o.HandleVoteRequest("node-2", 1) {
		t.Error("Expected vote granted to the first candidate of a new term")
	}
	if o.HandleVoteRequest("node-3", 1) {
		t.Error("Expected vote denied to a second candidate in the same term")
	}
	// The same candidate asking again in the same term is also denied;
	// the vote was already cast.
	if o.HandleVoteRequest("node-2", 1) {
		t.Error("Expected repeat vote request in the same term to be denied")
	}
}

// TestHandleVoteRequestHigherTerm tests that a newer term always wins a vote
func TestHandleVoteRequestHigherTerm(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")

	if !o.HandleVoteRequest("node-2", 1) {
		t.Fatal("Expected vote granted for term 1")
	}
	if !o.HandleVoteRequest("node-3", 2) {
		t.Error("Expected vote granted for a strictly newer term")
	}
	if got := o.Status().CurrentTerm; got != 2 {
		t.Errorf("Expected local term raised to 2, got %d", got)
	}
}

// TestHandleVoteRequestStaleTerm tests that old-term candidates are rejected
func TestHandleVoteRequestStaleTerm(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")
	o.HandleLeaderAnnouncement("node-9", 5)

	if o.HandleVoteRequest("node-2", 3) {
		t.Error("Expected vote denied for a stale term")
	}
	if got := o.Status().CurrentTerm; got != 5 {
		t.Errorf("Expected term unchanged at 5, got %d", got)
	}
}

// TestHandleLeaderAnnouncement tests leader adoption rules
func TestHandleLeaderAnnouncement(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")
	o.RegisterNode("node-2", "localhost", 9001, StateFollower)

	o.HandleLeaderAnnouncement("node-2", 2)

	status := o.Status()
	if status.LeaderID != "node-2" {
		t.Errorf("Expected leader node-2, got %s", status.LeaderID)
	}
	if status.State != "follower" {
		t.Errorf("Expected follower state after adoption, got %s", status.State)
	}
	if status.CurrentTerm != 2 {
		t.Errorf("Expected term 2, got %d", status.CurrentTerm)
	}

	// A stale announcement must be ignored.
	o.HandleLeaderAnnouncement("node-3", 1)
	if leader, _ := o.LeaderID(); leader != "node-2" {
		t.Errorf("Expected stale announcement ignored, leader is %s", leader)
	}

	// An equal-term announcement is adopted; the announcer holds the term.
	o.RegisterNode("node-3", "localhost", 9002, StateFollower)
	o.HandleLeaderAnnouncement("node-3", 2)
	if leader, _ := o.LeaderID(); leader != "node-3" {
		t.Errorf("Expected equal-term announcement adopted, leader is %s", leader)
	}
}

// TestLeaderAnnouncementResetsVote tests that adopting a leader frees the vote
func TestLeaderAnnouncementResetsVote(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")

	if !o.HandleVoteRequest("node-2", 3) {
		t.Fatal("Expected vote granted for term 3")
	}
	o.HandleLeaderAnnouncement("node-2", 3)

	// The announcement cleared the vote, so a candidate of the same term
	// can be granted again.
	if !o.HandleVoteRequest("node-4", 3) {
		t.Error("Expected vote available again after leader adoption")
	}
}

// TestLeaderAnnouncementDeposesLeader tests that a leader yields to a newer term
func TestLeaderAnnouncementDeposesLeader(t *testing.T) {
	o := newTestOrchestrator(t, "node-1")

	o.StartElection()
	if !o.IsLeader() {
		t.Fatal("Expected lone node to become leader")
	}

	o.RegisterNode("node-2", "localhost", 9001, StateFollower)
	o.HandleLeaderAnnouncement("node-2", o.Status().CurrentTerm+1)

	if o.IsLeader() {
		t.Error("Expected local leader to step down for a newer term")
	}
	if leader, _ := o.LeaderID(); leader != "node-2" {
		t.Errorf("Expected leader node-2, got %s", leader)
	}
}

// TestStalledElectionRetries tests that a candidate left without a leader
// keeps starting new elections instead of stalling
func TestStalledElectionRetries(t *testing.T) {
	o, err := New(Config{
		NodeID:            "node-1",
		BindAddress:       fmt.Sprintf("inproc://stalled-election-%d", atomic.AddUint64(&testEndpointSeq, 1)),
		Port:              0,
		HeartbeatInterval: 100 * time.Millisecond,
		ElectionTimeout:   300 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create orchestrator: %v", err)
	}

	// An unreachable peer means every vote round fails.
	o.RegisterNode("node-2", "localhost", 1, StateFollower)

	if err := o.Start(); err != nil {
		t.Fatalf("Failed to start orchestrator: %v", err)
	}
	defer o.Stop()

	waitFor(t, 5*time.Second, func() bool {
		return o.Status().CurrentTerm >= 2
	}, "Expected repeated election attempts to keep raising the term")

	if o.IsLeader() {
		t.Error("Expected no leadership without a reachable quorum")
	}
}

// TestTwoNodeElection tests a full vote round over the in-process transport
func TestTwoNodeElection(t *testing.T) {
	a := newTestOrchestrator(t, "alpha")
	b := newTestOrchestrator(t, "beta")

	// Cross-register before starting so neither auto-promotes as standalone.
	a.RegisterNode("beta", b.cfg.BindAddress, 0, StateFollower)
	b.RegisterNode("alpha", a.cfg.BindAddress, 0, StateFollower)

	if err := a.Start(); err != nil {
		t.Fatalf("Failed to start alpha: %v", err)
	}
	defer a.Stop()
	if err := b.Start(); err != nil {
		t.Fatalf("Failed to start beta: %v", err)
	}
	defer b.Stop()

	a.StartElection()

	waitFor(t, 3*time.Second, a.IsLeader, "alpha should win the election with beta's vote")
	waitFor(t, 3*time.Second, func() bool {
		leader, ok := b.LeaderID()
		return ok && leader == "alpha"
	}, "beta should adopt alpha after the leader announcement")

	if at, bt := a.Status().CurrentTerm, b.Status().CurrentTerm; at != bt {
		t.Errorf("Expected matching terms after the election, got alpha=%d beta=%d", at, bt)
	}
}
