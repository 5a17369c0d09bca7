package cluster

import (
	"log"
	"time"
)

// StartElection initiates a new election.
func (o *Orchestrator) StartElection() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startElectionLocked()
}

// startElectionLocked increments the term, transitions to candidate, clears
// any recorded leader, records a self-vote and broadcasts vote requests to
// all known peers. Must be called with the lock held.
func (o *Orchestrator) startElectionLocked() {
	if o.state == StateLeader {
		return
	}

	o.currentTerm++
	o.state = StateCandidate
	o.votedFor = o.cfg.NodeID
	o.leaderID = ""
	o.lastElection = time.Now()
	term := o.currentTerm

	log.Printf("Started election for term %d", term)
	if o.metricsRegistry != nil {
		o.metricsRegistry.ElectionsTotal.WithLabelValues("started").Inc()
	}

	peers := o.peersLocked()

	// Single-node deployments have no quorum to wait for.
	if len(peers) == 0 {
		o.becomeLeaderLocked()
		return
	}

	if o.endpoint == nil {
		log.Printf("No election endpoint available; staying candidate for term %d", term)
		return
	}

	go o.requestVotes(term, peers)
}

// requestVotes sends vote requests to all peers and tallies the outcome. A
// majority of the full membership (peers plus self) wins.
func (o *Orchestrator) requestVotes(term uint64, peers []Node) {
	voteCh := make(chan bool, len(peers))
	for _, peer := range peers {
		go func(p Node) {
			select {
			case <-o.stopCh:
				return
			default:
			}
			var reply voteReply
			msg := Message{Type: MsgVoteRequest, CandidateID: o.cfg.NodeID, Term: term}
			if err := request(p.Address, p.Port, msg, &reply); err != nil {
				log.Printf("Vote request to %s failed: %v", p.ID, err)
				voteCh <- false
				return
			}
			voteCh <- reply.VoteGranted
		}(peer)
	}

	quorum := (len(peers)+1)/2 + 1
	granted := 1 // self-vote
	received := 0
	timeout := time.After(requestTimeout)

	for received < len(peers) {
		select {
		case <-o.stopCh:
			return

		case <-timeout:
			log.Printf("Vote collection for term %d timed out (%d/%d granted)", term, granted, quorum)
			if o.metricsRegistry != nil {
				o.metricsRegistry.ElectionsTotal.WithLabelValues("timeout").Inc()
			}
			return

		case g := <-voteCh:
			received++
			if !g {
				continue
			}
			granted++
			log.Printf("Received vote for term %d (total: %d/%d)", term, granted, quorum)

			if granted < quorum {
				continue
			}

			o.mu.Lock()
			// The term may have moved on while votes were in flight.
			if o.state != StateCandidate || o.currentTerm != term {
				o.mu.Unlock()
				return
			}
			log.Printf("Won election for term %d with %d votes", term, granted)
			o.becomeLeaderLocked()
			announce := o.peersLocked()
			o.mu.Unlock()

			o.announceLeadership(term, announce)
			return
		}
	}

	log.Printf("Lost election for term %d (%d/%d granted)", term, granted, quorum)
	if o.metricsRegistry != nil {
		o.metricsRegistry.ElectionsTotal.WithLabelValues("lost").Inc()
	}
}

// announceLeadership informs every peer of the new leader for the term.
func (o *Orchestrator) announceLeadership(term uint64, peers []Node) {
	for _, peer := range peers {
		go func(p Node) {
			var reply statusReply
			msg := Message{Type: MsgLeaderAnnouncement, LeaderID: o.cfg.NodeID, Term: term}
			if err := request(p.Address, p.Port, msg, &reply); err != nil {
				log.Printf("Leader announcement to %s failed: %v", p.ID, err)
			}
		}(peer)
	}
}

// becomeLeaderLocked transitions to leader. Must be called with the lock held.
func (o *Orchestrator) becomeLeaderLocked() {
	o.state = StateLeader
	o.leaderID = o.cfg.NodeID

	if self, ok := o.nodes[o.cfg.NodeID]; ok {
		self.State = StateLeader
		self.Term = o.currentTerm
		self.LastHeartbeat = time.Now()
		self.HealthStatus = HealthHealthy
	}

	log.Printf("Node %s became leader for term %d", o.cfg.NodeID, o.currentTerm)
	if o.metricsRegistry != nil {
		o.metricsRegistry.ElectionsTotal.WithLabelValues("won").Inc()
		o.metricsRegistry.SetRole("leader")
		o.metricsRegistry.Term.Set(float64(o.currentTerm))
	}

	if o.onLeaderChange != nil {
		callback := o.onLeaderChange
		id := o.cfg.NodeID
		go func() {
			select {
			case <-o.stopCh:
			default:
				callback(id)
			}
		}()
	}
}

// HandleVoteRequest applies the voting rule: grant when the candidate's term
// is strictly newer (raising the local term), or equal with no vote cast yet
// this term. A node grants at most one vote per term.
func (o *Orchestrator) HandleVoteRequest(candidateID string, term uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case term > o.currentTerm:
		o.currentTerm = term
		o.votedFor = candidateID
		if o.metricsRegistry != nil {
			o.metricsRegistry.Term.Set(float64(o.currentTerm))
		}
		log.Printf("Granted vote to %s for term %d", candidateID, term)
		return true

	case term == o.currentTerm && o.votedFor == "":
		o.votedFor = candidateID
		log.Printf("Granted vote to %s for term %d", candidateID, term)
		return true

	default:
		log.Printf("Denied vote to %s for term %d (current term %d, voted for %q)",
			candidateID, term, o.currentTerm, o.votedFor)
		return false
	}
}

// HandleLeaderAnnouncement adopts an announced leader whose term is at least
// as new as ours. Stale announcements are ignored.
func (o *Orchestrator) HandleLeaderAnnouncement(leaderID string, term uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if term < o.currentTerm {
		log.Printf("Ignoring stale leader announcement from %s (term %d < %d)", leaderID, term, o.currentTerm)
		return
	}

	o.currentTerm = term
	o.leaderID = leaderID
	o.state = StateFollower
	o.votedFor = ""

	if self, ok := o.nodes[o.cfg.NodeID]; ok {
		self.State = StateFollower
		self.Term = term
	}
	if n, ok := o.nodes[leaderID]; ok {
		n.State = StateLeader
		n.Term = term
		n.LastHeartbeat = time.Now()
		n.HealthStatus = HealthHealthy
	}

	log.Printf("New leader announced: %s (term %d)", leaderID, term)
	if o.metricsRegistry != nil {
		o.metricsRegistry.SetRole("follower")
		o.metricsRegistry.Term.Set(float64(term))
	}
}
