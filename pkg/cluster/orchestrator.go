package cluster

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicemesh/pkg/metrics"
)

const (
	loopInterval        = 100 * time.Millisecond
	healthCheckInterval = 2 * time.Second
	autoElectInterval   = 1 * time.Second
	stopTimeout         = 5 * time.Second
	// drainBatch bounds how many inbound messages one tick will answer so a
	// chatty peer cannot starve the health sweep.
	drainBatch = 16
)

// Orchestrator maintains the authoritative local view of cluster membership
// and runs the election state machine.
//
// Concurrent safety: a single mutex guards all membership and election
// state. The control loop and every public operation acquire it, so an
// inbound heartbeat and a concurrent GetLeader observe a consistent
// snapshot.
type Orchestrator struct {
	cfg Config

	mu           sync.Mutex
	nodes        map[string]*Node
	currentTerm  uint64
	state        NodeState
	leaderID     string
	votedFor     string
	lastElection time.Time

	endpoint *endpoint // nil when running degraded (bind failed)

	running bool
	stopCh  chan struct{}
	done    chan struct{}

	onLeaderChange func(nodeID string)

	metricsRegistry *metrics.Registry
}

// New creates an orchestrator, binds the election/heartbeat endpoint and
// self-registers the local node. A bind failure is not fatal: the
// orchestrator continues in degraded mode with elections disabled beyond
// the single-node path.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.New().String()
	}

	o := &Orchestrator{
		cfg:             cfg,
		nodes:           make(map[string]*Node),
		state:           StateFollower,
		lastElection:    time.Now(),
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
		metricsRegistry: metrics.DefaultRegistry(),
	}

	ep, err := newEndpoint(cfg.BindAddress, cfg.Port)
	if err != nil {
		log.Printf("Failed to bind election endpoint: %v. Running degraded, elections limited to single-node mode.", err)
	} else {
		o.endpoint = ep
		log.Printf("Election endpoint bound to %s", endpointURL(cfg.BindAddress, cfg.Port))
	}

	o.RegisterNode(cfg.NodeID, cfg.BindAddress, cfg.Port, StateFollower)
	return o, nil
}

// SelfID returns this process's node id.
func (o *Orchestrator) SelfID() string {
	return o.cfg.NodeID
}

// OnLeaderChange registers a callback fired when this node becomes leader.
func (o *Orchestrator) OnLeaderChange(fn func(nodeID string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onLeaderChange = fn
}

// RegisterNode adds or replaces a membership record. Duplicate registration
// is safe and refreshes the record.
func (o *Orchestrator) RegisterNode(id, address string, port int, state NodeState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nodes[id] = &Node{
		ID:            id,
		Address:       address,
		Port:          port,
		State:         state,
		LastHeartbeat: time.Now(),
		HealthStatus:  HealthHealthy,
	}
	log.Printf("Added node to cluster: %s at %s:%d", id, address, port)
	o.updateMetricsLocked()
}

// RemoveNode evicts a node. Removing the current leader clears leadership
// and starts a new election. Unknown ids are a no-op.
func (o *Orchestrator) RemoveNode(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.nodes[id]; !ok {
		return
	}
	delete(o.nodes, id)
	log.Printf("Removed node from cluster: %s", id)

	if o.leaderID == id {
		o.leaderID = ""
		o.state = StateFollower
		o.startElectionLocked()
	}
	o.updateMetricsLocked()
}

// GetLeader returns the current leader node, if one is known and still a
// member.
func (o *Orchestrator) GetLeader() (Node, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.leaderID == "" {
		return Node{}, false
	}
	n, ok := o.nodes[o.leaderID]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// LeaderID returns the current leader's id, if known.
func (o *Orchestrator) LeaderID() (string, bool) {
	n, ok := o.GetLeader()
	if !ok {
		return "", false
	}
	return n.ID, true
}

// IsLeader reports whether this node is the leader.
func (o *Orchestrator) IsLeader() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isLeaderLocked()
}

func (o *Orchestrator) isLeaderLocked() bool {
	return o.state == StateLeader && o.leaderID == o.cfg.NodeID
}

// NodeIDs returns the ids of all known nodes.
func (o *Orchestrator) NodeIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(o.nodes))
	for id := range o.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Status returns a consistent snapshot of the cluster view.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	nodes := make(map[string]NodeStatus, len(o.nodes))
	for id, n := range o.nodes {
		nodes[id] = n.status()
	}
	return Status{
		NodeID:      o.cfg.NodeID,
		State:       o.state.String(),
		CurrentTerm: o.currentTerm,
		LeaderID:    o.leaderID,
		IsLeader:    o.isLeaderLocked(),
		NodeCount:   len(o.nodes),
		Nodes:       nodes,
	}
}

// Start begins the control loop. In single-node deployments the local node
// is promoted to leader immediately; there is no quorum to wait for.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		log.Printf("Cluster orchestrator already running")
		return ErrAlreadyRunning
	}
	o.running = true

	if len(o.nodes) == 1 && o.state == StateFollower {
		log.Printf("Standalone mode detected - automatically electing node %s as leader", o.cfg.NodeID)
		o.becomeLeaderLocked()
	}
	state := o.state
	o.mu.Unlock()

	go o.run()
	log.Printf("Cluster orchestrator started (node_id: %s, state: %s)", o.cfg.NodeID, state)
	return nil
}

// Stop signals the control loop, waits a bounded time for it to exit and
// releases the listening endpoint. Safe to call multiple times, including on
// an orchestrator that was never started. A stopped orchestrator cannot be
// restarted; construct a new one.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	wasRunning := o.running
	o.running = false
	o.mu.Unlock()

	if wasRunning {
		close(o.stopCh)
		select {
		case <-o.done:
		case <-time.After(stopTimeout):
			log.Printf("Cluster loop did not exit within %v", stopTimeout)
		}
	}

	o.mu.Lock()
	ep := o.endpoint
	o.endpoint = nil
	o.mu.Unlock()
	if ep != nil {
		if err := ep.close(); err != nil {
			log.Printf("Error closing election endpoint: %v", err)
		}
	}

	if wasRunning {
		log.Printf("Cluster orchestrator stopped")
	}
}

// run is the control loop. Each concern has its own ticker: single-node
// auto-election, leader heartbeat emission, health sweep, and the inbound
// message drain.
func (o *Orchestrator) run() {
	defer close(o.done)

	drain := time.NewTicker(loopInterval)
	heartbeat := time.NewTicker(o.cfg.HeartbeatInterval)
	health := time.NewTicker(healthCheckInterval)
	autoElect := time.NewTicker(autoElectInterval)
	defer drain.Stop()
	defer heartbeat.Stop()
	defer health.Stop()
	defer autoElect.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-autoElect.C:
			o.electionTick()
		case <-heartbeat.C:
			o.heartbeatTick()
		case <-health.C:
			o.checkHealth()
		case <-drain.C:
			o.drainMessages()
		}
	}
}

// electionTick promotes a lone node that somehow lost leadership, and
// restarts stalled elections: a node that has gone a full election timeout
// without a leader (a candidate whose vote collection failed, or a follower
// that never heard an announcement) tries again.
func (o *Orchestrator) electionTick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.isLeaderLocked() {
		return
	}
	if len(o.nodes) == 1 {
		log.Printf("Standalone mode: auto-electing node %s as leader", o.cfg.NodeID)
		o.becomeLeaderLocked()
		return
	}
	if o.leaderID == "" && time.Since(o.lastElection) >= o.cfg.ElectionTimeout {
		log.Printf("No leader after %v, restarting election", o.cfg.ElectionTimeout)
		o.startElectionLocked()
	}
}

// heartbeatTick emits heartbeats when leading; a lone follower keeps its own
// record fresh instead.
func (o *Orchestrator) heartbeatTick() {
	o.mu.Lock()
	leading := o.isLeaderLocked()
	single := len(o.nodes) == 1
	o.mu.Unlock()

	if leading {
		o.sendHeartbeats()
	} else if single {
		o.refreshHeartbeat(o.cfg.NodeID)
	}
}

// drainMessages answers inbound election/heartbeat messages, at most
// drainBatch per tick. Transport errors are logged and the loop retries on
// its next tick.
func (o *Orchestrator) drainMessages() {
	if o.endpoint == nil {
		return
	}
	for i := 0; i < drainBatch; i++ {
		msg, ok, err := o.endpoint.receive()
		if err != nil {
			log.Printf("Error receiving cluster message: %v", err)
			return
		}
		if !ok {
			return
		}
		if err := o.endpoint.reply(o.handleMessage(msg)); err != nil {
			log.Printf("Error replying to cluster message: %v", err)
			return
		}
	}
}

// handleMessage dispatches one inbound message and builds its reply.
func (o *Orchestrator) handleMessage(msg Message) any {
	switch msg.Type {
	case MsgHeartbeat:
		o.refreshHeartbeat(msg.NodeID)
		return statusReply{Status: "ok"}

	case MsgVoteRequest:
		granted := o.HandleVoteRequest(msg.CandidateID, msg.Term)
		return voteReply{VoteGranted: granted}

	case MsgLeaderAnnouncement:
		o.HandleLeaderAnnouncement(msg.LeaderID, msg.Term)
		return statusReply{Status: "ok"}

	default:
		return statusReply{Status: "unknown_message_type"}
	}
}

// refreshHeartbeat marks a known node as alive. Unknown ids are ignored.
func (o *Orchestrator) refreshHeartbeat(nodeID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if n, ok := o.nodes[nodeID]; ok {
		n.LastHeartbeat = time.Now()
		n.HealthStatus = HealthHealthy
	}
}

// checkHealth marks nodes with stale heartbeats unhealthy and reacts to
// leader loss. In single-node mode a stale self heals itself instead of
// churning through elections.
func (o *Orchestrator) checkHealth() {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	for id, n := range o.nodes {
		age := now.Sub(n.LastHeartbeat)
		if age <= o.cfg.ElectionTimeout {
			continue
		}

		single := len(o.nodes) == 1
		self := id == o.cfg.NodeID

		// Cold start: the sole member is promoted rather than flagged.
		if single && self && !o.isLeaderLocked() {
			o.becomeLeaderLocked()
			n.LastHeartbeat = now
			n.HealthStatus = HealthHealthy
			continue
		}

		n.HealthStatus = HealthUnhealthy
		log.Printf("Node %s is unhealthy (no heartbeat for %.1fs)", id, age.Seconds())

		switch {
		case o.leaderID == id && !o.isLeaderLocked():
			log.Printf("Leader %s is unhealthy, triggering election", id)
			o.leaderID = ""
			o.state = StateFollower
			o.startElectionLocked()

		case single && self && o.isLeaderLocked():
			// Self-healing: refresh rather than re-elect ourselves.
			n.LastHeartbeat = now
			n.HealthStatus = HealthHealthy

		case self && o.isLeaderLocked():
			// A leader judging itself stale is a fatal anomaly; step down
			// and force a re-election.
			log.Printf("Leader %s failed its own health check, stepping down", id)
			o.leaderID = ""
			o.state = StateFollower
			o.startElectionLocked()
		}
	}
	o.updateMetricsLocked()
}

// sendHeartbeats refreshes the local heartbeat and pushes one to every peer.
func (o *Orchestrator) sendHeartbeats() {
	o.refreshHeartbeat(o.cfg.NodeID)

	if o.endpoint == nil {
		return
	}
	for _, peer := range o.peers() {
		go func(p Node) {
			var reply statusReply
			msg := Message{Type: MsgHeartbeat, NodeID: o.cfg.NodeID}
			if err := request(p.Address, p.Port, msg, &reply); err != nil {
				log.Printf("Heartbeat to %s failed: %v", p.ID, err)
			}
		}(peer)
	}
}

// peers returns copies of every node except self.
func (o *Orchestrator) peers() []Node {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.peersLocked()
}

func (o *Orchestrator) peersLocked() []Node {
	peers := make([]Node, 0, len(o.nodes))
	for id, n := range o.nodes {
		if id == o.cfg.NodeID {
			continue
		}
		peers = append(peers, *n)
	}
	return peers
}

func (o *Orchestrator) updateMetricsLocked() {
	if o.metricsRegistry == nil {
		return
	}
	o.metricsRegistry.NodesTotal.Set(float64(len(o.nodes)))
	healthy := 0
	for _, n := range o.nodes {
		if n.HealthStatus == HealthHealthy {
			healthy++
		}
	}
	o.metricsRegistry.HealthyNodesTotal.Set(float64(healthy))
	o.metricsRegistry.Term.Set(float64(o.currentTerm))
	o.metricsRegistry.SetRole(o.state.String())
}
