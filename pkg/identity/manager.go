// Package identity manages the cluster-wide shared identity, prime instance
// tracking and load-aware request routing.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"log"
	"math"
	"sync"
	"time"

	"voicemesh/pkg/metrics"
	"voicemesh/storage"
)

const (
	identityKeyName   = "identity_key"
	resourceKeyPrefix = "resources:"
	resourceTTL       = 60 * time.Second

	// Weights for the combined load score.
	cpuWeight    = 0.5
	memoryWeight = 0.3
)

// ClusterView is the slice of the orchestrator the identity manager depends
// on. Keeping it an interface lets collaborators drive routing without
// knowing the orchestrator's concrete type.
type ClusterView interface {
	SelfID() string
	LeaderID() (string, bool)
	IsLeader() bool
	NodeIDs() []string
}

// ResourceSample is one timestamped cpu/memory reading for a node.
type ResourceSample struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Identity is the snapshot returned by the identity query surface. The raw
// identity key is never part of it.
type Identity struct {
	IdentityKeyHash string                    `json:"identity_key_hash"`
	PrimeInstanceID string                    `json:"prime_instance_id,omitempty"`
	IsPrime         bool                      `json:"is_prime"`
	NodeID          string                    `json:"node_id"`
	ResourceUsage   map[string]ResourceSample `json:"resource_usage"`
	NodeLoads       map[string]int            `json:"node_loads"`
}

// Manager derives the shared cluster credential, mirrors the orchestrator's
// leader as the prime instance and balances inbound work across nodes.
// Safe for concurrent use.
type Manager struct {
	view  ClusterView
	store storage.Store

	mu              sync.Mutex
	identityKey     string
	identityKeyHash string
	primeInstanceID string
	resourceUsage   map[string]ResourceSample
	nodeLoads       map[string]int

	metricsRegistry *metrics.Registry
}

// NewManager creates an identity manager over the given cluster view and
// store. Either may be nil; the manager degrades to local-only behavior.
func NewManager(view ClusterView, store storage.Store) *Manager {
	return &Manager{
		view:            view,
		store:           store,
		resourceUsage:   make(map[string]ResourceSample),
		nodeLoads:       make(map[string]int),
		metricsRegistry: metrics.DefaultRegistry(),
	}
}

func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// InitializeIdentity adopts the supplied key, or loads the cluster's key
// from the store, or generates and persists a fresh one. The digest is
// always recomputed. Store failures are logged and treated as misses.
func (m *Manager) InitializeIdentity(ctx context.Context, existingKey string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := existingKey
	if key == "" && m.store != nil {
		val, found, err := m.store.Get(ctx, identityKeyName)
		if err != nil {
			log.Printf("Error reading identity key from store: %v", err)
		} else if found {
			key = string(val)
			log.Printf("Retrieved existing identity key from cluster store")
		}
	}

	if key == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand failure means the process has no usable entropy
			// source; nothing sensible can be derived.
			panic(err)
		}
		key = base64.RawURLEncoding.EncodeToString(buf)
		log.Printf("Generated new identity key for cluster")

		if m.store != nil {
			if err := m.store.Set(ctx, identityKeyName, []byte(key), 0); err != nil {
				log.Printf("Error persisting identity key: %v", err)
			}
		}
	}

	m.identityKey = key
	m.identityKeyHash = digest(key)
	return key
}

// VerifyIdentity reports whether the candidate key matches the cluster
// identity. Only digests are compared, never raw keys.
func (m *Manager) VerifyIdentity(candidateKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identityKey == "" {
		return false
	}
	return digest(candidateKey) == m.identityKeyHash
}

// PrimeInstance returns the id of the prime instance (the cluster leader).
// The last known id is cached for when the orchestrator has no leader yet.
func (m *Manager) PrimeInstance() (string, bool) {
	if m.view != nil {
		if id, ok := m.view.LeaderID(); ok {
			m.mu.Lock()
			m.primeInstanceID = id
			m.mu.Unlock()
			return id, true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primeInstanceID, m.primeInstanceID != ""
}

// IsPrime reports whether this node is the prime instance.
func (m *Manager) IsPrime() bool {
	if m.view != nil {
		return m.view.IsLeader()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.primeInstanceID != "" && m.primeInstanceID == m.nodeID()
}

func (m *Manager) nodeID() string {
	if m.view != nil {
		return m.view.SelfID()
	}
	return ""
}

// UpdateResourceUsage records a timestamped sample locally and publishes it
// to the cluster store with a short TTL so stale nodes' metrics disappear.
func (m *Manager) UpdateResourceUsage(ctx context.Context, nodeID string, cpuPercent, memoryPercent float64) {
	sample := ResourceSample{
		CPUPercent:    cpuPercent,
		MemoryPercent: memoryPercent,
		UpdatedAt:     time.Now(),
	}

	m.mu.Lock()
	m.resourceUsage[nodeID] = sample
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	data, err := json.Marshal(sample)
	if err != nil {
		log.Printf("Error encoding resource sample for %s: %v", nodeID, err)
		return
	}
	if err := m.store.Set(ctx, resourceKeyPrefix+nodeID, data, resourceTTL); err != nil {
		log.Printf("Error publishing resource sample for %s: %v", nodeID, err)
	}
}

// LeastLoadedNode returns the node with the lowest combined load score:
// in-flight requests + 0.5*cpu + 0.3*memory, missing samples counting as
// zero. Ties keep the first node encountered. An empty cluster falls back
// to this node.
func (m *Manager) LeastLoadedNode() string {
	self := m.nodeID()
	if m.view == nil {
		return self
	}
	ids := m.view.NodeIDs()
	if len(ids) == 0 {
		return self
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	leastLoaded := ""
	minLoad := math.Inf(1)
	for _, id := range ids {
		load := float64(m.nodeLoads[id])
		if sample, ok := m.resourceUsage[id]; ok {
			load += sample.CPUPercent*cpuWeight + sample.MemoryPercent*memoryWeight
		}
		if load < minLoad {
			minLoad = load
			leastLoaded = id
		}
	}

	if leastLoaded == "" {
		return self
	}
	return leastLoaded
}

// AllocateRequest assigns a unit of work to a node and bumps its in-flight
// counter. An empty target selects the least loaded node.
func (m *Manager) AllocateRequest(nodeID string) string {
	target := nodeID
	if target == "" {
		target = m.LeastLoadedNode()
	}

	m.mu.Lock()
	m.nodeLoads[target]++
	inFlight := m.nodeLoads[m.nodeID()]
	m.mu.Unlock()

	if m.metricsRegistry != nil {
		m.metricsRegistry.RequestsInFlight.Set(float64(inFlight))
	}
	return target
}

// ReleaseRequest decrements a node's in-flight counter. Unknown or already
// drained nodes are a no-op.
func (m *Manager) ReleaseRequest(nodeID string) {
	m.mu.Lock()
	if m.nodeLoads[nodeID] > 0 {
		m.nodeLoads[nodeID]--
	}
	inFlight := m.nodeLoads[m.nodeID()]
	m.mu.Unlock()

	if m.metricsRegistry != nil {
		m.metricsRegistry.RequestsInFlight.Set(float64(inFlight))
	}
}

// ClusterIdentity returns the identity snapshot for the status surface.
func (m *Manager) ClusterIdentity() Identity {
	prime, _ := m.PrimeInstance()
	isPrime := m.IsPrime()

	m.mu.Lock()
	defer m.mu.Unlock()

	usage := make(map[string]ResourceSample, len(m.resourceUsage))
	for id, sample := range m.resourceUsage {
		usage[id] = sample
	}
	loads := make(map[string]int, len(m.nodeLoads))
	for id, n := range m.nodeLoads {
		loads[id] = n
	}

	return Identity{
		IdentityKeyHash: m.identityKeyHash,
		PrimeInstanceID: prime,
		IsPrime:         isPrime,
		NodeID:          m.nodeID(),
		ResourceUsage:   usage,
		NodeLoads:       loads,
	}
}
