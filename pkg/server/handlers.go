package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"voicemesh/pkg/cluster"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"node_id":         s.orchestrator.SelfID(),
		"store_available": s.store.Available(),
	})
}

func (s *Server) handleClusterStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.orchestrator.Status())
}

func (s *Server) handleClusterIdentity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.identity.ClusterIdentity())
}

// RegisterNodeRequest is the body accepted by POST /cluster/nodes.
type RegisterNodeRequest struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
	Port    int    `json:"port"`
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req RegisterNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NodeID == "" {
		http.Error(w, "node_id, address and port are required", http.StatusBadRequest)
		return
	}
	s.orchestrator.RegisterNode(req.NodeID, req.Address, req.Port, cluster.StateFollower)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/cluster/nodes/")
	if id == "" {
		http.Error(w, "node id required", http.StatusBadRequest)
		return
	}
	// Removing an unknown node is a no-op.
	s.orchestrator.RemoveNode(id)
	w.WriteHeader(http.StatusNoContent)
}

// AllocateRequest is the body accepted by POST /requests.
type AllocateRequest struct {
	NodeID string `json:"node_id,omitempty"`
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req AllocateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	target := s.identity.AllocateRequest(req.NodeID)
	writeJSON(w, http.StatusOK, map[string]string{"node_id": target})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/requests/")
	if id == "" {
		http.Error(w, "node id required", http.StatusBadRequest)
		return
	}
	s.identity.ReleaseRequest(id)
	w.WriteHeader(http.StatusNoContent)
}

// VerifyRequest is the body accepted by POST /identity/verify.
type VerifyRequest struct {
	IdentityKey string `json:"identity_key"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": s.identity.VerifyIdentity(req.IdentityKey)})
}
