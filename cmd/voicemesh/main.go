package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicemesh/config"
	"voicemesh/pkg/cluster"
	"voicemesh/pkg/identity"
	"voicemesh/pkg/metrics"
	"voicemesh/pkg/server"
	"voicemesh/storage"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	host        = flag.String("host", "localhost", "HTTP server host")
	port        = flag.Int("port", 8765, "HTTP server port")
	bindAddr    = flag.String("bind-addr", "0.0.0.0", "Cluster endpoint bind address")
	clusterPort = flag.Int("cluster-port", 8766, "Cluster endpoint port")
	nodeID      = flag.String("node-id", "", "Node identifier (random if empty)")
	dataDir     = flag.String("data-dir", "./data", "Store data directory")
	backend     = flag.String("backend", "badger", "Store backend (badger or memory)")
	identityKey = flag.String("identity-key", "", "Pre-shared identity key")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		cfg = config.GetDefaultConfig()
		log.Printf("Using default configuration: %v", err)
	}

	// Override config with command line flags
	if *host != "localhost" {
		cfg.Server.Host = *host
	}
	if *port != 8765 {
		cfg.Server.Port = *port
	}
	if *bindAddr != "0.0.0.0" {
		cfg.Cluster.BindAddr = *bindAddr
	}
	if *clusterPort != 8766 {
		cfg.Cluster.Port = *clusterPort
	}
	if *nodeID != "" {
		cfg.Cluster.NodeID = *nodeID
	}
	if *dataDir != "./data" {
		cfg.Store.DataDir = *dataDir
	}
	if *backend != "badger" {
		cfg.Store.Backend = *backend
	}
	if *identityKey != "" {
		cfg.Identity.Key = *identityKey
	}

	// Cluster store: probes the durable backend once, falls back in-process.
	store := storage.Open(cfg.Store.Backend, cfg.Store.DataDir)
	defer store.Close()
	if _, inMemory := store.(*storage.MemoryStore); inMemory && cfg.Store.Backend != "memory" {
		metrics.DefaultRegistry().StoreFallback.Set(1)
	}

	orch, err := cluster.New(cluster.Config{
		NodeID:            cfg.Cluster.NodeID,
		BindAddress:       cfg.Cluster.BindAddr,
		Port:              cfg.Cluster.Port,
		HeartbeatInterval: time.Duration(cfg.Cluster.HeartbeatInterval) * time.Second,
		ElectionTimeout:   time.Duration(cfg.Cluster.ElectionTimeout) * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to create cluster orchestrator: %v", err)
	}

	idm := identity.NewManager(orch, store)
	idm.InitializeIdentity(context.Background(), cfg.Identity.Key)

	orch.OnLeaderChange(func(id string) {
		log.Printf("This node is now the prime instance: %s", id)
	})

	if err := orch.Start(); err != nil {
		log.Fatalf("Failed to start cluster orchestrator: %v", err)
	}
	defer orch.Stop()

	srv := server.NewServer(cfg, orch, idm, store)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Starting voicemesh node %s", orch.SelfID())
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("voicemesh node stopped")
}
