package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"voicemesh/client"
)

var (
	serverAddr string
	timeout    int
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "voicemesh",
		Short: "voicemesh - cluster coordination CLI",
		Long:  `voicemesh manages node membership, leader election and request routing for a voicemesh cluster`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:8765", "Server address")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 30, "Request timeout in seconds")

	// Add subcommands
	rootCmd.AddCommand(clusterCmd())
	rootCmd.AddCommand(identityCmd())
	rootCmd.AddCommand(requestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverAddr, &client.Options{
		Timeout: time.Duration(timeout) * time.Second,
	})
}
