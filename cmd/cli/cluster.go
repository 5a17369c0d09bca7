package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func clusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster operations",
		Long:  "Inspect and manage cluster membership",
	}

	cmd.AddCommand(clusterStatusCmd())
	cmd.AddCommand(clusterLeaderCmd())
	cmd.AddCommand(clusterNodesCmd())
	cmd.AddCommand(clusterJoinCmd())
	cmd.AddCommand(clusterRemoveCmd())

	return cmd
}

func clusterStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get cluster status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			status, err := newClient().ClusterStatus(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Node: %s\n", status.NodeID)
			fmt.Printf("State: %s\n", status.State)
			fmt.Printf("Term: %d\n", status.CurrentTerm)
			fmt.Printf("Leader: %s\n", status.LeaderID)
			fmt.Printf("Is Leader: %t\n", status.IsLeader)
			fmt.Printf("Total Nodes: %d\n", status.NodeCount)
			return nil
		},
	}
}

func clusterLeaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leader",
		Short: "Get current leader node",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			status, err := newClient().ClusterStatus(ctx)
			if err != nil {
				return err
			}

			if status.LeaderID == "" {
				fmt.Println("No leader elected")
				return nil
			}
			if node, ok := status.Nodes[status.LeaderID]; ok {
				fmt.Printf("Leader: %s (%s:%d)\n", node.NodeID, node.Address, node.Port)
				fmt.Printf("Term: %d\n", node.Term)
				return nil
			}
			fmt.Printf("Leader: %s\n", status.LeaderID)
			return nil
		},
	}
}

func clusterNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List all cluster nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			status, err := newClient().ClusterStatus(ctx)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(status.Nodes))
			for id := range status.Nodes {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for i, id := range ids {
				node := status.Nodes[id]
				leader := ""
				if id == status.LeaderID {
					leader = " (Leader)"
				}
				fmt.Printf("%d) %s - %s:%d - %s - %s%s\n",
					i+1, node.NodeID, node.Address, node.Port, node.State, node.HealthStatus, leader)
			}

			return nil
		},
	}
}

func clusterJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join [node-id] [address] [port]",
		Short: "Register a node in the cluster",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[2], err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			if err := newClient().RegisterNode(ctx, args[0], args[1], port); err != nil {
				return err
			}
			fmt.Printf("Registered node %s\n", args[0])
			return nil
		},
	}
}

func clusterRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [node-id]",
		Short: "Remove a node from the cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			if err := newClient().RemoveNode(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed node %s\n", args[0])
			return nil
		},
	}
}
