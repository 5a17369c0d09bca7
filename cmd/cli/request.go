package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func requestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request routing operations",
		Long:  "Allocate and release units of work across cluster nodes",
	}

	cmd.AddCommand(requestAllocateCmd())
	cmd.AddCommand(requestReleaseCmd())

	return cmd
}

func requestAllocateCmd() *cobra.Command {
	var nodeID string

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate a request to a node",
		Long:  "Allocate a request; without --node the least loaded node is picked",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			target, err := newClient().Allocate(ctx, nodeID)
			if err != nil {
				return err
			}
			fmt.Printf("Allocated to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&nodeID, "node", "", "Target node (least loaded if empty)")

	return cmd
}

func requestReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release [node-id]",
		Short: "Release a request from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			if err := newClient().Release(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Released from %s\n", args[0])
			return nil
		},
	}
}
