package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Identity operations",
		Long:  "Inspect the cluster identity and verify credentials",
	}

	cmd.AddCommand(identityShowCmd())
	cmd.AddCommand(identityVerifyCmd())

	return cmd
}

func identityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cluster identity snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			id, err := newClient().ClusterIdentity(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Key Hash: %s\n", id.IdentityKeyHash)
			fmt.Printf("Prime Instance: %s\n", id.PrimeInstanceID)
			fmt.Printf("Is Prime: %t\n", id.IsPrime)
			fmt.Printf("Node: %s\n", id.NodeID)
			for node, load := range id.NodeLoads {
				fmt.Printf("Load %s: %d\n", node, load)
			}
			return nil
		},
	}
}

func identityVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [key]",
		Short: "Verify an identity key against the cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
			defer cancel()

			valid, err := newClient().VerifyIdentity(ctx, args[0])
			if err != nil {
				return err
			}

			if valid {
				fmt.Println("Key is valid")
			} else {
				fmt.Println("Key is invalid")
			}
			return nil
		},
	}
}
