package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shellcache/internal/ipc"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage dynamic cache contents",
	}

	cacheCmd.AddCommand(newCacheAddCommand(ctx))

	return cacheCmd
}

func newCacheAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url> [url...]",
		Short: "Fetch URLs from the upstream and cache them eagerly",
		Long: "Fetches each root-relative URL from the upstream origin and stores " +
			"the cacheable responses in the dynamic store, ahead of any request " +
			"hitting the proxy.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CacheURLs(args)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Cached %d of %d URLs\n", resp.Stored, resp.Requested)
				if resp.Stored < resp.Requested {
					fmt.Fprintln(stdout, "Some URLs were skipped; check the daemon log for details")
				}
				return nil
			})
		},
	}
}
