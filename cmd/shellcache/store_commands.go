package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shellcache/internal/ipc"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect named cache stores",
	}

	storeCmd.AddCommand(newStoreListCommand(ctx))
	storeCmd.AddCommand(newStoreShowCommand(ctx))

	return storeCmd
}

func newStoreListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cache stores with entry counts and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StoreList()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Stores) == 0 {
					fmt.Fprintln(stdout, "No cache stores")
					return nil
				}
				rows := make([][]string, 0, len(resp.Stores))
				for _, store := range resp.Stores {
					rows = append(rows, []string{
						store.Name,
						strconv.Itoa(store.Entries),
						humanize.Bytes(uint64(store.SizeBytes)),
						humanize.Time(store.CreatedAt),
						yesNo(store.Active),
					})
				}
				table := renderTable(
					[]string{"Store", "Entries", "Size", "Created", "Active"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func newStoreShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <store>",
		Short: "Show cached entries in a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StoreEntries(args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintf(stdout, "Store %s is empty\n", resp.Store)
					return nil
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					rows = append(rows, []string{
						entry.URL,
						strconv.Itoa(entry.Status),
						entry.ContentType,
						humanize.Bytes(uint64(entry.SizeBytes)),
						humanize.Time(entry.FetchedAt),
					})
				}
				table := renderTable(
					[]string{"URL", "Status", "Content-Type", "Size", "Fetched"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}
