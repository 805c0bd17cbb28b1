package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shellcache/internal/ipc"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the active deployment version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetVersion()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Version)
				return nil
			})
		},
	}
}

func newSkipWaitingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip-waiting",
		Short: "Promote a waiting controller to activation immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SkipWaiting()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Skip requested (state: %s)\n", resp.State)
				return nil
			})
		},
	}
}

func newPushCommand(ctx *commandContext) *cobra.Command {
	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Push notification utilities",
	}

	var title string
	var body string
	sendCmd := &cobra.Command{
		Use:   "send [raw-json]",
		Short: "Deliver a push payload to the daemon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := ""
			if len(args) == 1 {
				payload = args[0]
			} else {
				payload = fmt.Sprintf(`{"title":%q,"body":%q}`, title, body)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Push([]byte(payload))
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Delivered {
					fmt.Fprintln(stdout, "Push delivered")
				} else {
					fmt.Fprintf(stdout, "Push failed: %s\n", resp.Message)
				}
				return nil
			})
		},
	}
	sendCmd.Flags().StringVar(&title, "title", "", "Notification title")
	sendCmd.Flags().StringVar(&body, "body", "", "Notification body")

	pushCmd.AddCommand(sendCmd)
	return pushCmd
}
