package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/openvault/vaultsync/internal/client"
	"github.com/openvault/vaultsync/internal/client/sync"
	"github.com/spf13/cobra"
)

var (
	green = color.New(color.FgHiGreen).SprintFunc()
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push every document in the vault to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromViper()
			if err != nil {
				return err
			}
			if cfg.ServerURL == "" {
				return fmt.Errorf("no sync server configured, set one with --server or in %s", cfg.Path)
			}

			cmd.SilenceUsage = true

			c, err := client.New(cfg)
			if err != nil {
				return err
			}

			progress, err := c.RunBulkSync(cmd.Context(), func(p sync.SyncProgress) {
				fmt.Printf("\r%-60s", p.CurrentLabel)
			})
			fmt.Println()
			if err != nil {
				return err
			}

			if len(progress.Errors) > 0 {
				fmt.Printf("%s %d of %d documents failed:\n", red("!"), len(progress.Errors), progress.Total)
				for _, e := range progress.Errors {
					fmt.Println("  ", e)
				}
				return fmt.Errorf("bulk sync finished with errors")
			}

			fmt.Printf("%s synced %d documents\n", green("✓"), progress.Completed)
			return nil
		},
	}
}
