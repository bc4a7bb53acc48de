package main

import (
	"fmt"

	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")

			cfg := config.Default()
			if vaultDir, _ := cmd.Flags().GetString("vault"); vaultDir != "" {
				cfg.VaultDir = vaultDir
			}
			if server, _ := cmd.Flags().GetString("server"); server != "" {
				cfg.ServerURL = server
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Printf("%s wrote %s\n", green("✓"), path)
			return nil
		},
	}
}
