package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openvault/vaultsync/internal/client"
	"github.com/openvault/vaultsync/internal/client/config"
	"github.com/openvault/vaultsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
)

var cyan = color.New(color.FgHiCyan, color.Bold).SprintFunc()

var rootCmd = &cobra.Command{
	Use:     "vaultsync",
	Short:   "Sync a local vault of documents with a remote endpoint",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromViper()
		if err != nil {
			return err
		}

		cmd.SilenceUsage = true
		fmt.Println(cyan(version.AppName), version.Short())

		c, err := client.New(cfg)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		if err := c.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "config file")
	rootCmd.PersistentFlags().StringP("vault", "d", config.DefaultVaultDir, "vault directory")
	rootCmd.PersistentFlags().StringP("server", "s", "", "sync server url")
}

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	handler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(handler))
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flags().Lookup("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".vaultsync"))
		viper.AddConfigPath(filepath.Join(home, ".config", "vaultsync"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("vault_dir", cmd.Flags().Lookup("vault"))
	viper.BindPFlag("server_url", cmd.Flags().Lookup("server"))

	viper.SetEnvPrefix("VAULTSYNC")
	viper.AutomaticEnv()

	return nil
}

func configFromViper() (*config.Config, error) {
	cfg := config.Default()
	cfg.Path = viper.ConfigFileUsed()
	cfg.VaultDir = viper.GetString("vault_dir")
	cfg.ServerURL = viper.GetString("server_url")

	if viper.IsSet("sync_enabled") {
		cfg.SyncEnabled = viper.GetBool("sync_enabled")
	}
	if viper.IsSet("pull_enabled") {
		cfg.PullEnabled = viper.GetBool("pull_enabled")
	}
	if viper.IsSet("debounce_delay_ms") {
		cfg.DebounceDelayMs = viper.GetInt("debounce_delay_ms")
	}
	if viper.IsSet("batch_size") {
		cfg.BatchSize = viper.GetInt("batch_size")
	}
	if viper.IsSet("bulk_batch_size") {
		cfg.BulkBatchSize = viper.GetInt("bulk_batch_size")
	}
	if viper.IsSet("queue_capacity") {
		cfg.QueueCapacity = viper.GetInt("queue_capacity")
	}
	if viper.IsSet("pull_interval_sec") {
		cfg.PullIntervalSec = viper.GetInt("pull_interval_sec")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
