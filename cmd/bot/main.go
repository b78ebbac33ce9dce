package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "QuantDesk trading signal bot",
	Long: `QuantDesk computes and publishes trading signals for two strategies:

    TMEM   daily SPY regime check and quarterly top-30 momentum rebalance
    MEC    monthly top-40 momentum rebalance with earnings confirmation

Run "bot run" to start the scheduler.`,
	SilenceUsage: true,
}

func init() {
	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print reports to stdout instead of publishing them")

	rootCmd.AddCommand(runCmd, regimeCmd, rankCmd, signalsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
