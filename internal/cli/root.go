package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LoopringSecondary/protocol2-js/internal/config"
)

var (
	// Global flags
	configFile string
	debug      bool
	verbose    bool
	quiet      bool

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ringsim",
	Short: "ringsim - ring-matching settlement simulator",
	Long: `ringsim is an idiomatic Go implementation of a ring-matching settlement
simulator for an off-chain peer-to-peer order-exchange protocol: given a
batch of orders bundled into rings by a miner, it computes fills, fees,
burns, rebates and margin, and emits the exact token transfers a matching
on-chain settlement would produce.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output to console after startup")
}

// initConfig loads configuration from configFile (or the built-in
// defaults when no path was given) once, before any subcommand runs.
func initConfig() {
	loaded, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		os.Exit(1)
	}
	if debug {
		loaded.LogDebug = true
	}
	cfg = loaded
}
