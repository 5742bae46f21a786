// Root of command-line argument parsing.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aqfsorg/libaqfs-go/config"
	"github.com/aqfsorg/libaqfs-go/engine"
)

var (
	cfgFile string
	log     = logrus.New()
	cfg     config.Config
	eng     *engine.Engine
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "aqfs",
	Short: "Versioned key-value storage on S3-compatible object stores",
	Long: `aqfs stores logical keys as content-addressed chunk sets in an
S3-compatible object store, with versioned atomic writes, deduplication,
and local caching.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		log.SetLevel(level)

		eng, err = engine.Open(cfg, log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if eng != nil {
			_ = eng.Close()
		}
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./aqfs.yaml, then ~/.aqfs/aqfs.yaml)")
}
