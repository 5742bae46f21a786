package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqfsorg/libaqfs-go/config"
	"github.com/aqfsorg/libaqfs-go/engine"
	"github.com/aqfsorg/libaqfs-go/mirror"
)

var syncCmd = &cobra.Command{
	Use:   "sync <other-config>",
	Short: "Mirror keys between this store and another",
	Long: `Sync reconciles the live keys of the configured store and the store
described by <other-config>, copying in both directions. Keys present on
both sides are settled in favor of the newer write; nothing is deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		otherCfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		other, err := engine.Open(otherCfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = other.Close() }()

		copied, err := mirror.New(eng, other, log).Sync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("synced, %d key(s) copied\n", copied)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
