package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <key> [file]",
	Short: "Write a file (or stdin) under a key as a new version",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		var data []byte
		var err error
		if len(args) == 2 {
			data, err = os.ReadFile(args[1])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		version, err := eng.Write(cmd.Context(), key, data)
		if err != nil {
			return err
		}
		fmt.Printf("%s@%d (%d bytes)\n", key, version, len(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
