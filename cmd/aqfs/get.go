package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqfsorg/libaqfs-go/engine"
)

var getRange string

var getCmd = &cobra.Command{
	Use:   "get <key> [file]",
	Short: "Read the current version of a key to a file (or stdout)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		rng, err := parseRange(getRange)
		if err != nil {
			return err
		}

		data, err := eng.Read(cmd.Context(), key, rng)
		if err != nil {
			return err
		}

		if len(args) == 2 {
			return os.WriteFile(args[1], data, 0644)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

// parseRange parses "offset:length" into a Range. Empty means full read.
func parseRange(s string) (*engine.Range, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid range %q, want offset:length", s)
	}
	offset, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid range offset %q: %w", parts[0], err)
	}
	length, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid range length %q: %w", parts[1], err)
	}
	return &engine.Range{Offset: offset, Length: length}, nil
}

func init() {
	getCmd.Flags().StringVar(&getRange, "range", "", "byte range to read, as offset:length")
	rootCmd.AddCommand(getCmd)
}
