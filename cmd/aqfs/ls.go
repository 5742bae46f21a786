package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var lsLong bool

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all live keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := eng.Keys(cmd.Context())
		if err != nil {
			return err
		}

		if !lsLong {
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVERSION\tSIZE\tMODIFIED")
		for _, key := range keys {
			entry, err := eng.Stat(cmd.Context(), key)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
				key, entry.Version, entry.Size, entry.ModTime.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "show version, size, and modification time")
	rootCmd.AddCommand(lsCmd)
}
