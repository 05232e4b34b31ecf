package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove duplicated records",
	Long:  `Rewrite the store without records that repeat an earlier record on every column except the ID.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		defer v.Close()

		removed, err := v.Svc.Deduplicate(cmd.Context())
		if err != nil {
			fatal("Failed to deduplicate", err)
		}
		fmt.Printf("Removed %d duplicated record(s).\n", removed)
	},
}

func init() {
	rootCmd.AddCommand(dedupCmd)
}
