package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncForce bool

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Export reports when new records exist",
	Long: `Export the knowledge-base reports if records were captured since the last
sync, then remember the sync time. --force exports regardless.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		defer v.Close()

		synced, err := v.agent().Sync(cmd.Context(), syncForce)
		if err != nil {
			fatal("Sync failed", err)
		}
		if !synced {
			fmt.Println("Already up to date.")
			return
		}
		fmt.Println("Sync completed successfully.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Export even without new records")
}
