package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/capsule/pkg/core"
	"github.com/spf13/cobra"
)

var (
	listJSON    bool
	listPending bool
)

// listedRecord is the JSON shape of a record; Position is the index
// accepted by `capsule done #<position>`.
type listedRecord struct {
	Position   int    `json:"position"`
	ID         string `json:"id"`
	RecordedAt string `json:"recorded_at"`
	Category   string `json:"category"`
	Content    string `json:"content"`
	TargetTime string `json:"target_time,omitempty"`
	Status     string `json:"status"`
	LinkedCost string `json:"linked_cost"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the records of the vault",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		defer v.Close()

		records, err := v.Svc.Records(cmd.Context())
		if err != nil {
			fatal("Failed to list records", err)
		}

		var out []listedRecord
		for i, r := range records {
			if listPending && !(r.Status == core.StatusPending && (r.Category == core.CategoryTodo || r.Category == core.CategorySchedule)) {
				continue
			}
			lr := listedRecord{
				Position:   i,
				ID:         r.ID,
				RecordedAt: r.RecordedAt.Format(time.DateTime),
				Category:   string(r.Category),
				Content:    r.Content,
				Status:     string(r.Status),
				LinkedCost: r.LinkedCost.String(),
			}
			if r.TargetTime != nil {
				lr.TargetTime = r.TargetTime.Format(time.DateTime)
			}
			out = append(out, lr)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(out); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		if len(out) == 0 {
			fmt.Println("No records.")
			return
		}
		for _, r := range out {
			mark := " "
			if r.Status == string(core.StatusDone) {
				mark = "x"
			}
			fmt.Printf("#%-3d [%s] %-8s %s  %s", r.Position, mark, r.Category, r.RecordedAt, r.Content)
			if r.TargetTime != "" {
				fmt.Printf("  (due %s)", r.TargetTime)
			}
			if r.LinkedCost != "0" {
				fmt.Printf("  ¥%s", r.LinkedCost)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listPending, "pending", false, "Only open todos and schedules")
}
