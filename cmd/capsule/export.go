package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/capsule/pkg/report"
)

var exportList bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write weekly and monthly reports to the knowledge base",
	Long: `Write life/week_YYYY_WW.md and finance/month_YYYY_MM.md into the knowledge
base directory. With --list, print the reports already exported.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		defer v.Close()

		exporter := v.exporter()

		if exportList {
			docs, err := exporter.List()
			if err != nil {
				fatal("Failed to list reports", err)
			}
			if len(docs) == 0 {
				fmt.Println("No reports in", exporter.Dir())
				return
			}
			for _, d := range docs {
				fmt.Printf("%s  %-7s %3d records  ¥%.2f  %v\n", d.Path, d.Frontmatter.Type, d.Frontmatter.RecordCount, d.Frontmatter.TotalSpending, d.Frontmatter.Tags)
			}
			return
		}

		out, err := exporter.Export(cmd.Context())
		if errors.Is(err, report.ErrNoData) {
			fmt.Println("Nothing to export.")
			return
		}
		if err != nil {
			fatal("Export failed", err)
		}
		for _, path := range []string{out.Weekly, out.Monthly} {
			if path != "" {
				fmt.Println("Wrote", path)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().BoolVar(&exportList, "list", false, "List exported reports")
}
