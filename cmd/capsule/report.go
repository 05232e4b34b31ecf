package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/capsule/pkg/core"
	"github.com/aretw0/capsule/pkg/report"
)

var (
	reportJSON      bool
	reportNarrative bool
)

var reportCmd = &cobra.Command{
	Use:       "report [week|month|year]",
	Short:     "Summarize the trailing week, month or year",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(report.Week), string(report.Month), string(report.Year)},
	Run: func(cmd *cobra.Command, args []string) {
		window := report.Week
		if len(args) == 1 {
			w, err := report.ParseWindow(args[0])
			if err != nil {
				fatal("Invalid window", err)
			}
			window = w
		}

		v := openVault()
		defer v.Close()

		s, err := v.aggregator().Summarize(cmd.Context(), window)
		if errors.Is(err, report.ErrNoData) {
			fmt.Printf("本%s暂无记录。\n", window.Label())
			return
		}
		if err != nil {
			fatal("Failed to summarize", err)
		}

		if reportJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(s); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		renderSummary(os.Stdout, s)

		if reportNarrative {
			n := v.narrator()
			if n == nil {
				fmt.Println("\n(AI 分析已跳过: 未设置 CAPSULE_API_KEY)")
				return
			}
			fmt.Println("\n## AI 分析")
			fmt.Println(n.Generate(cmd.Context(), s, window.Label()))
		}
	},
}

// renderSummary prints the statistics block of a report.
func renderSummary(w io.Writer, s report.Summary) {
	fmt.Fprintf(w, "# 本%s统计 (%s ~ %s)\n\n", s.Label, s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"))
	fmt.Fprintf(w, "记录总数: %d\n", s.Records)
	for _, c := range []core.Category{core.CategoryTodo, core.CategorySchedule, core.CategoryFinance, core.CategoryIdea} {
		fmt.Fprintf(w, "  %-8s %d\n", c, s.Count(c))
	}

	sp := s.Spending
	fmt.Fprintf(w, "\n## 消费\n")
	fmt.Fprintf(w, "总支出: ¥%s (%d 笔), 日均 ¥%s\n", sp.Total.StringFixed(2), sp.Count, sp.DailyAverage.StringFixed(2))
	if sp.Total.IsPositive() {
		fmt.Fprintf(w, "周末: ¥%s (%.1f%%), 工作日: ¥%s\n", sp.Weekend.StringFixed(2), sp.WeekendShare, sp.Weekday.StringFixed(2))
		for _, ca := range sp.ByCategory {
			fmt.Fprintf(w, "  %s: ¥%s (%.1f%%)\n", ca.Category, ca.Amount.StringFixed(2), ca.Share(sp.Total))
		}
		for i, r := range sp.Top {
			fmt.Fprintf(w, "  %d. %s ¥%s\n", i+1, r.Content, r.LinkedCost.StringFixed(2))
		}
	}

	c := s.Completion
	fmt.Fprintf(w, "\n## 待办完成率\n%d/%d (%.1f%%)\n", c.Completed, c.Todos, c.Rate)

	if len(s.Schedules) > 0 {
		fmt.Fprintf(w, "\n## 日程\n")
		for _, item := range s.Schedules {
			fmt.Fprintf(w, "- %s\n", item)
		}
	}
	if len(s.Ideas) > 0 {
		fmt.Fprintf(w, "\n## 灵感\n")
		for _, item := range s.Ideas {
			fmt.Fprintf(w, "- %s\n", item)
		}
	}
	if s.IdeaPeak != nil {
		fmt.Fprintf(w, "灵感高峰: %s %d:00\n", s.IdeaPeak.WeekdayLabel(), s.IdeaPeak.Hour)
	}
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Output in JSON format")
	reportCmd.Flags().BoolVar(&reportNarrative, "narrative", false, "Append an AI narrative (needs CAPSULE_API_KEY)")
}
