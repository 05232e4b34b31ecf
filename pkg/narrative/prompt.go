package narrative

import (
	"fmt"
	"strings"

	"github.com/aretw0/capsule/pkg/core"
	"github.com/aretw0/capsule/pkg/report"
)

const persona = "你是一个专业的生活分析师。"

const instructions = `请从以下维度分析：
1. **财务健康**: 消费模式、异常支出、省钱建议
2. **时间管理**: 待办完成率、时间分配
3. **行为习惯**: 创意高峰期、生活规律性
4. **对比趋势**: 与历史对比（如果有明显变化）
5. **行动建议**: 3条具体可执行的改进建议（⚠️ 重点：这些建议需要非常具体，可以直接转化为下周的待办事项）

**输出格式要求**：
- 分为两部分：【深度洞察】和【下周行动建议】
- 洞察部分控制在200字以内
- 行动建议以清单形式给出，每条建议应该是可执行的动作
- 语气友好、鼓励性，基于数据而非臆测`

// BuildPrompt renders the fixed analysis prompt for a summary.
func BuildPrompt(s report.Summary, label string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s基于以下用户的%s数据，请提供深度洞察和建议。\n\n", persona, label)

	b.WriteString("**统计数据**:\n")
	fmt.Fprintf(&b, "- 记录总数: %d\n", s.Records)
	fmt.Fprintf(&b, "- 分类: 待办 %d, 日程 %d, 财务 %d, 创意 %d\n",
		s.Count(core.CategoryTodo), s.Count(core.CategorySchedule), s.Count(core.CategoryFinance), s.Count(core.CategoryIdea))
	fmt.Fprintf(&b, "- 总支出: ¥%s (周末 ¥%s, 工作日 ¥%s, 周末占比 %.1f%%)\n",
		s.Spending.Total.StringFixed(2), s.Spending.Weekend.StringFixed(2), s.Spending.Weekday.StringFixed(2), s.Spending.WeekendShare)
	fmt.Fprintf(&b, "- 日均消费: ¥%s\n", s.Spending.DailyAverage.StringFixed(2))
	if s.Spending.TopCategory != "" {
		fmt.Fprintf(&b, "- 最大支出类别: %s\n", s.Spending.TopCategory)
	}
	for _, c := range s.Spending.ByCategory {
		fmt.Fprintf(&b, "  - %s: ¥%s\n", c.Category, c.Amount.StringFixed(2))
	}
	fmt.Fprintf(&b, "- 待办完成率: %.1f%% (%d/%d)\n", s.Completion.Rate, s.Completion.Completed, s.Completion.Todos)
	if s.IdeaPeak != nil {
		fmt.Fprintf(&b, "- 创意高峰: %s %d点 (共 %d 条)\n", s.IdeaPeak.WeekdayLabel(), s.IdeaPeak.Hour, s.IdeaPeak.Count)
	}
	if len(s.Schedules) > 0 {
		fmt.Fprintf(&b, "- 日程: %s\n", strings.Join(s.Schedules, "; "))
	}
	if len(s.Ideas) > 0 {
		fmt.Fprintf(&b, "- 创意: %s\n", strings.Join(s.Ideas, "; "))
	}

	fmt.Fprintf(&b, "\n**原始记录样本** (最近%d条):\n", len(s.Recent))
	for _, r := range s.Recent {
		fmt.Fprintf(&b, "- %s | %s | %s | ¥%s\n", r.RecordedAt.Format("2006-01-02 15:04"), r.Category, r.Content, r.LinkedCost.StringFixed(2))
	}

	b.WriteString("\n")
	b.WriteString(instructions)
	b.WriteString("\n")
	return b.String()
}
