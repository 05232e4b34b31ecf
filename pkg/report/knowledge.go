package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/capsule/pkg/core"
)

// Knowledge-base layout.
const (
	LifeDir    = "life"
	FinanceDir = "finance"
	Source     = "time_capsule"

	reportPattern = "{" + LifeDir + "," + FinanceDir + "}/*.md"
)

// Tag thresholds.
var (
	highSpendingWeek  = decimal.NewFromInt(1000)
	highSpendingMonth = decimal.NewFromInt(5000)
	highDailyAverage  = decimal.NewFromInt(200)
)

const (
	highCreativityIdeas = 3
	activeUserRecords   = 15
)

// Narrator turns a summary into prose. It must not fail: errors are
// rendered into the returned text.
type Narrator interface {
	Generate(ctx context.Context, s Summary, label string) string
}

// Frontmatter is the YAML header of an exported document.
type Frontmatter struct {
	Type          string   `yaml:"type"`
	Date          string   `yaml:"date"`
	Week          int      `yaml:"week,omitempty"`
	Month         int      `yaml:"month,omitempty"`
	Source        string   `yaml:"source"`
	Tags          []string `yaml:"tags,flow"`
	RecordCount   int      `yaml:"record_count,omitempty"`
	TotalSpending float64  `yaml:"total_spending"`
	AvgDaily      float64  `yaml:"avg_daily_spending,omitempty"`
}

// Exported lists the files written by Export. Empty paths mean the report
// was skipped for lack of data.
type Exported struct {
	Weekly  string
	Monthly string
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithNarrator adds an AI insight section to every document.
func WithNarrator(n Narrator) ExporterOption {
	return func(e *Exporter) {
		e.narrator = n
	}
}

// WithExporterLogger sets the logger.
func WithExporterLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// Exporter writes weekly summaries and monthly finance reports below a
// knowledge-base directory.
type Exporter struct {
	agg      *Aggregator
	dir      string
	narrator Narrator
	logger   *slog.Logger
}

// NewExporter creates an exporter writing into dir.
func NewExporter(agg *Aggregator, dir string, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		agg:    agg,
		dir:    dir,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the knowledge-base root.
func (e *Exporter) Dir() string {
	return e.dir
}

// Export writes the weekly summary and the current month's finance report.
// It returns ErrNoData only when neither document had anything to report.
func (e *Exporter) Export(ctx context.Context) (Exported, error) {
	var out Exported

	weekly, err := e.ExportWeekly(ctx)
	if err != nil && !errors.Is(err, ErrNoData) {
		return out, err
	}
	out.Weekly = weekly

	monthly, err := e.ExportMonthly(ctx)
	if err != nil && !errors.Is(err, ErrNoData) {
		return out, err
	}
	out.Monthly = monthly

	if out.Weekly == "" && out.Monthly == "" {
		return out, ErrNoData
	}
	return out, nil
}

// ExportWeekly writes life/week_YYYY_WW.md for the trailing week.
func (e *Exporter) ExportWeekly(ctx context.Context) (string, error) {
	s, err := e.agg.Summarize(ctx, Week)
	if err != nil {
		return "", err
	}
	now := e.agg.Now()
	year, week := now.ISOWeek()

	fm := Frontmatter{
		Type:          "weekly_summary",
		Date:          now.Format(time.DateOnly),
		Week:          week,
		Source:        Source,
		Tags:          WeeklyTags(s),
		RecordCount:   s.Records,
		TotalSpending: money(s.Spending.Total),
	}

	var body strings.Builder
	fmt.Fprintf(&body, "# 📅 %d年第%d周生活总结\n\n", year, week)
	e.writeInsight(ctx, &body, "🧠 AI 深度洞察", s, Week.Label())

	body.WriteString("## 📊 数据统计\n\n")
	fmt.Fprintf(&body, "- **记录总数**: %d 条\n", s.Records)
	fmt.Fprintf(&body, "- **待办事项**: %d 项\n", s.Count(core.CategoryTodo))
	fmt.Fprintf(&body, "- **完成日程**: %d 个\n", s.Count(core.CategorySchedule))
	fmt.Fprintf(&body, "- **创意想法**: %d 个\n", s.Count(core.CategoryIdea))
	fmt.Fprintf(&body, "- **财务记录**: %d 笔\n", s.Count(core.CategoryFinance))
	fmt.Fprintf(&body, "- **本周支出**: ¥%s\n\n", s.Spending.Total.StringFixed(2))

	body.WriteString("## 🔍 行为模式\n\n")
	if s.Spending.Count > 0 {
		fmt.Fprintf(&body, "- **消费习惯**: 周末消费占比 %.1f%%，日均 ¥%s\n", s.Spending.WeekendShare, s.Spending.DailyAverage.StringFixed(2))
	}
	fmt.Fprintf(&body, "- **执行力**: 待办完成率 %.1f%% (%d/%d)\n", s.Completion.Rate, s.Completion.Completed, s.Completion.Todos)
	if s.IdeaPeak != nil {
		fmt.Fprintf(&body, "- **创意高峰**: %s %d点 (共 %d 条)\n", s.IdeaPeak.WeekdayLabel(), s.IdeaPeak.Hour, s.IdeaPeak.Count)
	}
	body.WriteString("\n")

	if len(s.Ideas) > 0 {
		body.WriteString("## 💡 创意记录\n\n")
		for _, idea := range s.Ideas {
			fmt.Fprintf(&body, "- %s\n", truncate(idea, 100))
		}
		body.WriteString("\n")
	}

	if len(s.Spending.Top) > 0 {
		body.WriteString("## 💰 主要支出\n\n")
		for _, r := range s.Spending.Top {
			fmt.Fprintf(&body, "- ¥%s - %s\n", r.LinkedCost.StringFixed(2), truncate(r.Content, 50))
		}
	}

	name := filepath.Join(LifeDir, fmt.Sprintf("week_%d_%02d.md", year, week))
	return e.write(name, fm, body.String())
}

// ExportMonthly writes finance/month_YYYY_MM.md for the current calendar
// month. A month without financial records is ErrNoData.
func (e *Exporter) ExportMonthly(ctx context.Context) (string, error) {
	now := e.agg.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	s, err := e.agg.SummarizeRange(ctx, start, now.Add(time.Second), Month.Label())
	if err != nil {
		return "", err
	}
	if s.Spending.Count == 0 {
		return "", ErrNoData
	}

	total := s.Spending.Total
	avgDaily := total.Div(decimal.NewFromInt(int64(now.Day())))
	fm := Frontmatter{
		Type:          "finance_report",
		Date:          now.Format(time.DateOnly),
		Month:         int(now.Month()),
		Source:        Source,
		Tags:          MonthlyTags(total, avgDaily),
		TotalSpending: money(total),
		AvgDaily:      money(avgDaily),
	}

	var body strings.Builder
	fmt.Fprintf(&body, "# 💰 %d年%d月财务报告\n\n", now.Year(), now.Month())
	e.writeInsight(ctx, &body, "🧠 AI 财务洞察", s, Month.Label())

	body.WriteString("## 📊 总览\n\n")
	fmt.Fprintf(&body, "- **总支出**: ¥%s\n", total.StringFixed(2))
	fmt.Fprintf(&body, "- **交易笔数**: %d\n", s.Spending.Count)
	fmt.Fprintf(&body, "- **日均消费**: ¥%s\n\n", avgDaily.StringFixed(2))

	body.WriteString("## 📈 分类明细\n\n")
	for _, c := range s.Spending.ByCategory {
		fmt.Fprintf(&body, "- **%s**: ¥%s (%.1f%%)\n", c.Category, c.Amount.StringFixed(2), c.Share(total))
	}

	name := filepath.Join(FinanceDir, fmt.Sprintf("month_%d_%02d.md", now.Year(), now.Month()))
	return e.write(name, fm, body.String())
}

func (e *Exporter) writeInsight(ctx context.Context, body *strings.Builder, title string, s Summary, label string) {
	if e.narrator == nil {
		return
	}
	fmt.Fprintf(body, "## %s\n\n%s\n\n---\n\n", title, e.narrator.Generate(ctx, s, label))
}

func (e *Exporter) write(name string, fm Frontmatter, body string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(body)

	path := filepath.Join(e.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	e.logger.Info("report exported", "path", path, "type", fm.Type)
	return path, nil
}

// Document is an exported report found by List.
type Document struct {
	Path        string
	Frontmatter Frontmatter
}

// List returns exported documents sorted by path. Files whose frontmatter
// cannot be read are skipped.
func (e *Exporter) List() ([]Document, error) {
	fsys := os.DirFS(e.dir)
	matches, err := doublestar.Glob(fsys, reportPattern)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		fm, err := readFrontmatter(fsys, m)
		if err != nil {
			e.logger.Warn("skipping report", "path", m, "error", err)
			continue
		}
		docs = append(docs, Document{Path: filepath.Join(e.dir, filepath.FromSlash(m)), Frontmatter: fm})
	}
	slices.SortFunc(docs, func(a, b Document) int {
		return strings.Compare(a.Path, b.Path)
	})
	return docs, nil
}

func readFrontmatter(fsys fs.FS, name string) (Frontmatter, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Frontmatter{}, err
	}
	rest, ok := bytes.CutPrefix(data, []byte("---\n"))
	if !ok {
		return Frontmatter{}, errors.New("missing frontmatter")
	}
	header, _, ok := bytes.Cut(rest, []byte("\n---"))
	if !ok {
		return Frontmatter{}, errors.New("unterminated frontmatter")
	}
	var fm Frontmatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return Frontmatter{}, err
	}
	return fm, nil
}

// WeeklyTags derives the tags of a weekly summary.
func WeeklyTags(s Summary) []string {
	tags := []string{}
	if s.Count(core.CategoryIdea) > highCreativityIdeas {
		tags = append(tags, "high_creativity")
	}
	if s.Spending.Total.GreaterThan(highSpendingWeek) {
		tags = append(tags, "high_spending")
	}
	if s.Records > activeUserRecords {
		tags = append(tags, "active_user")
	}
	return tags
}

// MonthlyTags derives the tags of a finance report.
func MonthlyTags(total, avgDaily decimal.Decimal) []string {
	tags := []string{"finance"}
	if total.GreaterThan(highSpendingMonth) {
		tags = append(tags, "high_spending_month")
	}
	if avgDaily.GreaterThan(highDailyAverage) {
		tags = append(tags, "above_average_daily")
	}
	return tags
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
