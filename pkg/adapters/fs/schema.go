package fs

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aretw0/capsule/pkg/core"
)

// TimeLayout is the timestamp format of the recorded_at and target_time columns.
const TimeLayout = time.DateTime

// Column names of the current schema.
const (
	ColRecordedAt = "recorded_at"
	ColCategory   = "category"
	ColContent    = "content"
	ColTargetTime = "target_time"
	ColStatus     = "status"
	ColLinkedCost = "linked_cost"
	ColID         = "id"
)

// Schema versions of the record file.
const (
	// SchemaLegacy is the localized header written by the first releases.
	SchemaLegacy = 0
	// SchemaNoID is the English header without the id column.
	SchemaNoID = 1
	// SchemaVersion is the current schema.
	SchemaVersion = 2
)

// Header is the current column order. The first six columns keep the
// historical order.
var Header = []string{ColRecordedAt, ColCategory, ColContent, ColTargetTime, ColStatus, ColLinkedCost, ColID}

// legacyColumns maps the localized header to the current column names.
var legacyColumns = map[string]string{
	"记录时间": ColRecordedAt,
	"分类":   ColCategory,
	"内容":   ColContent,
	"目标时间": ColTargetTime,
	"状态":   ColStatus,
	"关联花销": ColLinkedCost,
}

// legacyCategories maps localized category names to core categories.
var legacyCategories = map[string]core.Category{
	"待办": core.CategoryTodo,
	"日程": core.CategorySchedule,
	"财务": core.CategoryFinance,
	"创意": core.CategoryIdea,
	"想法": core.CategoryIdea,
}

var requiredColumns = []string{ColRecordedAt, ColCategory, ColContent, ColStatus}

// layout describes how a header maps onto record fields.
type layout struct {
	version int
	cols    map[string]int
}

// parseHeader recognizes a header row. A header without a status column,
// or missing any other required column, is malformed.
func parseHeader(header []string) (layout, error) {
	l := layout{version: SchemaVersion, cols: make(map[string]int, len(header))}
	localized := false
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if mapped, ok := legacyColumns[name]; ok {
			name = mapped
			localized = true
		}
		l.cols[name] = i
	}

	if _, ok := l.cols[ColStatus]; !ok {
		return layout{}, core.ErrMalformedStore
	}
	for _, c := range requiredColumns {
		if _, ok := l.cols[c]; !ok {
			return layout{}, fmt.Errorf("%w (missing %s)", core.ErrMalformedStore, c)
		}
	}

	switch {
	case localized:
		l.version = SchemaLegacy
	case !l.has(ColID):
		l.version = SchemaNoID
	}
	return l, nil
}

func (l layout) has(col string) bool {
	_, ok := l.cols[col]
	return ok
}

func (l layout) get(row []string, col string) string {
	i, ok := l.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// current reports whether the layout is exactly the current header.
func (l layout) current() bool {
	if l.version != SchemaVersion || len(l.cols) != len(Header) {
		return false
	}
	for i, h := range Header {
		if l.cols[h] != i {
			return false
		}
	}
	return true
}

// decodeRecord converts one row. line is used for error messages and for
// deriving a stable ID when the row has none.
func (l layout) decodeRecord(row []string, line int, loc *time.Location) (core.Record, error) {
	var rec core.Record
	var err error

	rec.RecordedAt, err = time.ParseInLocation(TimeLayout, strings.TrimSpace(l.get(row, ColRecordedAt)), loc)
	if err != nil {
		return core.Record{}, fmt.Errorf("line %d: parse %s: %w", line, ColRecordedAt, err)
	}

	rec.Category = core.Category(l.get(row, ColCategory))
	if mapped, ok := legacyCategories[string(rec.Category)]; ok {
		rec.Category = mapped
	}
	rec.Content = l.get(row, ColContent)

	if raw := strings.TrimSpace(l.get(row, ColTargetTime)); raw != "" {
		t, err := time.ParseInLocation(TimeLayout, raw, loc)
		if err != nil {
			return core.Record{}, fmt.Errorf("line %d: parse %s: %w", line, ColTargetTime, err)
		}
		rec.TargetTime = &t
	}

	rec.Status = core.Status(strings.TrimSpace(l.get(row, ColStatus)))
	if !rec.Status.Valid() {
		return core.Record{}, fmt.Errorf("line %d: unknown status %q", line, rec.Status)
	}

	rec.LinkedCost, err = ParseCost(l.get(row, ColLinkedCost))
	if err != nil {
		return core.Record{}, fmt.Errorf("line %d: parse %s: %w", line, ColLinkedCost, err)
	}

	rec.ID = strings.TrimSpace(l.get(row, ColID))
	if rec.ID == "" {
		rec.ID = legacyID(line, row)
	}
	return rec, nil
}

// legacyID derives a deterministic ID for rows written before IDs existed,
// so repeated loads of an unmigrated store agree.
func legacyID(line int, row []string) string {
	name := fmt.Sprintf("%d\x00%s", line, strings.Join(row, "\x00"))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// encodeRecord converts a record into a row of the current header.
func encodeRecord(r core.Record, loc *time.Location) []string {
	target := ""
	if r.TargetTime != nil {
		target = r.TargetTime.In(loc).Format(TimeLayout)
	}
	return []string{
		r.RecordedAt.In(loc).Format(TimeLayout),
		string(r.Category),
		r.Content,
		target,
		string(r.Status),
		FormatCost(r.LinkedCost),
		r.ID,
	}
}

// ParseCost parses a linked_cost cell. Empty and NaN cells are zero.
func ParseCost(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative cost %s", raw)
	}
	return d, nil
}

// FormatCost renders a cost with at least one fractional digit ("0.0", "50.0", "12.35").
func FormatCost(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.StringFixed(1)
	}
	return d.String()
}
