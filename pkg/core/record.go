// Package core holds the capsule domain: records, their lifecycle and the
// storage contract the adapters implement.
package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a record. The four built-in categories come from the
// classifier; derived expense records carry free-form categories such as
// "dining" or "transport".
type Category string

const (
	CategoryTodo     Category = "Todo"
	CategorySchedule Category = "Schedule"
	CategoryFinance  Category = "Finance"
	CategoryIdea     Category = "Idea"
)

// Builtin reports whether c is one of the classifier categories.
func (c Category) Builtin() bool {
	switch c {
	case CategoryTodo, CategorySchedule, CategoryFinance, CategoryIdea:
		return true
	}
	return false
}

// Status is the completion state of a record.
type Status string

const (
	StatusPending Status = "Pending"
	StatusDone    Status = "Done"
)

// Valid reports whether s is a known status literal.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusDone
}

// Record is the atomic persisted unit of the capsule.
//
// RecordedAt and Content never change after creation. Category, Status and
// LinkedCost are mutated only by Service.Complete.
type Record struct {
	ID         string
	RecordedAt time.Time
	Category   Category
	Content    string
	TargetTime *time.Time
	Status     Status
	LinkedCost decimal.Decimal
}

// Financial reports whether the record contributes to spending aggregates.
func (r Record) Financial() bool {
	return r.Category == CategoryFinance || r.LinkedCost.IsPositive()
}

// ExpenseItem is one line of the expense split attached to a completion.
type ExpenseItem struct {
	Amount   decimal.Decimal
	Category Category
}

// Completion describes the outcome of Service.Complete.
type Completion struct {
	Record   Record
	Promoted bool
	Derived  []Record
}
