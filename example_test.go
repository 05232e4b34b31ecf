package capsule_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aretw0/capsule"
	"github.com/aretw0/capsule/pkg/core"
)

// Example_basic demonstrates how to capture a note and complete it with an expense.
func Example_basic() {
	tmpDir, err := os.MkdirTemp("", "capsule-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	svc, err := capsule.New(tmpDir,
		capsule.WithAutoInit(true),
		capsule.WithVersioning(false),
		capsule.WithLocation(time.UTC),
		capsule.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	// 1. Capture a task
	rec, err := svc.Capture(ctx, "记得交房租")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(rec.Category, rec.Status)

	// 2. Complete it with an expense split
	done, err := svc.Complete(ctx, rec.ID, []core.ExpenseItem{
		{Amount: decimal.NewFromInt(3000), Category: "Housing"},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(done.Record.Category, done.Record.Status, done.Record.LinkedCost)
	fmt.Println(len(done.Derived), done.Derived[0].Category)
	// Output:
	// Todo Pending
	// Schedule Done 3000
	// 1 Housing
}
