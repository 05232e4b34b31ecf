package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aretw0/capsule"
	"github.com/aretw0/capsule/pkg/core"
	"github.com/aretw0/capsule/pkg/report"
)

var notes = []string{"记得买牛奶", "下周一开会", "午饭花了35元", "我想学吉他", "去医院预约体检"}

func main() {
	count := flag.Int("count", 10000, "Number of records to generate")
	adapter := flag.String("adapter", capsule.AdapterFS, "Storage adapter (fs or sqlite)")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()

	// 1. Setup Namespace
	benchDir, err := os.MkdirTemp("", "capsule_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	repo, err := capsule.Init(benchDir,
		capsule.WithAdapter(*adapter),
		capsule.WithAutoInit(true),
		capsule.WithVersioning(false),
		capsule.WithLogger(logger),
	)
	if err != nil {
		panic(err)
	}
	if c, ok := repo.(interface{ Close() error }); ok {
		defer c.Close()
	}

	ctx := context.TODO()

	// 2. Generate records in a single overwrite, spread over the last year.
	fmt.Printf("Generating %d records in %s (%s)...\n", *count, benchDir, *adapter)
	startGen := time.Now()
	now := time.Now().Truncate(time.Second)
	records := make([]core.Record, *count)
	for i := range records {
		records[i] = core.Record{
			ID:         uuid.NewString(),
			RecordedAt: now.Add(-time.Duration(i) * 37 * time.Minute),
			Category:   []core.Category{core.CategoryTodo, core.CategorySchedule, core.CategoryFinance, core.CategoryIdea}[i%4],
			Content:    notes[i%len(notes)],
			Status:     core.StatusPending,
			LinkedCost: decimal.NewFromInt(int64(i % 200)),
		}
	}
	if err := repo.Overwrite(ctx, records); err != nil {
		panic(err)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	svc, err := capsule.New(benchDir, capsule.WithRepository(repo), capsule.WithLogger(logger))
	if err != nil {
		panic(err)
	}

	// Run 1: Load
	startLoad := time.Now()
	loaded, err := svc.Records(ctx)
	if err != nil {
		panic(err)
	}
	loadDuration := time.Since(startLoad)
	fmt.Printf("Load: %v (Items: %d)\n", loadDuration, len(loaded))

	// Run 2: Year summary
	startSum := time.Now()
	s, err := report.NewAggregator(repo).Summarize(ctx, report.Year)
	if err != nil {
		panic(err)
	}
	sumDuration := time.Since(startSum)
	fmt.Printf("Summarize(year): %v (Records: %d, Spending: %s)\n", sumDuration, s.Records, s.Spending.Total)

	// Run 3: Complete with a split (load, overwrite, append)
	startDone := time.Now()
	_, err = svc.CompleteAt(ctx, 0, []core.ExpenseItem{{Amount: decimal.NewFromInt(50), Category: "餐饮"}})
	if err != nil {
		panic(err)
	}
	doneDuration := time.Since(startDone)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d records, %s):\n", *count, *adapter)
	fmt.Printf("  Load:      %v\n", loadDuration)
	fmt.Printf("  Summarize: %v\n", sumDuration)
	fmt.Printf("  Complete:  %v\n", doneDuration)
	fmt.Printf("--------------------------------------------------\n")
}
