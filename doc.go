// Package capsule is the Composition Root for the Capsule application.
//
// It connects the record lifecycle (Domain Layer) with the storage adapters
// (Persistence Layer) using the Hexagonal Architecture pattern.
//
// Capsule is a personal journal. Free-text notes are classified into
// Todo, Schedule, Finance and Idea records by keyword and date matching,
// appended to a flat store, completed with an expense split, and later
// summarized into weekly and monthly reports.
//
// Features:
//
//   - **Hexagonal Architecture**: Core domain is isolated from persistence details.
//   - **Stable Identity**: Every record carries a UUID; mutations never rely on row positions.
//   - **Transition Journal**: Status and category changes are logged append-only.
//   - **Default Adapter (CSV + Git)**: A single memory.csv file, optionally versioned.
//   - **SQLite Adapter**: The same contract over modernc.org/sqlite.
//
// Usage:
//
//	svc, err := capsule.New("./vault",
//		capsule.WithAutoInit(true),
//		capsule.WithLogger(logger),
//	)
//
//	rec, err := svc.Capture(ctx, "下周三去北京开会")
package capsule
