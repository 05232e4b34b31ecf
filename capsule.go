package capsule

import (
	"log/slog"
	"time"

	"github.com/aretw0/capsule/internal/platform"
	"github.com/aretw0/capsule/pkg/core"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

// Record is a public alias for the core record.
type Record = core.Record

// Service is a public alias for the record lifecycle service.
type Service = core.Service

// Repository is a public alias for the storage contract.
type Repository = core.Repository

// ExpenseItem is a public alias for one line of an expense split.
type ExpenseItem = core.ExpenseItem

// Config is the vault configuration read from .capsule/config.yaml.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring Capsule.
type Option = platform.Option

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
)

// WithAutoInit enables automatic initialization of the vault (creates directory and git init).
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables version control (e.g. Git).
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithClassifier replaces the default classifier.
func WithClassifier(c core.Classifier) Option {
	return platform.WithClassifier(c)
}

// WithClock overrides the time source used for new records.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithAdapter allows specifying the storage adapter to use by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".capsule").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithStoreFile sets the record file name of the fs adapter.
func WithStoreFile(name string) Option {
	return platform.WithStoreFile(name)
}

// WithLocation sets the time zone of stored timestamps.
func WithLocation(loc *time.Location) Option {
	return platform.WithLocation(loc)
}

// WithLocale selects the date rules of the default classifier.
func WithLocale(locale string) Option {
	return platform.WithLocale(locale)
}

// WithEventBuffer allows specifying the size of the watch event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithWatcherErrorHandler registers a callback for watch loop errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the temp-dir sandbox used by `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithConfig applies a loaded config file.
func WithConfig(cfg *Config) Option {
	return platform.WithConfig(cfg)
}

// --- Factory ---

// New creates a new Capsule Service.
func New(path string, opts ...Option) (*core.Service, error) {
	return platform.New(path, opts...)
}

// Init opens and initializes the record store of a vault.
func Init(path string, opts ...Option) (core.Repository, error) {
	return platform.Init(path, opts...)
}

// Open returns the record store of a vault without initializing it.
func Open(path string, opts ...Option) (core.Repository, error) {
	return platform.Open(path, opts...)
}

// --- Utilities ---

// FindVaultRoot looks upwards from startDir for a capsule vault.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// LoadConfig reads a config file, applying defaults and environment overrides.
func LoadConfig(path string) (*Config, error) {
	return platform.LoadConfig(path)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return platform.DefaultConfig()
}

// SaveConfig writes cfg to path without the API key.
func SaveConfig(path string, cfg Config) error {
	return platform.SaveConfig(path, cfg)
}

// ConfigPath returns the config file location of a vault.
func ConfigPath(vault string) string {
	return platform.ConfigPath(vault, "")
}

// IsDevRun reports whether the process runs via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// ResolveVaultPath applies the dev-safety rules to a vault path.
func ResolveVaultPath(userPath string, forceTemp bool) string {
	return platform.ResolveVaultPath(userPath, forceTemp)
}
