package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/capsule/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
)

// options holds the internal configuration for the capsule service.
type options struct {
	repository core.Repository
	classifier core.Classifier
	logger     *slog.Logger
	clock      func() time.Time
	adapter    string
	config     map[string]any
}

// Option defines a functional option for configuring capsule.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
		config:  make(map[string]any),
	}
}

func parseOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAutoInit enables automatic initialization of the vault (creates directory and git init).
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning enables or disables version control (e.g. Git).
// When not set, versioning is detected from the vault.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["gitless"] = !enabled
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithLogger sets the logger for the service and its adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a custom storage adapter. The named adapter is
// then skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithClassifier replaces the default keyword and date classifier.
func WithClassifier(c core.Classifier) Option {
	return func(o *options) {
		o.classifier = c
	}
}

// WithClock overrides the time source of the service.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithAdapter selects the storage adapter by name ("fs" or "sqlite").
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithSystemDir sets the hidden directory name. Defaults to ".capsule".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithStoreFile sets the record file name of the fs adapter. Defaults to
// "memory.csv".
func WithStoreFile(name string) Option {
	return func(o *options) {
		o.config["store_file"] = name
	}
}

// WithLocation sets the time zone used to read and write timestamps.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.config["location"] = loc
	}
}

// WithLocale selects the date rule set of the default classifier ("zh" or "en").
func WithLocale(locale string) Option {
	return func(o *options) {
		o.config["locale"] = locale
	}
}

// WithEventBuffer sets the size of the watch event buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}

// WithWatcherErrorHandler registers a callback for errors raised inside
// the watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Write operations return core.ErrReadOnly.
// 2. Initialization (mkdir, git init, migration) is skipped.
// 3. Dev safety (go run temp dir) is bypassed and the real path is used.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run`.
// By default (true), capsule forces a temporary directory to prevent
// accidental writes to a real vault.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

// WithConfig applies the settings of a loaded config file. Options given
// after it take precedence.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		if cfg.Adapter != "" {
			o.adapter = cfg.Adapter
		}
		if cfg.StoreFile != "" {
			o.config["store_file"] = cfg.StoreFile
		}
		if cfg.Locale != "" {
			o.config["locale"] = cfg.Locale
		}
		if cfg.Versioning != nil {
			o.config["gitless"] = !*cfg.Versioning
		}
		if loc, err := cfg.TimeLocation(); err == nil {
			o.config["location"] = loc
		}
	}
}
