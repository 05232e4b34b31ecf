// Package fs implements the capsule record store as a tabular CSV file on
// the local filesystem, optionally versioned with Git.
package fs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/capsule/pkg/core"
	"github.com/aretw0/capsule/pkg/git"
)

// Defaults for Config.
const (
	DefaultFile        = "memory.csv"
	DefaultSystemDir   = ".capsule"
	DefaultEventBuffer = 100
	JournalFile        = "transitions.csv"
)

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path         string // vault directory
	File         string // record file inside Path, e.g. "memory.csv"
	SystemDir    string // e.g. ".capsule"
	AutoInit     bool   // git init when versioning and no repository exists
	Gitless      bool
	MustExist    bool
	ReadOnly     bool
	Location     *time.Location
	EventBuffer  int
	Logger       *slog.Logger
	ErrorHandler func(error) // receives watcher errors
}

// Repository implements core.Repository and core.Journal on a CSV file.
type Repository struct {
	Path   string
	git    *git.Client
	config Config

	// io serializes file access within the process.
	io sync.RWMutex

	mu            sync.RWMutex
	schema        int
	watcherActive bool
	lastWrite     *time.Time
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.File == "" {
		config.File = DefaultFile
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{
		Path:   config.Path,
		git:    git.NewClient(config.Path, config.SystemDir+".lock", config.Logger),
		config: config,
		schema: -1,
	}
}

// FilePath returns the absolute location of the record file.
func (r *Repository) FilePath() string {
	return filepath.Join(r.Path, r.config.File)
}

// JournalPath returns the location of the transition journal.
func (r *Repository) JournalPath() string {
	return filepath.Join(r.Path, r.config.SystemDir, JournalFile)
}

// SystemPath returns the hidden system directory of the vault.
func (r *Repository) SystemPath() string {
	return filepath.Join(r.Path, r.config.SystemDir)
}

// Initialize performs the necessary setup for the repository.
//
// Workflow:
//  1. Ensure the vault directory exists.
//  2. (If Git enabled) git init and ignore the lock file.
//  3. Create the record file with the current header, or migrate an older
//     header in place. A store without a status column is reported as
//     core.ErrMalformedStore and left untouched.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist || r.config.ReadOnly {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", r.Path)
		}
	} else {
		if err := os.MkdirAll(r.Path, 0755); err != nil {
			return fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	if !r.config.Gitless && !r.config.ReadOnly {
		if err := r.initGit(); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(r.FilePath())
	if os.IsNotExist(err) {
		if r.config.ReadOnly {
			r.setSchema(SchemaVersion)
			return nil
		}
		if err := r.writeRecords(nil); err != nil {
			return err
		}
		r.setSchema(SchemaVersion)
		return r.commit(git.CommitTypeChore, "create record store")
	}
	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	l, records, err := r.decode(data)
	if err != nil {
		return err
	}
	if l.version < 0 && !r.config.ReadOnly {
		if err := r.writeRecords(nil); err != nil {
			return err
		}
		r.setSchema(SchemaVersion)
		return r.commit(git.CommitTypeChore, "create record store")
	}
	r.setSchema(l.version)
	if l.current() || r.config.ReadOnly {
		return nil
	}

	r.config.Logger.Info("migrating record store", "from", l.version, "to", SchemaVersion, "records", len(records))
	if err := r.writeRecords(records); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	r.setSchema(SchemaVersion)
	return r.commit(git.CommitTypeRefactor, fmt.Sprintf("migrate record store to schema v%d", SchemaVersion))
}

func (r *Repository) initGit() error {
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	if !r.git.IsRepo() {
		if !r.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", r.Path)
		}
		if err := r.git.Init(); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
	}

	if _, err := r.ensureIgnore(); err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	return nil
}

func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	ignoreEntry := r.git.LockName()

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// Load returns every record in file order. A missing file is an empty store.
func (r *Repository) Load(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.io.RLock()
	data, err := os.ReadFile(r.FilePath())
	r.io.RUnlock()
	if os.IsNotExist(err) {
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	_, records, err := r.decode(data)
	return records, err
}

func (r *Repository) decode(data []byte) (layout, []core.Record, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	header, err := reader.Read()
	if err == io.EOF {
		return layout{version: -1}, []core.Record{}, nil
	}
	if err != nil {
		return layout{}, nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	l, err := parseHeader(header)
	if err != nil {
		return layout{}, nil, err
	}

	records := []core.Record{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return layout{}, nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		rec, err := l.decodeRecord(row, line, r.config.Location)
		if err != nil {
			return layout{}, nil, err
		}
		records = append(records, rec)
	}
	return l, records, nil
}

// Append adds one record at the end of the file.
func (r *Repository) Append(ctx context.Context, rec core.Record) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("record has no ID")
	}

	r.io.Lock()
	err := r.ensureCurrentHeader()
	if err == nil {
		err = appendRows(r.FilePath(), nil, encodeRecord(rec, r.config.Location))
		if err != nil {
			err = fmt.Errorf("failed to append record: %w", err)
		}
	}
	r.io.Unlock()
	if err != nil {
		return err
	}
	r.touch()
	return r.commit(git.CommitTypeFeat, fmt.Sprintf("append %s record", rec.Category))
}

// ensureCurrentHeader creates the file when missing and refuses to append
// to a file that still needs migration.
func (r *Repository) ensureCurrentHeader() error {
	f, err := os.Open(r.FilePath())
	if os.IsNotExist(err) {
		return r.writeRecords(nil)
	}
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	if strings.TrimSpace(line) == "" {
		f.Close()
		return r.writeRecords(nil)
	}
	header, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return core.ErrMalformedStore
	}
	l, err := parseHeader(header)
	if err != nil {
		return err
	}
	if !l.current() {
		return fmt.Errorf("store uses schema v%d: initialize the repository to migrate it", l.version)
	}
	return nil
}

// Overwrite replaces the whole store atomically.
func (r *Repository) Overwrite(ctx context.Context, records []core.Record) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.io.Lock()
	err := r.writeRecords(records)
	r.io.Unlock()
	if err != nil {
		return err
	}
	r.touch()
	return r.commit(git.CommitTypeFeat, fmt.Sprintf("rewrite %d records", len(records)))
}

// Reset discards every record and the transition journal.
func (r *Repository) Reset(ctx context.Context) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	r.io.Lock()
	err := r.writeRecords(nil)
	r.io.Unlock()
	if err != nil {
		return err
	}
	if err := os.Remove(r.JournalPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove journal: %w", err)
	}
	r.setSchema(SchemaVersion)
	r.touch()
	r.config.Logger.Warn("record store reset", "path", r.FilePath())
	return r.commit(git.CommitTypeChore, "reset record store")
}

func (r *Repository) writeRecords(records []core.Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(encodeRecord(rec, r.config.Location)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if err := writeFileAtomic(r.FilePath(), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	return nil
}

// appendRows appends rows to a CSV file, writing header first when the
// file does not exist yet.
func appendRows(path string, header []string, rows ...[]string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if info.Size() == 0 && header != nil {
		rows = append([][]string{header}, rows...)
	} else if info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err != nil {
			return err
		}
		if last[0] != '\n' {
			buf.WriteByte('\n')
		}
	}

	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}

func (r *Repository) commit(ctype, subject string) error {
	if r.config.Gitless || r.config.ReadOnly {
		return nil
	}
	files := []string{r.config.File}
	if _, err := os.Stat(r.JournalPath()); err == nil {
		files = append(files, filepath.ToSlash(filepath.Join(r.config.SystemDir, JournalFile)))
	}
	msg := git.FormatCommitMessage(ctype, "records", subject, "")
	if err := r.git.CommitFiles(msg, files...); err != nil {
		return fmt.Errorf("failed to commit store: %w", err)
	}
	return nil
}

func (r *Repository) setSchema(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema = v
}

func (r *Repository) touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.lastWrite = &now
}

// IsGitInstalled checks if git is available in the system path.
func IsGitInstalled() bool {
	return git.IsInstalled()
}

var (
	_ core.Repository = (*Repository)(nil)
	_ core.Journal    = (*Repository)(nil)
	_ core.Watchable  = (*Repository)(nil)
)
