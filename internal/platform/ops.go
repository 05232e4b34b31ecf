package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/capsule/pkg/adapters/fs"
	"github.com/aretw0/capsule/pkg/adapters/sqlite"
	"github.com/aretw0/capsule/pkg/core"
)

// Init opens and initializes the record store of a vault.
// The uri argument is adapter-specific: the vault directory for both
// built-in adapters.
func Init(uri string, opts ...Option) (core.Repository, error) {
	o := parseOptions(opts)
	if o.repository != nil {
		return o.repository, nil
	}

	repo, err := open(uri, o)
	if err != nil {
		return nil, err
	}
	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// Open returns the record store of a vault without initializing it.
func Open(uri string, opts ...Option) (core.Repository, error) {
	o := parseOptions(opts)
	if o.repository != nil {
		return o.repository, nil
	}
	return open(uri, o)
}

func open(uri string, o *options) (core.Repository, error) {
	switch o.adapter {
	case AdapterFS:
		return initFS(uri, o), nil
	case AdapterSQLite:
		return initSQLite(uri, o), nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// vaultPath applies dev safety to the user path.
func vaultPath(path string, o *options) (string, bool) {
	tempDir, _ := o.config["temp_dir"].(bool)
	isReadOnly, _ := o.config["read_only"].(bool)
	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}
	bypassSafety := isReadOnly || !devSafety

	useTemp := tempDir || (IsDevRun() && !bypassSafety)
	resolved := ResolveVaultPath(path, useTemp)

	if IsDevRun() && o.logger != nil {
		if bypassSafety {
			if isReadOnly {
				o.logger.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolved)
			} else {
				o.logger.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolved)
			}
		} else {
			o.logger.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolved)
		}
	}
	return resolved, useTemp
}

func location(o *options) *time.Location {
	if loc, ok := o.config["location"].(*time.Location); ok && loc != nil {
		return loc
	}
	return time.Local
}

// initFS builds the filesystem adapter.
func initFS(path string, o *options) core.Repository {
	autoInit, _ := o.config["auto_init"].(bool)
	gitless, _ := o.config["gitless"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	isReadOnly, _ := o.config["read_only"].(bool)
	systemDir, _ := o.config["system_dir"].(string)
	storeFile, _ := o.config["store_file"].(string)
	eventBuffer, _ := o.config["event_buffer"].(int)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	resolvedPath, useTemp := vaultPath(path, o)
	if systemDir == "" {
		systemDir = fs.DefaultSystemDir
	}

	// Without an explicit choice, an existing .git means a versioned
	// vault. A fresh auto-initialized vault is versioned unless its
	// system directory already exists without git.
	if _, ok := o.config["gitless"]; !ok {
		if _, err := os.Stat(filepath.Join(resolvedPath, ".git")); err == nil {
			gitless = false
		} else if autoInit {
			_, err := os.Stat(filepath.Join(resolvedPath, systemDir))
			gitless = err == nil
		} else {
			gitless = true
		}
		if gitless && o.logger != nil {
			o.logger.Debug("auto-detected gitless mode", "reason", ".git missing")
		}
	}
	if !gitless && !fs.IsGitInstalled() {
		if o.logger != nil {
			o.logger.Warn("git not found, versioning disabled")
		}
		gitless = true
	}

	if o.logger != nil && useTemp {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", path, "resolved_path", resolvedPath)
	}

	return fs.NewRepository(fs.Config{
		Path:         resolvedPath,
		File:         storeFile,
		SystemDir:    systemDir,
		AutoInit:     autoInit,
		Gitless:      gitless,
		MustExist:    mustExist || (!autoInit && !useTemp),
		ReadOnly:     isReadOnly,
		Location:     location(o),
		EventBuffer:  eventBuffer,
		Logger:       o.logger,
		ErrorHandler: errorHandler,
	})
}

// initSQLite builds the SQLite adapter; the database lives in the vault
// directory.
func initSQLite(path string, o *options) core.Repository {
	isReadOnly, _ := o.config["read_only"].(bool)
	resolvedPath, _ := vaultPath(path, o)
	return sqlite.NewStore(sqlite.Config{
		Path:     filepath.Join(resolvedPath, sqlite.DefaultFile),
		ReadOnly: isReadOnly,
		Location: location(o),
		Logger:   o.logger,
	})
}
