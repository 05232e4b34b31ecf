package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/capsule"
	"github.com/spf13/cobra"
)

var (
	initReset   bool
	initAdapter string
	initNoGit   bool
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a capsule vault",
	Long: `Initialize a new Capsule vault in the current directory (or --vault).
It creates the record store, the .capsule directory and a default config.yaml.
With --reset, an existing store is emptied; this is the repair for a store
whose columns cannot be recognized.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := vaultArg
		if path == "" {
			cwd, err := os.Getwd()
			if err != nil {
				fatal("Failed to get CWD", err)
			}
			path = cwd
		}
		path = capsule.ResolveVaultPath(path, capsule.IsDevRun())

		cfgPath := capsule.ConfigPath(path)
		cfg, err := capsule.LoadConfig(cfgPath)
		if err != nil {
			fatal("Failed to load config", err)
		}
		if cmd.Flags().Changed("adapter") {
			cfg.Adapter = initAdapter
		}
		if initNoGit {
			off := false
			cfg.Versioning = &off
		}

		opts := []capsule.Option{
			capsule.WithConfig(cfg),
			capsule.WithAutoInit(true),
			capsule.WithLogger(slog.Default()),
		}

		if _, err := os.Stat(path); initReset && err == nil {
			// The CSV store is reset without reading it; SQLite needs its schema first.
			open := capsule.Open
			if cfg.Adapter == capsule.AdapterSQLite {
				open = capsule.Init
			}
			repo, err := open(path, opts...)
			if err != nil {
				fatal("Failed to open vault", err)
			}
			if err := repo.Reset(cmd.Context()); err != nil {
				fatal("Failed to reset store", err)
			}
			closeRepo(repo)
			fmt.Println("Store reset.")
		}

		repo, err := capsule.Init(path, opts...)
		if err != nil {
			fatal("Failed to initialize vault", err)
		}
		closeRepo(repo)

		if _, err := os.Stat(cfgPath); os.IsNotExist(err) || cmd.Flags().Changed("adapter") || initNoGit {
			if err := capsule.SaveConfig(cfgPath, *cfg); err != nil {
				fatal("Failed to write config", err)
			}
		}

		fmt.Printf("Initialized capsule vault (%s) in %s\n", cfg.Adapter, path)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initReset, "reset", false, "Discard every record of an existing store")
	initCmd.Flags().StringVar(&initAdapter, "adapter", capsule.AdapterFS, "Storage adapter (fs or sqlite)")
	initCmd.Flags().BoolVar(&initNoGit, "no-versioning", false, "Do not version the store with git")
}
