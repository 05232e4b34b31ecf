package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/capsule"
	"github.com/aretw0/capsule/pkg/adapters/fs"
	"github.com/aretw0/capsule/pkg/adapters/openai"
	"github.com/aretw0/capsule/pkg/agent"
	"github.com/aretw0/capsule/pkg/core"
	"github.com/aretw0/capsule/pkg/narrative"
	"github.com/aretw0/capsule/pkg/report"
)

// vault bundles everything a command needs to work on one vault.
type vault struct {
	Path   string
	Config *capsule.Config
	Repo   core.Repository
	Svc    *core.Service
}

// resolveVault returns the vault directory: --vault if given, else the
// nearest vault above the working directory, else the working directory.
func resolveVault() string {
	path := vaultArg
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("Failed to get CWD", err)
		}
		path = cwd
		if root, err := capsule.FindVaultRoot(cwd); err == nil {
			path = root
		}
	}
	return capsule.ResolveVaultPath(path, capsule.IsDevRun())
}

// openVault loads the config and opens the store of an existing vault.
func openVault(opts ...capsule.Option) *vault {
	path := resolveVault()
	cfg, err := capsule.LoadConfig(capsule.ConfigPath(path))
	if err != nil {
		fatal("Failed to load config", err)
	}

	base := []capsule.Option{
		capsule.WithConfig(cfg),
		capsule.WithMustExist(true),
		capsule.WithLogger(slog.Default()),
	}
	repo, err := capsule.Init(path, append(base, opts...)...)
	if err != nil {
		if errors.Is(err, core.ErrMalformedStore) {
			fmt.Fprintln(os.Stderr, "Tip: run 'capsule init --reset' to discard the unreadable store.")
		}
		fatal("Failed to open vault", err)
	}

	svc, err := capsule.New(path, append(base, append(opts, capsule.WithRepository(repo))...)...)
	if err != nil {
		fatal("Failed to create service", err)
	}
	return &vault{Path: path, Config: cfg, Repo: repo, Svc: svc}
}

// Close releases the store if it holds resources.
func (v *vault) Close() {
	closeRepo(v.Repo)
}

func closeRepo(repo any) {
	if c, ok := repo.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}
}

// llmClient returns the LLM client or nil when no API key is configured.
func (v *vault) llmClient() *openai.Client {
	client, err := openai.NewClient(openai.Config{
		APIKey:             v.Config.LLM.APIKey,
		BaseURL:            v.Config.LLM.BaseURL,
		Model:              v.Config.LLM.Model,
		TranscriptionModel: v.Config.LLM.TranscriptionModel,
		Logger:             slog.Default(),
	})
	if err != nil {
		slog.Debug("llm disabled", "error", err)
		return nil
	}
	return client
}

// narrator returns the narrative generator or nil without an API key.
func (v *vault) narrator() *narrative.Generator {
	client := v.llmClient()
	if client == nil {
		return nil
	}
	return narrative.NewGenerator(client,
		narrative.WithTimeout(v.Config.LLM.Timeout),
		narrative.WithTemperature(v.Config.LLM.Temperature),
		narrative.WithLogger(slog.Default()),
	)
}

func (v *vault) aggregator() *report.Aggregator {
	return report.NewAggregator(v.Repo, report.WithLogger(slog.Default()))
}

func (v *vault) exporter() *report.Exporter {
	opts := []report.ExporterOption{report.WithExporterLogger(slog.Default())}
	if n := v.narrator(); n != nil {
		opts = append(opts, report.WithNarrator(n))
	}
	return report.NewExporter(v.aggregator(), v.Config.KnowledgeBaseDir(v.Path), opts...)
}

func (v *vault) agent() *agent.Agent {
	marker := filepath.Join(v.Path, fs.DefaultSystemDir, agent.MarkerFile)
	return agent.New(v.Repo, v.exporter(), marker, agent.WithLogger(slog.Default()))
}
