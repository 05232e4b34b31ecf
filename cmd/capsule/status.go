package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/aretw0/capsule/pkg/adapters/fs"
)

var statusDiagram bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the vault components",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		defer v.Close()

		components := map[string]introspection.Introspectable{
			"service": v.Svc,
			"agent":   v.agent(),
		}
		if intro, ok := v.Repo.(introspection.Introspectable); ok {
			components["store"] = intro
		}

		if statusDiagram {
			if state, ok := repoState(components["store"]); ok {
				config := introspection.DefaultDiagramConfig()
				config.SecondaryID = "vault"
				config.SecondaryLabel = "Vault Topology"
				fmt.Println(introspection.TreeDiagram(buildVaultTree(state), config))
				return
			}
			fmt.Fprintln(os.Stderr, "Diagram is only available for the fs adapter.")
		}

		out := make(map[string]any, len(components))
		for name, c := range components {
			entry := map[string]any{"state": c.State()}
			if comp, ok := c.(introspection.Component); ok {
				entry["type"] = comp.ComponentType()
			}
			out[name] = entry
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func repoState(store introspection.Introspectable) (fs.RepositoryState, bool) {
	if store == nil {
		return fs.RepositoryState{}, false
	}
	state, ok := store.State().(fs.RepositoryState)
	return state, ok
}

type vaultNode struct {
	Name     string
	Status   string
	Metadata map[string]string
	Children []vaultNode
}

// buildVaultTree maps the store state onto the node statuses understood
// by introspection.DefaultStyles.
func buildVaultTree(state fs.RepositoryState) vaultNode {
	watcherStatus := "suspended"
	if state.WatcherActive {
		watcherStatus = "running"
	}
	versioning := "git"
	if state.Gitless {
		versioning = "none"
	}

	return vaultNode{
		Name:   "Vault",
		Status: "running",
		Metadata: map[string]string{
			"type": "container",
			"path": state.Path,
		},
		Children: []vaultNode{
			{
				Name:   "Store",
				Status: "running",
				Metadata: map[string]string{
					"type":       "process",
					"file":       state.File,
					"schema":     fmt.Sprintf("v%d", state.Schema),
					"versioning": versioning,
				},
				Children: []vaultNode{
					{
						Name:     "Watcher",
						Status:   watcherStatus,
						Metadata: map[string]string{"type": "goroutine"},
					},
					{
						Name:     "Journal",
						Status:   "running",
						Metadata: map[string]string{"type": "container", "dir": state.SystemDir},
					},
				},
			},
		},
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusDiagram, "diagram", false, "Print a Mermaid diagram of the vault")
}
