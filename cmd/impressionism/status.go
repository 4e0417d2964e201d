package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/config"
	"github.com/irl-llc/impressionism/internal/embedder"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "print a catalog summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs, err := config.ResolveDirs()
		if err != nil {
			return err
		}
		emb := embedder.NewFixture(nil)
		store, err := catalog.Open(cmd.Context(), dirs.CatalogDir(), emb.Dim(), catalog.DefaultLockTimeout, log)
		if err != nil {
			return err
		}
		defer store.Close()

		sum, err := store.Summarize(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("schema version: %d\n", sum.SchemaVersion)
		fmt.Printf("total skills: %d\n", sum.TotalSkills)
		for src, n := range sum.SkillsBySource {
			fmt.Printf("  %s: %d\n", src, n)
		}
		if sum.LastIndexedPath != "" {
			fmt.Printf("last indexed: %s\n", sum.LastIndexedPath)
		}
		fmt.Printf("active sessions: %d\n", sum.ActiveSessions)
		return nil
	},
}
