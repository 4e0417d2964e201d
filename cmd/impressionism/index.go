package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irl-llc/impressionism/internal/catalog"
	"github.com/irl-llc/impressionism/internal/config"
	"github.com/irl-llc/impressionism/internal/embedder"
	"github.com/irl-llc/impressionism/internal/index"
	"github.com/irl-llc/impressionism/internal/skill"
)

var (
	indexForce bool
	indexQuick bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "discover, parse, and embed skill files into the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs, err := config.ResolveDirs()
		if err != nil {
			return err
		}
		cfg, err := config.Load(dirs)
		if err != nil {
			return err
		}

		emb := embedder.NewFixture(nil)
		store, err := catalog.Open(cmd.Context(), dirs.CatalogDir(), emb.Dim(), catalog.DefaultLockTimeout, log)
		if err != nil {
			return err
		}
		defer store.Close()

		roots := make([]index.Root, len(cfg.Indexing.Directories))
		for i, d := range cfg.Indexing.Directories {
			roots[i] = index.Root{Path: d, Source: skill.BucketProject}
		}
		patterns := cfg.Indexing.Patterns
		if len(patterns) == 0 {
			patterns = index.DefaultPatterns
		}
		ignore := cfg.Indexing.Ignore
		if len(ignore) == 0 {
			ignore = index.DefaultIgnore
		}

		ix := index.New(index.Config{Roots: roots, Patterns: patterns, Ignore: ignore}, store, emb, log)
		res, err := ix.Run(cmd.Context(), index.Options{Force: indexForce, Quick: indexQuick})
		if err != nil {
			return err
		}

		fmt.Printf("indexed: %d upserted, %d deleted, %d unchanged, %d parse errors\n",
			res.Upserted, res.Deleted, res.Unchanged, len(res.ParseErrors))
		for _, pe := range res.ParseErrors {
			fmt.Printf("  parse error: %s: %s\n", pe.Path, pe.Diagnostic)
		}
		if res.Partial {
			fmt.Println("pass ended early: time budget exhausted")
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "ignore content-hash skip and re-embed every discovered file")
	indexCmd.Flags().BoolVar(&indexQuick, "quick", false, "bounded time-budget pass; never deletes stale rows")
}
