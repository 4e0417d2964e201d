package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/irl-llc/impressionism/internal/config"
	"github.com/irl-llc/impressionism/internal/rulesets"
)

var initIfNeeded bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "write default configuration (kept if present with --if-needed) and any missing builtin rulesets",
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs, err := config.ResolveDirs()
		if err != nil {
			return err
		}

		if config.Exists(dirs) && initIfNeeded {
			fmt.Println("configuration already present, nothing to do")
			return writeMissingBuiltins(dirs)
		}

		if err := config.Save(dirs, config.Default()); err != nil {
			return err
		}
		if err := writeMissingBuiltins(dirs); err != nil {
			return err
		}
		fmt.Printf("initialized configuration at %s\n", dirs.Path())
		return nil
	},
}

func writeMissingBuiltins(dirs config.Dirs) error {
	builtinDir := filepath.Join(dirs.RulesDir(), "builtin")
	if err := os.MkdirAll(builtinDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dirs.RulesDir(), "custom"), 0o755); err != nil {
		return err
	}
	for _, name := range rulesets.Names {
		dst := filepath.Join(builtinDir, name+".lua")
		if _, err := os.Stat(dst); err == nil {
			continue // never overwrite a builtin the operator may have customized
		}
		data, err := rulesets.Builtin.ReadFile("builtin/" + name + ".lua")
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	initCmd.Flags().BoolVar(&initIfNeeded, "if-needed", false, "skip writing configuration if it already exists")
}
