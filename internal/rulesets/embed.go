// Package rulesets embeds the builtin Lua rulesets shipped with the
// binary, so `init` can materialize them under $CONFIG_DIR/rules/builtin
// without needing network access or a separate asset pipeline.
package rulesets

import "embed"

//go:embed builtin/*.lua
var Builtin embed.FS

// Names lists the embedded builtin rulesets in a stable order.
var Names = []string{"default", "minimal"}
