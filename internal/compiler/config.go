// Package compiler implements the session-scoped Compiler façade of
// spec.md §6: the external operations table (new/compile_module/
// get_global_id/instantiate_func/instantiate_bb/increment_branch_counter)
// threading the shared VarIdGen/GlobalManager/JitContext state across
// successive compile_module calls, per spec.md §5.
//
// Grounded on the teacher's internal/pipeline package (its Pipeline type
// threads a shared *core.Program and diagnostic sink across successive
// stage calls the way Compiler threads VarIdGen/GlobalManager/JitContext
// across modules) and internal/module/loader.go (Loader's long-lived
// cache-by-id discipline is the shape Compiler's own module-id bookkeeping
// and JIT split-result cache follow).
package compiler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JitConfig configures the JIT module-splitting machinery of spec.md
// §4.8, following the teacher's yaml.v3-decoded declarative-config
// pattern (internal/eval_harness/spec.go).
type JitConfig struct {
	// Enabled turns on module splitting in compile_module (spec.md §6:
	// "emits an entry stub module when JIT is enabled").
	Enabled bool `yaml:"enabled"`

	// InlineBlockBudget overrides ssaopt.DefaultInlineBlockBudget
	// (spec.md §9 Open Question: "expose as configuration"). Zero or
	// negative selects the default.
	InlineBlockBudget int `yaml:"inline_block_budget"`

	// BranchHotThreshold is the number of increment_branch_counter calls
	// at one branch site before increment_branch_counter triggers
	// speculative recompilation (spec.md §6: "may trigger speculative
	// recompilation").
	BranchHotThreshold int `yaml:"branch_hot_threshold"`
}

// Config is the top-level session configuration (spec.md §6 "new(Config)
// | {jit: Option<JitConfig>}").
type Config struct {
	Jit *JitConfig `yaml:"jit"`
}

// LoadConfig decodes a YAML config file at path, following the teacher's
// yaml.v3 decode-from-file convention. A missing Jit section is left nil,
// meaning JIT splitting is disabled.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compiler: reading config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("compiler: parsing config %q: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) jitEnabled() bool {
	return c != nil && c.Jit != nil && c.Jit.Enabled
}

func (c *Config) inlineBudget() int {
	if c != nil && c.Jit != nil && c.Jit.InlineBlockBudget > 0 {
		return c.Jit.InlineBlockBudget
	}
	return 0 // ssaopt.Inline treats <= 0 as DefaultInlineBlockBudget.
}

func (c *Config) branchHotThreshold() int {
	if c != nil && c.Jit != nil && c.Jit.BranchHotThreshold > 0 {
		return c.Jit.BranchHotThreshold
	}
	return defaultBranchHotThreshold
}

const defaultBranchHotThreshold = 50
