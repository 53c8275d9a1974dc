// Copyright 2022-2026 The shadowtrace Authors
// This file is part of the shadowtrace library.
//
// The shadowtrace library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The shadowtrace library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the shadowtrace library. If not, see <http://www.gnu.org/licenses/>.

package conf

import (
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v2"
)

// TracerConfig configures the trace event stream and the per-frame arena.
// Filters only affect what is emitted, never execution semantics.
type TracerConfig struct {
	// TraceFile is the JSON Lines output path. Empty means stdout.
	TraceFile string `json:"trace_file" yaml:"trace_file"`

	// IncludeStack emits the operand stack with step events.
	IncludeStack bool `json:"include_stack" yaml:"include_stack"`

	// MaxStackItems caps the emitted stack items, top-down. 0 means all.
	MaxStackItems int `json:"max_stack_items" yaml:"max_stack_items"`

	// IncludeMemory emits frame memory with step events.
	IncludeMemory bool `json:"include_memory" yaml:"include_memory"`

	// IncludeReturnData emits return data with completion events.
	IncludeReturnData bool `json:"include_return_data" yaml:"include_return_data"`

	// DisabledEvents lists event type names that are not emitted.
	DisabledEvents []string `json:"disabled_events" yaml:"disabled_events"`

	// ArenaSize is the per-frame scratch arena capacity, e.g. "64KB".
	ArenaSize datasize.ByteSize `json:"arena_size" yaml:"arena_size"`

	// DebugEvents enables the analysis and host debug hooks. When false the
	// corresponding callback bodies are no-ops.
	DebugEvents bool `json:"debug_events" yaml:"debug_events"`
}

// DefaultTracerConfig returns the defaults used by the CLI.
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{
		IncludeStack:      true,
		MaxStackItems:     16,
		IncludeReturnData: true,
		ArenaSize:         64 * datasize.KB,
	}
}

// Validate normalizes invalid fields to their defaults.
func (c *TracerConfig) Validate() error {
	if c.MaxStackItems < 0 {
		c.MaxStackItems = 0
	}
	if c.ArenaSize == 0 {
		c.ArenaSize = 64 * datasize.KB
	}
	return nil
}

// Config is the top-level configuration file layout.
type Config struct {
	Logger LoggerConfig `json:"logger" yaml:"logger"`
	Tracer TracerConfig `json:"tracer" yaml:"tracer"`
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() Config {
	return Config{
		Logger: DefaultLoggerConfig(),
		Tracer: DefaultTracerConfig(),
	}
}

// LoadConfig reads a yaml configuration file, applying defaults for absent
// fields.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	_ = cfg.Logger.Validate()
	_ = cfg.Tracer.Validate()
	return cfg, nil
}
