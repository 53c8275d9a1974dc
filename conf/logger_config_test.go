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
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
)

func TestLoggerConfigValidateNormalizes(t *testing.T) {
	cfg := LoggerConfig{Level: "bogus", MaxSize: -1, MaxBackups: -2, MaxAge: -3}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate should not fail: %v", err)
	}
	if cfg.Level != "info" || cfg.MaxSize != 10 || cfg.MaxBackups != 3 || cfg.MaxAge != 7 {
		t.Errorf("invalid fields should fall back to defaults: %+v", cfg)
	}
}

func TestTracerConfigDefaults(t *testing.T) {
	cfg := DefaultTracerConfig()
	if !cfg.IncludeStack || cfg.MaxStackItems != 16 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ArenaSize != 64*datasize.KB {
		t.Errorf("arena default should be 64KB, got %v", cfg.ArenaSize)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	payload := []byte(`
logger:
  level: debug
  max_size: 5
tracer:
  include_memory: true
  max_stack_items: 4
  disabled_events: [step]
`)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logger.Level != "debug" || cfg.Logger.MaxSize != 5 {
		t.Errorf("logger section not applied: %+v", cfg.Logger)
	}
	if !cfg.Tracer.IncludeMemory || cfg.Tracer.MaxStackItems != 4 {
		t.Errorf("tracer section not applied: %+v", cfg.Tracer)
	}
	if len(cfg.Tracer.DisabledEvents) != 1 || cfg.Tracer.DisabledEvents[0] != "step" {
		t.Errorf("disabled events not applied: %v", cfg.Tracer.DisabledEvents)
	}
	// Absent fields keep their defaults.
	if !cfg.Tracer.IncludeStack {
		t.Error("absent fields should keep defaults")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/no/such/config.yaml"); err == nil {
		t.Error("missing file should surface an error")
	}
}
