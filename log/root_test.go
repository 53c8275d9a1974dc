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

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := terminal.Out
	oldLvl := terminal.GetLevel()
	terminal.SetOutput(&buf)
	terminal.SetLevel(logrus.TraceLevel)
	t.Cleanup(func() {
		terminal.SetOutput(old)
		terminal.SetLevel(oldLvl)
	})
	return &buf
}

func TestRootLoggerWritesKeyValues(t *testing.T) {
	buf := captureOutput(t)

	Info("frame started", "depth", 3, "gas", 21000)

	out := buf.String()
	if !strings.Contains(out, "frame started") {
		t.Errorf("message missing from output: %q", out)
	}
	if !strings.Contains(out, "depth=3") || !strings.Contains(out, "gas=21000") {
		t.Errorf("context fields missing from output: %q", out)
	}
}

func TestChildLoggerInheritsContext(t *testing.T) {
	buf := captureOutput(t)

	l := New("module", "sync")
	l.Warn("divergence", "op", "ADD")

	out := buf.String()
	if !strings.Contains(out, "module=sync") || !strings.Contains(out, "op=ADD") {
		t.Errorf("child context missing: %q", out)
	}
}

func TestFieldsOfToleratesOddContext(t *testing.T) {
	fields := fieldsOf([]interface{}{"key1", 1, "dangling"})
	if fields["key1"] != 1 {
		t.Errorf("paired field lost: %v", fields)
	}
	if _, ok := fields["dangling"]; !ok {
		t.Error("dangling key should be kept with a nil value")
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	terminal.SetLevel(logrus.WarnLevel)

	Debug("hidden")
	Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug output should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn output should pass")
	}
}
