// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestStepAndLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	defer SetLevel("info")

	Step(2, "Deploying %s...", "model")
	Info("hidden")
	Warn("shown %d", 1)

	out := buf.String()
	if !strings.Contains(out, "Step 2: Deploying model...") {
		t.Errorf("output %q missing step banner", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("output %q contains info record at warn level", out)
	}
	if !strings.Contains(out, "shown 1") {
		t.Errorf("output %q missing warning", out)
	}
}

func TestSetLevelInvalid(t *testing.T) {
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel(loud) error = nil")
	}
}

func TestFatalExits(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	code := -1
	exitFunc = func(c int) { code = c }
	defer func() { exitFunc = os.Exit }()

	Fatal("bad flag %q", "x")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), `bad flag \"x\"`) && !strings.Contains(buf.String(), `bad flag "x"`) {
		t.Errorf("output %q missing message", buf.String())
	}
}
