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

// Package logging provides the console output used by the mltk commands.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	log                = logrus.New()
	stepOut  io.Writer = os.Stdout
	exitFunc           = os.Exit

	stepColor = color.New(color.FgCyan, color.Bold)
	okColor   = color.New(color.FgGreen)
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:    !isatty.IsTerminal(os.Stderr.Fd()),
		DisableTimestamp: true,
	})
	color.NoColor = color.NoColor || !isatty.IsTerminal(os.Stdout.Fd())
}

// SetLevel parses a logrus level name such as "debug" or "warn".
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	return nil
}

// SetOutput redirects both log records and step banners. Used by tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	stepOut = w
}

func Debug(f string, a ...any) {
	log.Debugf(f, a...)
}

func Info(f string, a ...any) {
	log.Infof(f, a...)
}

func Warn(f string, a ...any) {
	log.Warnf(f, a...)
}

func Error(f string, a ...any) {
	log.Errorf(f, a...)
}

// Fatal logs at error level and exits the process with status 1.
func Fatal(f string, a ...any) {
	Error(f, a...)
	exitFunc(1)
}

// Step prints a numbered progress banner, e.g. "Step 2: Deploying model...".
func Step(n int, f string, a ...any) {
	stepColor.Fprintf(stepOut, "\nStep %d: %s\n", n, fmt.Sprintf(f, a...))
}

// Success prints a confirmation line for a finished step.
func Success(f string, a ...any) {
	okColor.Fprintf(stepOut, "✓ %s\n", fmt.Sprintf(f, a...))
}
