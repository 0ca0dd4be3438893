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

package imagebuilder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/sirupsen/logrus"
)

const IgnoreFile = ".mltkignore"

// ReadIgnorePatterns combines defaults with the patterns found in the
// context directory's ignore file, if it has one.
func ReadIgnorePatterns(dir string, defaults []string) (*patternmatcher.PatternMatcher, error) {
	patterns := append([]string(nil), defaults...)

	for _, fileName := range []string{IgnoreFile, ".dockerignore"} {
		p := filepath.Join(dir, fileName)
		f, err := os.Open(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open ignore file %q: %w", p, err)
		}
		filePatterns, err := ignorefile.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read ignore file %q: %w", p, err)
		}
		logrus.Infof("Found %d patterns in %s", len(filePatterns), p)
		patterns = append(patterns, filePatterns...)
		break
	}

	matcher, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern matcher: %w", err)
	}
	return matcher, nil
}
