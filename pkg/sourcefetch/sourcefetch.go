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

// Package sourcefetch stages training code into a local build directory and
// describes where it came from.
package sourcefetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter"
	cp "github.com/otiai10/copy"

	"ml-toolkit/pkg/logging"
)

// skipDirs are never copied into the build context.
var skipDirs = map[string]bool{".git": true, "__pycache__": true, ".venv": true}

// Stage copies or downloads the code at src into a new directory under
// workDir and returns its path. src may be a local directory or any address
// go-getter understands, such as "github.com/org/repo//src?ref=v1" or
// "gs://bucket/code.tar.gz".
func Stage(ctx context.Context, src, workDir string) (string, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	detected, err := getter.Detect(src, pwd, getter.Detectors)
	if err != nil {
		return "", fmt.Errorf("failed to resolve code source %q: %w", src, err)
	}

	dst := filepath.Join(workDir, "code")
	if local, ok := strings.CutPrefix(detected, "file://"); ok {
		if err := copyLocal(local, dst); err != nil {
			return "", err
		}
		return dst, nil
	}

	logging.Info("Downloading training code from %s", detected)
	client := &getter.Client{
		Ctx:  ctx,
		Src:  detected,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeDir,
	}
	if err := client.Get(); err != nil {
		return "", fmt.Errorf("failed to download code from %q: %w", src, err)
	}
	return dst, nil
}

func copyLocal(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to read code directory %q: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("code source %q is not a directory", src)
	}

	logging.Debug("Copying training code from %s to %s", src, dst)
	err = cp.Copy(src, dst, cp.Options{
		Skip: func(fi os.FileInfo, path, _ string) (bool, error) {
			return fi.IsDir() && skipDirs[filepath.Base(path)], nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to copy code from %q: %w", src, err)
	}
	return nil
}
