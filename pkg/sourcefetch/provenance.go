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

package sourcefetch

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-git/go-git/v5"
)

// Provenance returns labels identifying the git commit that dir belongs to:
// "git-commit", "git-branch" (when on a branch) and "git-dirty". A directory
// outside any repository yields no labels and no error.
func Provenance(dir string) (map[string]string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %q: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to read HEAD of %q: %w", dir, err)
	}
	labels := map[string]string{"git-commit": head.Hash().String()[:12]}
	if head.Name().IsBranch() {
		labels["git-branch"] = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree of %q: %w", dir, err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status of %q: %w", dir, err)
	}
	labels["git-dirty"] = strconv.FormatBool(!status.IsClean())
	return labels, nil
}
