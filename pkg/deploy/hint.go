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

package deploy

import (
	"strings"

	"github.com/agext/levenshtein"
)

// SuggestModelName returns the candidate closest to name by edit distance,
// if one is close enough to be a plausible typo.
func SuggestModelName(name string, candidates []string) (string, bool) {
	want := strings.ToLower(name)
	limit := max(2, len(want)/3)

	best, bestDist := "", limit+1
	for _, c := range candidates {
		if c == name {
			continue
		}
		if d := levenshtein.Distance(want, strings.ToLower(c), nil); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
