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
	"context"
	"errors"
	"fmt"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

// ModelLister is the subset of cloudml.Client used to find model versions.
type ModelLister interface {
	ListModels(ctx context.Context, name string) ([]cloudml.ModelRecord, error)
}

// SelectLatest returns the record with the newest creation time. Records
// without a timestamp sort before every dated record and ties keep the
// earliest record in the slice. ok is false for an empty slice.
func SelectLatest(models []cloudml.ModelRecord) (latest cloudml.ModelRecord, ok bool) {
	best := -1
	for i, m := range models {
		if best < 0 || m.CreatedAt.After(models[best].CreatedAt) {
			best = i
		}
	}
	if best < 0 {
		return cloudml.ModelRecord{}, false
	}
	return models[best], true
}

// ResolveLatestModel lists the registered versions of name and returns the
// newest. No versions yields a cloudml.Error of kind NotFound.
func ResolveLatestModel(ctx context.Context, lister ModelLister, name string) (cloudml.ModelRecord, error) {
	models, err := lister.ListModels(ctx, name)
	if err != nil {
		return cloudml.ModelRecord{}, fmt.Errorf("failed to list versions of model %q: %w", name, err)
	}
	latest, ok := SelectLatest(models)
	if !ok {
		return cloudml.ModelRecord{}, &cloudml.Error{
			Kind:     cloudml.KindNotFound,
			Op:       "resolve latest model",
			Resource: name,
			Err:      errors.New("no registered versions found"),
		}
	}
	if latest.CreatedAt.IsZero() {
		logging.Info("Using %s (creation time unknown)", latest.Ref())
	} else {
		logging.Info("Using %s created at %s", latest.Ref(), latest.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return latest, nil
}
