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

package training

import (
	"context"
	"fmt"
	"path"
	"strings"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

// ModelRegistrar is the subset of cloudml.Client used by RegisterModel.
type ModelRegistrar interface {
	RegisterModel(ctx context.Context, spec cloudml.ModelSpec) (*cloudml.ModelRecord, error)
}

// RegisterOptions locate the model artifact inside a job's output directory.
type RegisterOptions struct {
	ArtifactSubdir string
	ServingImage   string
}

// RegisterModel registers the artifact written by a completed job as a new
// version of name.
func RegisterModel(ctx context.Context, client ModelRegistrar, job *cloudml.Job, name string, opts RegisterOptions) (*cloudml.ModelRecord, error) {
	if job.OutputURI == "" {
		return nil, fmt.Errorf("job %s has no output location to register a model from", job.ID)
	}
	artifact := strings.TrimSuffix(job.OutputURI, "/")
	if opts.ArtifactSubdir != "" {
		artifact += "/" + strings.Trim(opts.ArtifactSubdir, "/")
	}

	spec := cloudml.ModelSpec{
		Name:         name,
		ArtifactURI:  artifact,
		ServingImage: opts.ServingImage,
		Labels:       map[string]string{"training-job": path.Base(job.ID)},
	}
	logging.Info("Registering model %s from %s...", name, artifact)
	rec, err := client.RegisterModel(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to register model %q: %w", name, err)
	}
	logging.Info("Registered model %s", rec.Ref())
	return rec, nil
}
