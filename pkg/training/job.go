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
	"regexp"
	"strings"

	"github.com/google/uuid"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

// JobDefinition is everything needed to build a training job request.
type JobDefinition struct {
	DisplayName     string
	ExperimentName  string
	Compute         string
	InstanceType    string
	Image           string
	CommandTemplate string
	Inputs          Inputs
	OutputURI       string
	Labels          map[string]string
}

// JobSubmitter is the subset of cloudml.Client used by SubmitJob.
type JobSubmitter interface {
	SubmitJob(ctx context.Context, spec cloudml.JobSpec) (*cloudml.Job, error)
}

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// BuildJobSpec renders the command and assigns the job a unique name derived
// from its display name.
func BuildJobSpec(def JobDefinition) (cloudml.JobSpec, error) {
	if def.Image == "" {
		return cloudml.JobSpec{}, fmt.Errorf("training job %q has no container image", def.DisplayName)
	}
	command, err := RenderCommand(def.CommandTemplate, def.Inputs)
	if err != nil {
		return cloudml.JobSpec{}, err
	}

	base := strings.Trim(invalidNameChars.ReplaceAllString(strings.ToLower(def.DisplayName), "-"), "-")
	if base == "" {
		base = "training"
	}

	return cloudml.JobSpec{
		Name:           base + "-" + uuid.NewString()[:8],
		DisplayName:    def.DisplayName,
		ExperimentName: def.ExperimentName,
		Compute:        def.Compute,
		InstanceType:   def.InstanceType,
		Image:          def.Image,
		Command:        command,
		Inputs:         def.Inputs.Values(),
		OutputURI:      def.OutputURI,
		Labels:         def.Labels,
	}, nil
}

// SubmitJob sends spec to the control plane and returns the queued job.
func SubmitJob(ctx context.Context, client JobSubmitter, spec cloudml.JobSpec) (*cloudml.Job, error) {
	logging.Debug("Submitting training job %s with command: %s", spec.Name, spec.Command)
	job, err := client.SubmitJob(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to submit training job %q: %w", spec.DisplayName, err)
	}
	logging.Info("Job submitted: %s", job.ID)
	return job, nil
}
