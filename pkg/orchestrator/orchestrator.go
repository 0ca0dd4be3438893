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

package orchestrator

import (
	"context"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/deploy"
	"ml-toolkit/pkg/training"
)

// TrainingDefinition holds all the parameters of one training run.
type TrainingDefinition struct {
	Compute cloudml.ComputeSpec
	// Job describes the job itself. Its Image is filled in from Image or
	// from the build when left empty.
	Job training.JobDefinition

	// Image is a pre-built training image. When empty the code at
	// CodeSource is layered onto BaseImage and pushed to ImageRepository.
	Image           string
	CodeSource      string
	BaseImage       string
	ImageRepository string
	ImageName       string
	Platform        string

	// OutputManifest, when set, is where the job manifest is written
	// instead of submitting the job.
	OutputManifest string
	Poll           training.PollOptions

	// RegisterModel registers the job's output as Job.Inputs.RegisteredModelName.
	RegisterModel bool
	Register      training.RegisterOptions
}

// TrainingResult reports what a training run did.
type TrainingResult struct {
	Compute        *cloudml.Compute
	ComputeCreated bool
	Image          string
	Spec           cloudml.JobSpec
	Job            *cloudml.Job
	Model          *cloudml.ModelRecord
	ManifestPath   string
}

// DeploymentDefinition holds all the parameters of one deployment.
type DeploymentDefinition struct {
	// Endpoint describes the endpoint to create. When ExistingEndpoint is
	// set that endpoint is reused and nothing is created.
	Endpoint         cloudml.EndpointSpec
	ExistingEndpoint string

	ModelName      string
	DeploymentName string
	InstanceCount  int
	InstanceTypes  []string

	SkipInvoke bool
	Samples    [][]float64
}

// DeploymentResult reports what a deployment did.
type DeploymentResult struct {
	Endpoint *cloudml.Endpoint
	Model    cloudml.ModelRecord
	Fallback *deploy.FallbackResult
	Response []byte
}

// Orchestrator runs the training and deployment flows.
type Orchestrator interface {
	Train(ctx context.Context, def TrainingDefinition) (*TrainingResult, error)
	Deploy(ctx context.Context, def DeploymentDefinition) (*DeploymentResult, error)
}
