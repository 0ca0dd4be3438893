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

// Package cloudml defines the control-plane operations mltk needs from a
// managed machine-learning platform, independent of any one provider.
package cloudml

import (
	"context"
	"time"
)

// ComputeSpec describes an auto-scaling training cluster.
type ComputeSpec struct {
	Name                 string
	Size                 string
	MinInstances         int
	MaxInstances         int
	IdleScaleDownSeconds int
	Tier                 string
	Location             string
}

// Compute is a provisioned compute cluster.
type Compute struct {
	Name         string
	ID           string
	Size         string
	MinInstances int
	MaxInstances int
	State        string
}

// JobSpec is a command job to run on a compute cluster.
type JobSpec struct {
	Name           string
	DisplayName    string
	ExperimentName string
	Compute        string
	InstanceType   string
	Image          string
	Command        string
	Inputs         map[string]string
	OutputURI      string
	Labels         map[string]string
}

// JobStatus is the lifecycle state reported for a job.
type JobStatus string

const (
	JobNotStarted      JobStatus = "NotStarted"
	JobQueued          JobStatus = "Queued"
	JobPreparing       JobStatus = "Preparing"
	JobStarting        JobStatus = "Starting"
	JobRunning         JobStatus = "Running"
	JobFinalizing      JobStatus = "Finalizing"
	JobCancelRequested JobStatus = "CancelRequested"
	JobCompleted       JobStatus = "Completed"
	JobFailed          JobStatus = "Failed"
	JobCanceled        JobStatus = "Canceled"
	JobNotResponding   JobStatus = "NotResponding"
	JobPaused          JobStatus = "Paused"
	JobUnknown         JobStatus = "Unknown"
)

// Terminal reports whether no further transition can occur from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCanceled, JobNotResponding:
		return true
	}
	return false
}

// Succeeded reports whether s is the single successful terminal state.
func (s JobStatus) Succeeded() bool {
	return s == JobCompleted
}

// Job is a submitted job as seen by the control plane.
type Job struct {
	ID          string
	DisplayName string
	Status      JobStatus
	Message     string
	OutputURI   string
}

// ModelSpec registers a trained artifact as a model version.
type ModelSpec struct {
	Name         string
	ArtifactURI  string
	ServingImage string
	Labels       map[string]string
}

// ModelRecord identifies one registered model version. A zero CreatedAt means
// the control plane did not report a creation time.
type ModelRecord struct {
	Name      string
	Version   string
	ID        string
	CreatedAt time.Time
}

// Ref returns "name:version", or just the name when no version is known.
func (m ModelRecord) Ref() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + ":" + m.Version
}

// EndpointSpec describes an online serving endpoint to create.
type EndpointSpec struct {
	Name        string
	Description string
	AuthMode    string
	Tags        map[string]string
	Location    string
}

// Endpoint is a serving endpoint and its traffic split, keyed by deployment
// name, in whole percent.
type Endpoint struct {
	Name        string
	ID          string
	Description string
	Deployments []string
	Traffic     map[string]int
	ScoringURI  string
}

// DeploymentSpec pins a model to one instance type behind an endpoint.
type DeploymentSpec struct {
	Name          string
	Endpoint      string
	Model         ModelRecord
	InstanceType  string
	InstanceCount int
}

// Deployment is a model instantiated on hardware behind an endpoint.
type Deployment struct {
	Name          string
	ID            string
	Endpoint      string
	Model         string
	InstanceType  string
	InstanceCount int
	State         string
}

// Client is the set of control-plane operations used by the mltk flows. Every
// mutating call blocks until the remote operation has finished.
type Client interface {
	GetCompute(ctx context.Context, name string) (*Compute, error)
	CreateCompute(ctx context.Context, spec ComputeSpec) (*Compute, error)

	SubmitJob(ctx context.Context, spec JobSpec) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)

	// ListModels lists every registration of name, or every model when name
	// is empty.
	ListModels(ctx context.Context, name string) ([]ModelRecord, error)
	RegisterModel(ctx context.Context, spec ModelSpec) (*ModelRecord, error)

	CreateEndpoint(ctx context.Context, spec EndpointSpec) (*Endpoint, error)
	GetEndpoint(ctx context.Context, name string) (*Endpoint, error)
	UpdateEndpoint(ctx context.Context, endpoint *Endpoint) (*Endpoint, error)

	// CreateDeployment creates the named deployment or replaces it.
	CreateDeployment(ctx context.Context, spec DeploymentSpec) (*Deployment, error)

	Invoke(ctx context.Context, endpoint, deployment string, payload []byte) ([]byte, error)
}
