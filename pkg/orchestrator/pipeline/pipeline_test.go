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

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/cloudml/cloudmltest"
	"ml-toolkit/pkg/deploy"
	"ml-toolkit/pkg/imagebuilder"
	"ml-toolkit/pkg/orchestrator"
	"ml-toolkit/pkg/training"
)

func trainingDefinition() orchestrator.TrainingDefinition {
	return orchestrator.TrainingDefinition{
		Compute: cloudml.ComputeSpec{Name: "cpu-cluster", Size: "n2-highmem-8", MaxInstances: 2, Tier: "Dedicated"},
		Job: training.JobDefinition{
			DisplayName:     "iris_classification_training",
			ExperimentName:  "iris-training-experiment",
			InstanceType:    "n2-highmem-8",
			CommandTemplate: "python main.py --registered_model_name {{.registered_model_name}}",
			Inputs:          training.Inputs{TestTrainRatio: 0.2, NEstimators: 50, MaxDepth: 10, RegisteredModelName: "iris_model"},
			OutputURI:       "gs://bucket/runs",
		},
		Image: "europe-west2-docker.pkg.dev/p/mltk/iris:1",
		Poll:  training.PollOptions{Interval: time.Millisecond},
	}
}

func TestTrain(t *testing.T) {
	fake := cloudmltest.New()
	fake.JobStatuses = []cloudml.JobStatus{cloudml.JobQueued, cloudml.JobRunning, cloudml.JobCompleted}

	res, err := New(fake).Train(context.Background(), trainingDefinition())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if !res.ComputeCreated {
		t.Error("ComputeCreated = false, want true")
	}
	if res.Job.Status != cloudml.JobCompleted {
		t.Errorf("job status = %s, want Completed", res.Job.Status)
	}
	spec, _ := fake.JobSpec(res.Job.ID)
	if spec.Compute != "cpu-cluster" || spec.Image != "europe-west2-docker.pkg.dev/p/mltk/iris:1" {
		t.Errorf("submitted spec = %+v", spec)
	}
	if spec.Command != "python main.py --registered_model_name iris_model" {
		t.Errorf("command = %q", spec.Command)
	}
	if res.Model != nil {
		t.Errorf("Model = %+v, want nil without registration", res.Model)
	}
}

func TestTrainReusesComputeAndRegisters(t *testing.T) {
	fake := cloudmltest.New()
	fake.AddCompute(cloudml.Compute{Name: "cpu-cluster", Size: "n2-highmem-8"})
	def := trainingDefinition()
	def.RegisterModel = true
	def.Register = training.RegisterOptions{ArtifactSubdir: "model", ServingImage: "serving:latest"}

	res, err := New(fake).Train(context.Background(), def)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if res.ComputeCreated {
		t.Error("ComputeCreated = true, want false")
	}
	if res.Model == nil || res.Model.Name != "iris_model" {
		t.Errorf("Model = %+v, want iris_model", res.Model)
	}
}

func TestTrainJobFailure(t *testing.T) {
	fake := cloudmltest.New()
	fake.JobStatuses = []cloudml.JobStatus{cloudml.JobRunning, cloudml.JobFailed}

	res, err := New(fake).Train(context.Background(), trainingDefinition())
	var failed *training.JobFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("Train() error = %v, want *JobFailedError", err)
	}
	if !strings.Contains(err.Error(), "Failed") {
		t.Errorf("error %q does not mention Failed", err)
	}
	if res == nil || res.Job == nil || res.Job.Status != cloudml.JobFailed {
		t.Errorf("result = %+v, want the failed job", res)
	}
}

func TestTrainWritesManifest(t *testing.T) {
	fake := cloudmltest.New()
	fs := afero.NewMemMapFs()
	def := trainingDefinition()
	def.OutputManifest = "/out/job.yaml"

	res, err := New(fake, WithFs(fs)).Train(context.Background(), def)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if res.ManifestPath != "/out/job.yaml" {
		t.Errorf("ManifestPath = %q", res.ManifestPath)
	}
	if calls := fake.Calls(""); len(calls) != 0 {
		t.Errorf("remote calls = %v, want none", calls)
	}

	data, err := afero.ReadFile(fs, "/out/job.yaml")
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to unmarshal manifest: %v", err)
	}
	spec, ok := m["spec"].(map[string]any)
	if !ok {
		t.Fatalf("spec not found or not a map")
	}
	if spec["compute"] != "cpu-cluster" || spec["experimentName"] != "iris-training-experiment" {
		t.Errorf("spec = %v", spec)
	}
}

func TestTrainBuildsImage(t *testing.T) {
	code := t.TempDir()
	if err := os.WriteFile(filepath.Join(code, "main.py"), []byte("print('train')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var got imagebuilder.Options
	build := func(_ context.Context, opts imagebuilder.Options) (string, error) {
		got = opts
		if _, err := os.Stat(filepath.Join(opts.ContextDir, "main.py")); err != nil {
			t.Errorf("staged context missing main.py: %v", err)
		}
		return "registry.example/mltk/iris-training@sha256:abc", nil
	}

	def := trainingDefinition()
	def.Image = ""
	def.CodeSource = code
	def.BaseImage = "python:3.11-slim"
	def.ImageRepository = "registry.example/mltk"
	def.ImageName = "iris-training"

	fake := cloudmltest.New()
	res, err := New(fake, WithImageBuilder(build)).Train(context.Background(), def)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if res.Image != "registry.example/mltk/iris-training@sha256:abc" {
		t.Errorf("Image = %q", res.Image)
	}
	if got.BaseImage != "python:3.11-slim" || got.Name != "iris-training" {
		t.Errorf("build options = %+v", got)
	}
	spec, _ := fake.JobSpec(res.Job.ID)
	if spec.Image != res.Image {
		t.Errorf("job image = %q, want %q", spec.Image, res.Image)
	}
}

func TestTrainBuildNeedsRepository(t *testing.T) {
	def := trainingDefinition()
	def.Image = ""
	def.BaseImage = "python:3.11-slim"
	if _, err := New(cloudmltest.New()).Train(context.Background(), def); err == nil {
		t.Fatal("Train() error = nil, want missing repository error")
	}
}

func deploymentDefinition() orchestrator.DeploymentDefinition {
	return orchestrator.DeploymentDefinition{
		Endpoint:       cloudml.EndpointSpec{Name: deploy.GenerateEndpointName(""), Description: "Iris classification endpoint", AuthMode: "key"},
		ModelName:      "iris_model",
		DeploymentName: "blue",
		InstanceCount:  1,
		InstanceTypes:  deploy.DefaultInstanceTypes,
	}
}

func TestDeployEndToEnd(t *testing.T) {
	fake := cloudmltest.New()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	fake.AddModels(
		cloudml.ModelRecord{Name: "iris_model", Version: "1", CreatedAt: base},
		cloudml.ModelRecord{Name: "iris_model", Version: "2", CreatedAt: base.Add(time.Hour)},
	)
	fake.DeployErrors["n1-standard-4"] = &cloudml.Error{Kind: cloudml.KindQuotaExceeded, Op: "deploy model", Err: errors.New("not enough quota")}

	res, err := New(fake).Deploy(context.Background(), deploymentDefinition())
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if diff := cmp.Diff(map[string]int{"blue": 100}, res.Endpoint.Traffic); diff != "" {
		t.Errorf("traffic mismatch (-want +got):\n%s", diff)
	}
	if res.Fallback.InstanceType != "n2-highmem-4" {
		t.Errorf("InstanceType = %q, want n2-highmem-4", res.Fallback.InstanceType)
	}
	d, ok := fake.Deployment(res.Endpoint.Name, "blue")
	if !ok || d.Model != "iris_model:2" {
		t.Errorf("deployment = %+v, want model iris_model:2", d)
	}
	if len(fake.Payloads()) != 1 || !strings.Contains(string(res.Response), "Iris-setosa") {
		t.Errorf("invocation response = %s", res.Response)
	}
}

func TestDeployExistingEndpointSkipInvoke(t *testing.T) {
	fake := cloudmltest.New()
	fake.AddModels(cloudml.ModelRecord{Name: "iris_model", Version: "1"})
	if _, err := fake.CreateEndpoint(context.Background(), cloudml.EndpointSpec{Name: "iris-endpoint-existing"}); err != nil {
		t.Fatal(err)
	}
	def := deploymentDefinition()
	def.ExistingEndpoint = "iris-endpoint-existing"
	def.SkipInvoke = true

	res, err := New(fake).Deploy(context.Background(), def)
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if res.Endpoint.Name != "iris-endpoint-existing" {
		t.Errorf("endpoint = %q", res.Endpoint.Name)
	}
	if n := len(fake.Calls("CreateEndpoint")); n != 1 {
		t.Errorf("CreateEndpoint called %d times, want only the seed call", n)
	}
	if n := len(fake.Calls("Invoke")); n != 0 {
		t.Errorf("Invoke called %d times, want 0", n)
	}
}

func TestDeployNoModel(t *testing.T) {
	fake := cloudmltest.New()
	_, err := New(fake).Deploy(context.Background(), deploymentDefinition())
	if !cloudml.IsNotFound(err) {
		t.Fatalf("Deploy() error = %v, want not found", err)
	}
	if n := len(fake.Calls("CreateDeployment")); n != 0 {
		t.Errorf("CreateDeployment called %d times, want 0", n)
	}
}

func TestDeployExhausted(t *testing.T) {
	fake := cloudmltest.New()
	fake.AddModels(cloudml.ModelRecord{Name: "iris_model", Version: "1"})
	for _, it := range deploy.DefaultInstanceTypes {
		fake.DeployErrors[it] = &cloudml.Error{Kind: cloudml.KindUnsupportedConfiguration, Err: errors.New("not supported")}
	}
	_, err := New(fake).Deploy(context.Background(), deploymentDefinition())
	if !errors.Is(err, deploy.ErrCandidatesExhausted) {
		t.Fatalf("Deploy() error = %v, want ErrCandidatesExhausted", err)
	}
	if n := len(fake.Calls("UpdateEndpoint")); n != 0 {
		t.Errorf("UpdateEndpoint called %d times, want 0", n)
	}
}
