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

// Package pipeline implements orchestrator.Orchestrator over a cloudml.Client.
package pipeline

import (
	"context"
	"fmt"
	"maps"
	"os"

	"github.com/spf13/afero"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/deploy"
	"ml-toolkit/pkg/imagebuilder"
	"ml-toolkit/pkg/logging"
	"ml-toolkit/pkg/orchestrator"
	"ml-toolkit/pkg/sourcefetch"
	"ml-toolkit/pkg/training"
)

// Pipeline sequences the training and deployment steps, narrating each one.
type Pipeline struct {
	client cloudml.Client
	fs     afero.Fs
	router *deploy.Router
	build  func(ctx context.Context, opts imagebuilder.Options) (string, error)
}

var _ orchestrator.Orchestrator = (*Pipeline)(nil)

type Option func(*Pipeline)

// WithFs sets the filesystem manifests are written to.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// WithImageBuilder replaces imagebuilder.Build.
func WithImageBuilder(build func(ctx context.Context, opts imagebuilder.Options) (string, error)) Option {
	return func(p *Pipeline) { p.build = build }
}

func New(client cloudml.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		client: client,
		fs:     afero.NewOsFs(),
		router: &deploy.Router{},
		build:  imagebuilder.Build,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type stepper struct{ n int }

func (s *stepper) next(f string, a ...any) {
	s.n++
	logging.Step(s.n, f, a...)
}

// Train runs the training flow. With an output manifest it stops after
// writing the manifest and touches no remote resources besides the image
// registry.
func (p *Pipeline) Train(ctx context.Context, def orchestrator.TrainingDefinition) (*orchestrator.TrainingResult, error) {
	var steps stepper
	res := &orchestrator.TrainingResult{}

	image, labels, err := p.trainingImage(ctx, &steps, def)
	if err != nil {
		return nil, err
	}
	res.Image = image

	jobDef := def.Job
	jobDef.Image = image
	jobDef.Compute = def.Compute.Name
	jobDef.Labels = mergeLabels(jobDef.Labels, labels)
	spec, err := training.BuildJobSpec(jobDef)
	if err != nil {
		return nil, err
	}
	res.Spec = spec

	if def.OutputManifest != "" {
		steps.next("Writing training job manifest...")
		if err := p.writeManifest(spec, def.OutputManifest); err != nil {
			return nil, err
		}
		res.ManifestPath = def.OutputManifest
		return res, nil
	}

	steps.next("Ensuring compute cluster %s...", def.Compute.Name)
	compute, created, err := training.EnsureCompute(ctx, p.client, def.Compute)
	if err != nil {
		return nil, err
	}
	res.Compute, res.ComputeCreated = compute, created

	steps.next("Submitting training job...")
	job, err := training.SubmitJob(ctx, p.client, spec)
	if err != nil {
		return nil, err
	}
	res.Job = job

	steps.next("Waiting for job %s to finish...", job.ID)
	job, err = training.AwaitCompletion(ctx, p.client, job.ID, def.Poll)
	if job != nil {
		res.Job = job
	}
	if err != nil {
		return res, err
	}
	logging.Success("Training job %s completed", job.ID)

	if def.RegisterModel {
		steps.next("Registering model %s...", def.Job.Inputs.RegisteredModelName)
		model, err := training.RegisterModel(ctx, p.client, job, def.Job.Inputs.RegisteredModelName, def.Register)
		if err != nil {
			return res, err
		}
		res.Model = model
	}
	return res, nil
}

// trainingImage returns the image to train with, building it when no
// pre-built image is given, plus provenance labels for the job.
func (p *Pipeline) trainingImage(ctx context.Context, steps *stepper, def orchestrator.TrainingDefinition) (string, map[string]string, error) {
	if def.Image != "" {
		logging.Info("Using pre-built training image: %s", def.Image)
		return def.Image, nil, nil
	}
	if def.BaseImage == "" || def.ImageRepository == "" {
		return "", nil, fmt.Errorf("building a training image requires a base image and an image repository")
	}
	steps.next("Building training image from %s...", def.CodeSource)

	var labels map[string]string
	if info, err := os.Stat(def.CodeSource); err == nil && info.IsDir() {
		if labels, err = sourcefetch.Provenance(def.CodeSource); err != nil {
			logging.Warn("Could not read git provenance of %s: %v", def.CodeSource, err)
		}
	}

	workDir, err := os.MkdirTemp("", "mltk-train-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	codeDir, err := sourcefetch.Stage(ctx, def.CodeSource, workDir)
	if err != nil {
		return "", nil, err
	}
	ignore, err := imagebuilder.ReadIgnorePatterns(codeDir, imagebuilder.DefaultIgnorePatterns)
	if err != nil {
		return "", nil, err
	}
	image, err := p.build(ctx, imagebuilder.Options{
		BaseImage:  def.BaseImage,
		ContextDir: codeDir,
		Repository: def.ImageRepository,
		Name:       def.ImageName,
		Platform:   def.Platform,
		Labels:     labels,
		Ignore:     ignore,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to build training image: %w", err)
	}
	logging.Info("Built training image %s", image)
	return image, labels, nil
}

func (p *Pipeline) writeManifest(spec cloudml.JobSpec, path string) error {
	manifest, err := training.RenderManifest(spec)
	if err != nil {
		return fmt.Errorf("failed to generate training job manifest: %w", err)
	}
	logging.Info("Saving training job manifest to %s", path)
	if err := afero.WriteFile(p.fs, path, []byte(manifest), 0o644); err != nil {
		return fmt.Errorf("failed to write training job manifest to file %s: %w", path, err)
	}
	return nil
}

func mergeLabels(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	out := maps.Clone(dst)
	if out == nil {
		out = map[string]string{}
	}
	maps.Copy(out, src)
	return out
}

// Deploy runs the deployment flow.
func (p *Pipeline) Deploy(ctx context.Context, def orchestrator.DeploymentDefinition) (*orchestrator.DeploymentResult, error) {
	var steps stepper
	res := &orchestrator.DeploymentResult{}

	if def.ExistingEndpoint != "" {
		steps.next("Using endpoint %s...", def.ExistingEndpoint)
		ep, err := p.client.GetEndpoint(ctx, def.ExistingEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to get endpoint %q: %w", def.ExistingEndpoint, err)
		}
		res.Endpoint = ep
	} else {
		steps.next("Creating endpoint...")
		ep, err := deploy.CreateEndpoint(ctx, p.client, def.Endpoint)
		if err != nil {
			return nil, err
		}
		res.Endpoint = ep
	}
	endpoint := res.Endpoint.Name

	steps.next("Deploying model...")
	model, err := deploy.ResolveLatestModel(ctx, p.client, def.ModelName)
	if err != nil {
		return res, err
	}
	res.Model = model

	fallback, err := deploy.DeployWithFallback(ctx, p.client, cloudml.DeploymentSpec{
		Name:          def.DeploymentName,
		Endpoint:      endpoint,
		Model:         model,
		InstanceCount: def.InstanceCount,
	}, def.InstanceTypes)
	if err != nil {
		return res, err
	}
	res.Fallback = fallback

	ep, err := p.router.RouteAll(ctx, p.client, endpoint, def.DeploymentName)
	if err != nil {
		return res, err
	}
	res.Endpoint = ep
	logging.Success("Model %s deployed on %s", model.Ref(), fallback.InstanceType)

	if !def.SkipInvoke {
		steps.next("Testing endpoint...")
		samples := def.Samples
		if len(samples) == 0 {
			samples = deploy.IrisSamples
		}
		resp, err := deploy.Invoke(ctx, p.client, endpoint, def.DeploymentName, deploy.PredictionRequest{Data: samples})
		if err != nil {
			return res, err
		}
		res.Response = resp
		logging.Info("Prediction results: %s", resp)
	}

	logging.Success("Deployment complete! Endpoint name: %s", endpoint)
	return res, nil
}
