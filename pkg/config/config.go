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

// Package config loads mltk settings from an optional YAML file, environment
// variables and built-in defaults.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is the complete tool configuration.
type Config struct {
	Project  string `yaml:"project"`
	Location string `yaml:"location"`

	Compute    ComputeConfig    `yaml:"compute"`
	Training   TrainingConfig   `yaml:"training"`
	Deployment DeploymentConfig `yaml:"deployment"`
}

// ComputeConfig is the desired shape of the training cluster. It is applied
// only when the cluster does not exist yet.
type ComputeConfig struct {
	Name                    string `yaml:"name"`
	Size                    string `yaml:"size"`
	MinInstances            int    `yaml:"min_instances"`
	MaxInstances            int    `yaml:"max_instances"`
	IdleTimeBeforeScaleDown int    `yaml:"idle_time_before_scale_down"`
	Tier                    string `yaml:"tier"`
	Location                string `yaml:"location"`
}

type TrainingConfig struct {
	ExperimentName string `yaml:"experiment_name"`
	DisplayName    string `yaml:"display_name"`
	// Code is a local directory or a go-getter source address.
	Code string `yaml:"code"`
	// Environment is the base image the code layer is appended to.
	Environment     string `yaml:"environment"`
	Image           string `yaml:"image"`
	ImageRepository string `yaml:"image_repository"`
	Platform        string `yaml:"platform"`
	Command         string `yaml:"command"`
	Inputs          Inputs `yaml:"inputs"`
	OutputURI       string `yaml:"output_uri"`

	PollInterval time.Duration `yaml:"poll_interval"`
	// Timeout bounds the wait for job completion; zero waits forever.
	Timeout time.Duration `yaml:"timeout"`

	Register RegisterConfig `yaml:"register"`
}

// Inputs are the job parameters substituted into the command template.
type Inputs struct {
	TestTrainRatio      float64 `yaml:"test_train_ratio"`
	NEstimators         int     `yaml:"n_estimators"`
	MaxDepth            int     `yaml:"max_depth"`
	RegisteredModelName string  `yaml:"registered_model_name"`
}

// RegisterConfig enables registering the job output as a model. Registration
// is skipped when ServingImage is empty.
type RegisterConfig struct {
	ArtifactSubdir string `yaml:"artifact_subdir"`
	ServingImage   string `yaml:"serving_image"`
}

type DeploymentConfig struct {
	ModelName      string            `yaml:"model_name"`
	EndpointPrefix string            `yaml:"endpoint_prefix"`
	Description    string            `yaml:"description"`
	AuthMode       string            `yaml:"auth_mode"`
	Tags           map[string]string `yaml:"tags"`
	DeploymentName string            `yaml:"deployment_name"`
	InstanceCount  int               `yaml:"instance_count"`
	// InstanceTypes are tried in order until one deploys.
	InstanceTypes []string    `yaml:"instance_types"`
	SampleData    [][]float64 `yaml:"sample_data"`
}

const (
	TierDedicated   = "Dedicated"
	TierLowPriority = "LowPriority"
)

// DefaultCommand runs the training entry point with every input.
const DefaultCommand = "python main.py" +
	" --test_train_ratio {{.test_train_ratio}}" +
	" --n_estimators {{.n_estimators}}" +
	" --max_depth {{.max_depth}}" +
	" --registered_model_name {{.registered_model_name}}"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Location: "europe-west2",
		Compute: ComputeConfig{
			Name:                    "cpu-cluster",
			Size:                    "n2-highmem-8",
			MinInstances:            0,
			MaxInstances:            2,
			IdleTimeBeforeScaleDown: 180,
			Tier:                    TierDedicated,
		},
		Training: TrainingConfig{
			ExperimentName: "iris-training-experiment",
			DisplayName:    "iris_classification_training",
			Code:           "./src/",
			Environment:    "us-docker.pkg.dev/vertex-ai/training/sklearn-cpu.1-0:latest",
			Platform:       "linux/amd64",
			Command:        DefaultCommand,
			Inputs: Inputs{
				TestTrainRatio:      0.2,
				NEstimators:         50,
				MaxDepth:            10,
				RegisteredModelName: "iris_model",
			},
			PollInterval: 30 * time.Second,
			Register: RegisterConfig{
				ArtifactSubdir: "model",
			},
		},
		Deployment: DeploymentConfig{
			ModelName:      "iris_model",
			EndpointPrefix: "iris-endpoint",
			Description:    "Iris classification endpoint",
			AuthMode:       "key",
			Tags:           map[string]string{"model_type": "sklearn.RandomForestClassifier"},
			DeploymentName: "blue",
			InstanceCount:  1,
			InstanceTypes:  []string{"n1-standard-4", "n2-highmem-4", "n2-highmem-2"},
			SampleData: [][]float64{
				{5.1, 3.5, 1.4, 0.2},
				{6.2, 3.4, 5.4, 2.3},
				{5.8, 2.7, 4.1, 1.0},
			},
		},
	}
}

// Load reads path (if non-empty) from fs over the defaults, then applies
// environment overrides. Unknown YAML keys are rejected.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %q", path)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "failed to parse config file %q", path)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.Project = firstNonEmpty(getenv("MLTK_PROJECT"), c.Project, getenv("GOOGLE_CLOUD_PROJECT"))
	c.Location = firstNonEmpty(getenv("MLTK_LOCATION"), c.Location)
	c.Training.ImageRepository = firstNonEmpty(getenv("MLTK_IMAGE_REPOSITORY"), c.Training.ImageRepository)
	c.Training.OutputURI = firstNonEmpty(getenv("MLTK_OUTPUT_URI"), c.Training.OutputURI)
	if c.Compute.Location == "" {
		c.Compute.Location = c.Location
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Location == "" {
		return errors.New("location must be set")
	}
	if err := c.Compute.validate(); err != nil {
		return errors.Wrap(err, "invalid compute settings")
	}
	if err := c.Training.validate(); err != nil {
		return errors.Wrap(err, "invalid training settings")
	}
	if err := c.Deployment.validate(); err != nil {
		return errors.Wrap(err, "invalid deployment settings")
	}
	return nil
}

func (c ComputeConfig) validate() error {
	switch {
	case c.Name == "":
		return errors.New("name must be set")
	case c.Size == "":
		return errors.New("size must be set")
	case c.MinInstances < 0:
		return errors.Errorf("min_instances must not be negative, got %d", c.MinInstances)
	case c.MaxInstances < 1:
		return errors.Errorf("max_instances must be at least 1, got %d", c.MaxInstances)
	case c.MinInstances > c.MaxInstances:
		return errors.Errorf("min_instances (%d) exceeds max_instances (%d)", c.MinInstances, c.MaxInstances)
	case c.IdleTimeBeforeScaleDown < 0:
		return errors.Errorf("idle_time_before_scale_down must not be negative, got %d", c.IdleTimeBeforeScaleDown)
	}
	if c.Tier != TierDedicated && c.Tier != TierLowPriority {
		return errors.Errorf("tier must be %q or %q, got %q", TierDedicated, TierLowPriority, c.Tier)
	}
	return nil
}

func (t TrainingConfig) validate() error {
	switch {
	case t.Command == "":
		return errors.New("command must be set")
	case t.Image == "" && t.Code == "":
		return errors.New("either image or code must be set")
	case t.Image == "" && t.Environment == "":
		return errors.New("environment must be set when building an image from code")
	case t.Inputs.TestTrainRatio <= 0 || t.Inputs.TestTrainRatio >= 1:
		return errors.Errorf("inputs.test_train_ratio must be between 0 and 1, got %v", t.Inputs.TestTrainRatio)
	case t.Inputs.NEstimators < 1:
		return errors.Errorf("inputs.n_estimators must be positive, got %d", t.Inputs.NEstimators)
	case t.Inputs.MaxDepth < 1:
		return errors.Errorf("inputs.max_depth must be positive, got %d", t.Inputs.MaxDepth)
	case t.Inputs.RegisteredModelName == "":
		return errors.New("inputs.registered_model_name must be set")
	case t.PollInterval < 0:
		return errors.Errorf("poll_interval must not be negative, got %s", t.PollInterval)
	case t.Timeout < 0:
		return errors.Errorf("timeout must not be negative, got %s", t.Timeout)
	case t.Register.ServingImage != "" && t.OutputURI == "":
		return errors.New("output_uri must be set to register the trained model")
	}
	return nil
}

func (d DeploymentConfig) validate() error {
	switch {
	case d.ModelName == "":
		return errors.New("model_name must be set")
	case d.EndpointPrefix == "":
		return errors.New("endpoint_prefix must be set")
	case d.DeploymentName == "":
		return errors.New("deployment_name must be set")
	case d.InstanceCount < 1:
		return errors.Errorf("instance_count must be at least 1, got %d", d.InstanceCount)
	case len(d.InstanceTypes) == 0:
		return errors.New("instance_types must list at least one instance type")
	}
	for i, it := range d.InstanceTypes {
		if it == "" {
			return errors.Errorf("instance_types[%d] is empty", i)
		}
	}
	for i, row := range d.SampleData {
		if len(row) != 4 {
			return errors.Errorf("sample_data[%d] has %d values, want 4", i, len(row))
		}
	}
	return nil
}
