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

package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/config"
	"ml-toolkit/pkg/logging"
	"ml-toolkit/pkg/orchestrator"
	"ml-toolkit/pkg/orchestrator/pipeline"
	"ml-toolkit/pkg/training"
)

var (
	trainImage      string
	baseImage       string
	codeSource      string
	outputManifest  string
	trainPlatform   string
	computeName     string
	pollInterval    time.Duration
	trainTimeout    time.Duration
	imageRepository string
)

func init() {
	rootCmd.AddCommand(trainCmd)

	addImageFlags(trainCmd.Flags())
	trainCmd.Flags().StringVarP(&outputManifest, "output-manifest", "o", "", "Path to write the training job manifest to instead of submitting it.")
	trainCmd.Flags().StringVar(&computeName, "compute", "", "Name of the compute cluster to train on.")
	trainCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "How often to check the job status (default from config, 30s).")
	trainCmd.Flags().DurationVar(&trainTimeout, "timeout", 0, "Give up waiting for the job after this long. 0 waits forever.")
}

// addImageFlags registers the flags that pick or build the training image.
func addImageFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&trainImage, "image", "i", "", "Pre-built training image to run. Skips the image build.")
	flags.StringVar(&baseImage, "base-image", "", "Base image the training code is layered onto (training.environment).")
	flags.StringVarP(&codeSource, "code", "c", "", "Training code: a local directory or a go-getter address (training.code).")
	flags.StringVar(&imageRepository, "image-repository", "", "Registry repository the built image is pushed to, e.g. europe-west2-docker.pkg.dev/my-project/mltk.")
	flags.StringVarP(&trainPlatform, "platform", "f", "", "Target platform of the image build, e.g. linux/amd64.")
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Runs the training job on a managed compute cluster.",
	Long: `The 'train' command makes sure the compute cluster exists (creating it when
missing, never resizing it), submits the training job and waits until the job
reaches a terminal status. The training image is either pre-built (--image) or
built by layering the code directory onto a base image (--base-image, --code).`,
	Args:         cobra.NoArgs,
	Run:          runTrainCmd,
	SilenceUsage: true,
}

func runTrainCmd(cmd *cobra.Command, args []string) {
	if trainImage != "" && (baseImage != "" || codeSource != "") {
		logging.Fatal("Cannot provide --image together with --base-image or --code.")
	}

	cfg := loadConfig()
	applyTrainFlags(cfg)
	validConfig(cfg)
	if err := checkTrainingImage(cfg.Training); err != nil {
		logging.Fatal("%v", err)
	}

	def := trainingDefinition(cfg)
	def.OutputManifest = outputManifest

	var client cloudml.Client
	if outputManifest == "" {
		client = mustClient(cmd.Context(), cfg)
	}
	res, err := pipeline.New(client, pipeline.WithFs(fs)).Train(cmd.Context(), def)
	if err != nil {
		var failed *training.JobFailedError
		if errors.As(err, &failed) {
			logging.Fatal("Training job %s did not complete: %s", failed.JobID, failed.Status)
		}
		logging.Fatal("mltk train failed: %v", err)
	}
	if res.ManifestPath != "" {
		logging.Success("Training job manifest written to %s", res.ManifestPath)
		return
	}
	logging.Success("Training complete! Job: %s", res.Job.ID)
}

// checkTrainingImage requires a pre-built image or somewhere to push a built
// one. Writing a manifest still builds the image it references.
func checkTrainingImage(t config.TrainingConfig) error {
	if t.Image == "" && t.ImageRepository == "" {
		return errors.New("an image repository is required to build the training image. Use --image-repository or MLTK_IMAGE_REPOSITORY, or pass a pre-built --image")
	}
	return nil
}

func applyTrainFlags(cfg *config.Config) {
	t := &cfg.Training
	if trainImage != "" {
		t.Image = trainImage
	}
	if baseImage != "" {
		t.Environment = baseImage
		t.Image = ""
	}
	if codeSource != "" {
		t.Code = codeSource
		t.Image = ""
	}
	if imageRepository != "" {
		t.ImageRepository = imageRepository
	}
	if trainPlatform != "" {
		t.Platform = trainPlatform
	}
	if pollInterval > 0 {
		t.PollInterval = pollInterval
	}
	if trainTimeout > 0 {
		t.Timeout = trainTimeout
	}
	if computeName != "" {
		cfg.Compute.Name = computeName
	}
}

func trainingDefinition(cfg *config.Config) orchestrator.TrainingDefinition {
	t := cfg.Training
	return orchestrator.TrainingDefinition{
		Compute: cloudml.ComputeSpec{
			Name:                 cfg.Compute.Name,
			Size:                 cfg.Compute.Size,
			MinInstances:         cfg.Compute.MinInstances,
			MaxInstances:         cfg.Compute.MaxInstances,
			IdleScaleDownSeconds: cfg.Compute.IdleTimeBeforeScaleDown,
			Tier:                 cfg.Compute.Tier,
			Location:             cfg.Compute.Location,
		},
		Job: training.JobDefinition{
			DisplayName:     t.DisplayName,
			ExperimentName:  t.ExperimentName,
			InstanceType:    cfg.Compute.Size,
			CommandTemplate: t.Command,
			Inputs: training.Inputs{
				TestTrainRatio:      t.Inputs.TestTrainRatio,
				NEstimators:         t.Inputs.NEstimators,
				MaxDepth:            t.Inputs.MaxDepth,
				RegisteredModelName: t.Inputs.RegisteredModelName,
			},
			OutputURI: t.OutputURI,
		},
		Image:           t.Image,
		CodeSource:      t.Code,
		BaseImage:       t.Environment,
		ImageRepository: t.ImageRepository,
		ImageName:       "mltk-training",
		Platform:        t.Platform,
		Poll:            training.PollOptions{Interval: t.PollInterval, Timeout: t.Timeout},
		RegisterModel:   t.Register.ServingImage != "",
		Register: training.RegisterOptions{
			ArtifactSubdir: t.Register.ArtifactSubdir,
			ServingImage:   t.Register.ServingImage,
		},
	}
}
