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

// Package training runs the training flow: make sure the compute cluster
// exists, submit the training job and wait for it to finish.
package training

import (
	"context"
	"fmt"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

// ComputeClient is the subset of cloudml.Client used by EnsureCompute.
type ComputeClient interface {
	GetCompute(ctx context.Context, name string) (*cloudml.Compute, error)
	CreateCompute(ctx context.Context, spec cloudml.ComputeSpec) (*cloudml.Compute, error)
}

// EnsureCompute returns the named cluster, creating it from spec when the
// lookup reports not-found. An existing cluster is returned as is even if its
// shape differs from spec.
func EnsureCompute(ctx context.Context, client ComputeClient, spec cloudml.ComputeSpec) (*cloudml.Compute, bool, error) {
	existing, err := client.GetCompute(ctx, spec.Name)
	if err == nil {
		logging.Info("Found existing compute cluster: %s", existing.Name)
		if existing.Size != "" && existing.Size != spec.Size {
			logging.Warn("Compute cluster %s has size %s, configuration asks for %s; keeping the existing cluster",
				existing.Name, existing.Size, spec.Size)
		}
		return existing, false, nil
	}
	if !cloudml.IsNotFound(err) {
		return nil, false, fmt.Errorf("failed to look up compute cluster %q: %w", spec.Name, err)
	}

	logging.Info("Creating new compute cluster %s (%s, %d-%d instances)...", spec.Name, spec.Size, spec.MinInstances, spec.MaxInstances)
	created, err := client.CreateCompute(ctx, spec)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create compute cluster %q: %w", spec.Name, err)
	}
	logging.Info("Created compute cluster: %s", created.Name)
	return created, true, nil
}
