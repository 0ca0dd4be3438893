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

// Package deploy publishes the latest registered model behind a fresh online
// endpoint: it creates the endpoint, picks the newest model version, deploys
// it onto the first instance type with capacity, routes all traffic to it and
// sends a smoke-test request.
package deploy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

const DefaultEndpointPrefix = "iris-endpoint"

// EndpointCreator is the subset of cloudml.Client used by CreateEndpoint.
type EndpointCreator interface {
	CreateEndpoint(ctx context.Context, spec cloudml.EndpointSpec) (*cloudml.Endpoint, error)
}

// GenerateEndpointName returns prefix followed by the first eight characters
// of a random UUID, e.g. "iris-endpoint-1f0c2a9b".
func GenerateEndpointName(prefix string) string {
	if prefix == "" {
		prefix = DefaultEndpointPrefix
	}
	return prefix + "-" + uuid.NewString()[:8]
}

// CreateEndpoint creates the endpoint described by spec and waits until it is
// ready to take deployments.
func CreateEndpoint(ctx context.Context, client EndpointCreator, spec cloudml.EndpointSpec) (*cloudml.Endpoint, error) {
	if spec.Name == "" {
		spec.Name = GenerateEndpointName("")
	}
	logging.Info("Creating endpoint %s in %s...", spec.Name, spec.Location)
	ep, err := client.CreateEndpoint(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint %q: %w", spec.Name, err)
	}
	logging.Info("Endpoint %s created", ep.Name)
	return ep, nil
}
