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

package deploy

import (
	"context"
	"errors"
	"fmt"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

// DefaultInstanceTypes is the fallback order used when none is configured.
var DefaultInstanceTypes = []string{"n1-standard-4", "n2-highmem-4", "n2-highmem-2"}

// ErrCandidatesExhausted matches an *ExhaustedError with errors.Is.
var ErrCandidatesExhausted = errors.New("deployment candidates exhausted")

// Outcome classifies a single deployment attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeQuotaExceeded
	OutcomeUnsupported
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeQuotaExceeded:
		return "quota-exhausted"
	case OutcomeUnsupported:
		return "unsupported-sku"
	case OutcomeFatal:
		return "fatal-error"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Attempt records one CreateDeployment call.
type Attempt struct {
	InstanceType string
	Outcome      Outcome
	Err          error
}

// FallbackResult describes a successful DeployWithFallback.
type FallbackResult struct {
	InstanceType string
	Deployment   *cloudml.Deployment
	// Attempts holds every attempt in order, the successful one last.
	Attempts []Attempt
}

// ExhaustedError is returned when every candidate failed recoverably.
type ExhaustedError struct {
	Deployment string
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to deploy %q: all %d candidate instance types were rejected for quota or support reasons",
		e.Deployment, len(e.Attempts))
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrCandidatesExhausted
}

// DeploymentCreator is the subset of cloudml.Client used by DeployWithFallback.
type DeploymentCreator interface {
	CreateDeployment(ctx context.Context, spec cloudml.DeploymentSpec) (*cloudml.Deployment, error)
}

// DeployWithFallback tries spec on each instance type in candidates, in
// order, stopping at the first success. Quota and unsupported-configuration
// failures move on to the next candidate; any other error is returned as is
// and no further candidates are tried. Failed attempts are not cleaned up.
func DeployWithFallback(ctx context.Context, client DeploymentCreator, spec cloudml.DeploymentSpec, candidates []string) (*FallbackResult, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("failed to deploy %q: no candidate instance types given", spec.Name)
	}

	attempts := make([]Attempt, 0, len(candidates))
	for _, instanceType := range candidates {
		spec.InstanceType = instanceType
		logging.Info("Trying %s...", instanceType)

		dep, err := client.CreateDeployment(ctx, spec)
		if err == nil {
			attempts = append(attempts, Attempt{InstanceType: instanceType, Outcome: OutcomeSuccess})
			logging.Info("Model deployed successfully on %s", instanceType)
			return &FallbackResult{InstanceType: instanceType, Deployment: dep, Attempts: attempts}, nil
		}

		switch cloudml.KindOf(err) {
		case cloudml.KindQuotaExceeded:
			attempts = append(attempts, Attempt{InstanceType: instanceType, Outcome: OutcomeQuotaExceeded, Err: err})
		case cloudml.KindUnsupportedConfiguration:
			attempts = append(attempts, Attempt{InstanceType: instanceType, Outcome: OutcomeUnsupported, Err: err})
		default:
			return nil, err
		}
		logging.Warn("%s failed, falling back: %v", instanceType, err)
	}
	return nil, &ExhaustedError{Deployment: spec.Name, Attempts: attempts}
}
