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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/cloudml/cloudmltest"
)

func quota(msg string) error {
	return &cloudml.Error{Kind: cloudml.KindQuotaExceeded, Op: "deploy model", Code: 429, Err: errors.New(msg)}
}

func unsupported(msg string) error {
	return &cloudml.Error{Kind: cloudml.KindUnsupportedConfiguration, Op: "deploy model", Code: 400, Err: errors.New(msg)}
}

func newEndpointFake(t *testing.T) *cloudmltest.Fake {
	t.Helper()
	fake := cloudmltest.New()
	if _, err := fake.CreateEndpoint(context.Background(), cloudml.EndpointSpec{Name: "ep"}); err != nil {
		t.Fatalf("CreateEndpoint() error = %v", err)
	}
	return fake
}

func blueSpec() cloudml.DeploymentSpec {
	return cloudml.DeploymentSpec{
		Name:          "blue",
		Endpoint:      "ep",
		Model:         cloudml.ModelRecord{Name: "iris_model", Version: "3"},
		InstanceCount: 1,
	}
}

func attemptedTypes(fake *cloudmltest.Fake) []string {
	var out []string
	for _, c := range fake.Calls("CreateDeployment") {
		out = append(out, c.Arg)
	}
	return out
}

func TestDeployWithFallback(t *testing.T) {
	candidates := []string{"a", "b", "c"}
	tests := []struct {
		name          string
		errs          map[string]error
		wantType      string
		wantAttempted []string
		wantOutcomes  []Outcome
	}{
		{
			name:          "first candidate succeeds",
			wantType:      "a",
			wantAttempted: []string{"a"},
			wantOutcomes:  []Outcome{OutcomeSuccess},
		},
		{
			name:          "quota then success",
			errs:          map[string]error{"a": quota("not enough quota")},
			wantType:      "b",
			wantAttempted: []string{"a", "b"},
			wantOutcomes:  []Outcome{OutcomeQuotaExceeded, OutcomeSuccess},
		},
		{
			name:          "quota and unsupported then success",
			errs:          map[string]error{"a": quota("quota"), "b": unsupported("sku not supported")},
			wantType:      "c",
			wantAttempted: []string{"a", "b", "c"},
			wantOutcomes:  []Outcome{OutcomeQuotaExceeded, OutcomeUnsupported, OutcomeSuccess},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := newEndpointFake(t)
			for k, v := range tc.errs {
				fake.DeployErrors[k] = v
			}

			res, err := DeployWithFallback(context.Background(), fake, blueSpec(), candidates)
			if err != nil {
				t.Fatalf("DeployWithFallback() error = %v", err)
			}
			if res.InstanceType != tc.wantType {
				t.Errorf("InstanceType = %q, want %q", res.InstanceType, tc.wantType)
			}
			if diff := cmp.Diff(tc.wantAttempted, attemptedTypes(fake)); diff != "" {
				t.Errorf("attempt order mismatch (-want +got):\n%s", diff)
			}
			var outcomes []Outcome
			for _, a := range res.Attempts {
				outcomes = append(outcomes, a.Outcome)
			}
			if diff := cmp.Diff(tc.wantOutcomes, outcomes); diff != "" {
				t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
			}
			d, ok := fake.Deployment("ep", "blue")
			if !ok || d.InstanceType != tc.wantType {
				t.Errorf("stored deployment = %+v, %v", d, ok)
			}
		})
	}
}

func TestDeployWithFallbackExhausted(t *testing.T) {
	fake := newEndpointFake(t)
	fake.DeployErrors["a"] = quota("Not enough quota available for a")
	fake.DeployErrors["b"] = unsupported("b is not supported in region")

	_, err := DeployWithFallback(context.Background(), fake, blueSpec(), []string{"a", "b"})
	if !errors.Is(err, ErrCandidatesExhausted) {
		t.Fatalf("DeployWithFallback() error = %v, want ErrCandidatesExhausted", err)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || len(exhausted.Attempts) != 2 {
		t.Fatalf("error = %#v, want *ExhaustedError with 2 attempts", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "blue") || !strings.Contains(msg, "2 candidate") {
		t.Errorf("error %q should name the deployment and the candidate count", msg)
	}
	if strings.Contains(msg, "quota available") || strings.Contains(msg, "region") {
		t.Errorf("error %q leaks a candidate's message", msg)
	}
	if n := len(fake.Calls("CreateDeployment")); n != 2 {
		t.Errorf("CreateDeployment called %d times, want 2", n)
	}
}

func TestDeployWithFallbackFatal(t *testing.T) {
	fake := newEndpointFake(t)
	denied := &cloudml.Error{Op: "deploy model", Code: 403, Err: errors.New("permission denied")}
	fake.DeployErrors["a"] = quota("quota")
	fake.DeployErrors["b"] = denied

	res, err := DeployWithFallback(context.Background(), fake, blueSpec(), []string{"a", "b", "c"})
	if err != denied {
		t.Fatalf("DeployWithFallback() error = %v, want the unmodified fatal error", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if diff := cmp.Diff([]string{"a", "b"}, attemptedTypes(fake)); diff != "" {
		t.Errorf("attempt order mismatch (-want +got):\n%s", diff)
	}
}

func TestDeployWithFallbackNoCandidates(t *testing.T) {
	fake := newEndpointFake(t)
	if _, err := DeployWithFallback(context.Background(), fake, blueSpec(), nil); err == nil {
		t.Fatal("DeployWithFallback(nil) error = nil")
	}
	if n := len(fake.Calls("CreateDeployment")); n != 0 {
		t.Errorf("CreateDeployment called %d times, want 0", n)
	}
}

func TestOutcomeString(t *testing.T) {
	if got := OutcomeUnsupported.String(); got != "unsupported-sku" {
		t.Errorf("String() = %q", got)
	}
	if got := Outcome(9).String(); got != "Outcome(9)" {
		t.Errorf("String() = %q", got)
	}
}
