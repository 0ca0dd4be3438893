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
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/cloudml/cloudmltest"
)

func TestGenerateEndpointName(t *testing.T) {
	re := regexp.MustCompile(`^iris-endpoint-[0-9a-f]{8}$`)
	a, b := GenerateEndpointName(""), GenerateEndpointName("")
	if !re.MatchString(a) {
		t.Errorf("GenerateEndpointName() = %q", a)
	}
	if a == b {
		t.Errorf("GenerateEndpointName() repeated %q", a)
	}
	if got := GenerateEndpointName("penguins"); !strings.HasPrefix(got, "penguins-") {
		t.Errorf("GenerateEndpointName(penguins) = %q", got)
	}
}

func TestCreateEndpoint(t *testing.T) {
	fake := cloudmltest.New()
	ep, err := CreateEndpoint(context.Background(), fake, cloudml.EndpointSpec{Name: "iris-endpoint-1", Description: "Iris classification endpoint"})
	if err != nil {
		t.Fatalf("CreateEndpoint() error = %v", err)
	}
	if ep.Name != "iris-endpoint-1" || ep.Description != "Iris classification endpoint" {
		t.Errorf("CreateEndpoint() = %+v", ep)
	}
	if _, err := CreateEndpoint(context.Background(), fake, cloudml.EndpointSpec{Name: "iris-endpoint-1"}); err == nil {
		t.Error("CreateEndpoint(duplicate) error = nil")
	}
}

func deployedFake(t *testing.T, names ...string) *cloudmltest.Fake {
	t.Helper()
	fake := newEndpointFake(t)
	for _, n := range names {
		spec := blueSpec()
		spec.Name = n
		if _, err := fake.CreateDeployment(context.Background(), spec); err != nil {
			t.Fatalf("CreateDeployment() error = %v", err)
		}
	}
	return fake
}

func TestRouteAll(t *testing.T) {
	fake := deployedFake(t, "blue", "green")
	var r Router
	if _, err := r.RouteAll(context.Background(), fake, "ep", "green"); err != nil {
		t.Fatalf("RouteAll(green) error = %v", err)
	}
	ep, err := r.RouteAll(context.Background(), fake, "ep", "blue")
	if err != nil {
		t.Fatalf("RouteAll(blue) error = %v", err)
	}
	if diff := cmp.Diff(map[string]int{"blue": 100}, ep.Traffic); diff != "" {
		t.Errorf("traffic mismatch (-want +got):\n%s", diff)
	}
	stored, _ := fake.GetEndpoint(context.Background(), "ep")
	if diff := cmp.Diff(map[string]int{"blue": 100}, stored.Traffic); diff != "" {
		t.Errorf("stored traffic mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteAllUpdateFailure(t *testing.T) {
	fake := deployedFake(t, "blue")
	boom := errors.New("boom")
	fake.UpdateEndpointErr = boom

	var r Router
	if _, err := r.RouteAll(context.Background(), fake, "ep", "blue"); !errors.Is(err, boom) {
		t.Fatalf("RouteAll() error = %v, want %v", err, boom)
	}
	stored, _ := fake.GetEndpoint(context.Background(), "ep")
	if len(stored.Traffic) != 0 {
		t.Errorf("traffic = %v, want unchanged", stored.Traffic)
	}
}

func TestRouteAllMissingEndpoint(t *testing.T) {
	var r Router
	_, err := r.RouteAll(context.Background(), cloudmltest.New(), "nope", "blue")
	if !cloudml.IsNotFound(err) {
		t.Fatalf("RouteAll() error = %v, want not found", err)
	}
}

func TestRouteAllConcurrent(t *testing.T) {
	fake := deployedFake(t, "blue", "green")
	var r Router
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			dep := "blue"
			if i%2 == 1 {
				dep = "green"
			}
			if _, err := r.RouteAll(context.Background(), fake, "ep", dep); err != nil {
				t.Errorf("RouteAll(%s) error = %v", dep, err)
			}
		}()
	}
	wg.Wait()

	stored, _ := fake.GetEndpoint(context.Background(), "ep")
	if len(stored.Traffic) != 1 {
		t.Fatalf("traffic = %v, want a single deployment", stored.Traffic)
	}
	for _, pct := range stored.Traffic {
		if pct != 100 {
			t.Errorf("traffic = %v, want 100", stored.Traffic)
		}
	}
}

func TestInvoke(t *testing.T) {
	fake := deployedFake(t, "blue")
	resp, err := Invoke(context.Background(), fake, "ep", "blue", PredictionRequest{Data: IrisSamples})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(string(resp), "Iris-setosa") {
		t.Errorf("Invoke() = %s", resp)
	}

	payloads := fake.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads, want 1", len(payloads))
	}
	var sent map[string][][]float64
	if err := json.Unmarshal(payloads[0], &sent); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if diff := cmp.Diff(map[string][][]float64{"data": IrisSamples}, sent); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestInvokeUnknownDeployment(t *testing.T) {
	fake := deployedFake(t, "blue")
	if _, err := Invoke(context.Background(), fake, "ep", "green", PredictionRequest{Data: IrisSamples}); !cloudml.IsNotFound(err) {
		t.Fatalf("Invoke() error = %v, want not found", err)
	}
}
