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

// Package cloudmltest provides an in-memory cloudml.Client for tests.
package cloudmltest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ml-toolkit/pkg/cloudml"
)

// Call records one invocation of a Client method.
type Call struct {
	Method string
	// Arg is the primary identifier of the call: a name, id or instance type.
	Arg string
}

// Fake is a cloudml.Client backed by maps. Exported fields may be set before
// use to script failures and job progress.
type Fake struct {
	// JobStatuses is the sequence reported by successive GetJob calls for each
	// job; the last entry repeats. Empty means every job is Completed.
	JobStatuses []cloudml.JobStatus
	// DeployErrors maps an instance type to the error CreateDeployment returns.
	DeployErrors map[string]error
	// GetComputeErr, when set, replaces the not-found lookup miss.
	GetComputeErr     error
	UpdateEndpointErr error
	InvokeResponse    []byte
	// Now stamps registered models.
	Now func() time.Time

	mu          sync.Mutex
	computes    map[string]cloudml.Compute
	models      []cloudml.ModelRecord
	endpoints   map[string]*cloudml.Endpoint
	deployments map[string]cloudml.Deployment
	jobs        map[string]*job
	payloads    [][]byte
	calls       []Call
	seq         int
}

type job struct {
	spec  cloudml.JobSpec
	polls int
}

var _ cloudml.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		DeployErrors: map[string]error{},
		Now:          time.Now,
		computes:     map[string]cloudml.Compute{},
		endpoints:    map[string]*cloudml.Endpoint{},
		deployments:  map[string]cloudml.Deployment{},
		jobs:         map[string]*job{},
	}
}

// AddCompute seeds an existing compute cluster.
func (f *Fake) AddCompute(c cloudml.Compute) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computes[c.Name] = c
}

// AddModels seeds registered models in listing order.
func (f *Fake) AddModels(models ...cloudml.ModelRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, models...)
}

// Calls returns the recorded calls, filtered by method when one is given.
func (f *Fake) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Payloads returns every body passed to Invoke.
func (f *Fake) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// Deployment returns the deployment stored under endpoint and name.
func (f *Fake) Deployment(endpoint, name string) (cloudml.Deployment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deployments[endpoint+"/"+name]
	return d, ok
}

func (f *Fake) record(method, arg string) {
	f.calls = append(f.calls, Call{Method: method, Arg: arg})
}

func (f *Fake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func notFound(op, resource string) error {
	return &cloudml.Error{Kind: cloudml.KindNotFound, Op: op, Resource: resource, Code: 404}
}

func (f *Fake) GetCompute(ctx context.Context, name string) (*cloudml.Compute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCompute", name)
	if f.GetComputeErr != nil {
		return nil, f.GetComputeErr
	}
	c, ok := f.computes[name]
	if !ok {
		return nil, notFound("get compute", name)
	}
	return &c, nil
}

func (f *Fake) CreateCompute(ctx context.Context, spec cloudml.ComputeSpec) (*cloudml.Compute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCompute", spec.Name)
	c := cloudml.Compute{
		Name:         spec.Name,
		ID:           f.nextID("compute"),
		Size:         spec.Size,
		MinInstances: spec.MinInstances,
		MaxInstances: spec.MaxInstances,
		State:        "Succeeded",
	}
	f.computes[spec.Name] = c
	return &c, nil
}

func (f *Fake) SubmitJob(ctx context.Context, spec cloudml.JobSpec) (*cloudml.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("job")
	f.record("SubmitJob", id)
	f.jobs[id] = &job{spec: spec}
	return &cloudml.Job{ID: id, DisplayName: spec.DisplayName, Status: cloudml.JobQueued, OutputURI: spec.OutputURI}, nil
}

// JobSpec returns the spec a job was submitted with.
func (f *Fake) JobSpec(id string) (cloudml.JobSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return cloudml.JobSpec{}, false
	}
	return j.spec, true
}

func (f *Fake) GetJob(ctx context.Context, id string) (*cloudml.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetJob", id)
	j, ok := f.jobs[id]
	if !ok {
		return nil, notFound("get job", id)
	}
	status := cloudml.JobCompleted
	if n := len(f.JobStatuses); n > 0 {
		status = f.JobStatuses[min(j.polls, n-1)]
	}
	j.polls++
	return &cloudml.Job{ID: id, DisplayName: j.spec.DisplayName, Status: status, OutputURI: j.spec.OutputURI}, nil
}

func (f *Fake) ListModels(ctx context.Context, name string) ([]cloudml.ModelRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListModels", name)
	var out []cloudml.ModelRecord
	for _, m := range f.models {
		if name == "" || m.Name == name {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *Fake) RegisterModel(ctx context.Context, spec cloudml.ModelSpec) (*cloudml.ModelRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RegisterModel", spec.Name)
	version := 1
	for _, m := range f.models {
		if m.Name == spec.Name {
			version++
		}
	}
	m := cloudml.ModelRecord{
		Name:      spec.Name,
		Version:   fmt.Sprint(version),
		ID:        f.nextID("model"),
		CreatedAt: f.Now(),
	}
	f.models = append(f.models, m)
	return &m, nil
}

func (f *Fake) CreateEndpoint(ctx context.Context, spec cloudml.EndpointSpec) (*cloudml.Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateEndpoint", spec.Name)
	if _, ok := f.endpoints[spec.Name]; ok {
		return nil, &cloudml.Error{Op: "create endpoint", Resource: spec.Name, Code: 409, Err: fmt.Errorf("already exists")}
	}
	ep := &cloudml.Endpoint{
		Name:        spec.Name,
		ID:          f.nextID("endpoint"),
		Description: spec.Description,
		Traffic:     map[string]int{},
		ScoringURI:  "https://" + spec.Name + ".example/score",
	}
	f.endpoints[spec.Name] = ep
	return copyEndpoint(ep), nil
}

func (f *Fake) GetEndpoint(ctx context.Context, name string) (*cloudml.Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetEndpoint", name)
	ep, ok := f.endpoints[name]
	if !ok {
		return nil, notFound("get endpoint", name)
	}
	return copyEndpoint(ep), nil
}

func (f *Fake) UpdateEndpoint(ctx context.Context, endpoint *cloudml.Endpoint) (*cloudml.Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateEndpoint", endpoint.Name)
	if f.UpdateEndpointErr != nil {
		return nil, f.UpdateEndpointErr
	}
	ep, ok := f.endpoints[endpoint.Name]
	if !ok {
		return nil, notFound("update endpoint", endpoint.Name)
	}
	total := 0
	for name, pct := range endpoint.Traffic {
		if _, ok := f.deployments[endpoint.Name+"/"+name]; !ok {
			return nil, &cloudml.Error{Op: "update endpoint", Resource: endpoint.Name, Code: 400, Err: fmt.Errorf("unknown deployment %q in traffic", name)}
		}
		total += pct
	}
	if len(endpoint.Traffic) > 0 && total != 100 {
		return nil, &cloudml.Error{Op: "update endpoint", Resource: endpoint.Name, Code: 400, Err: fmt.Errorf("traffic sums to %d, want 100", total)}
	}
	ep.Description = endpoint.Description
	ep.Traffic = map[string]int{}
	for k, v := range endpoint.Traffic {
		ep.Traffic[k] = v
	}
	return copyEndpoint(ep), nil
}

func (f *Fake) CreateDeployment(ctx context.Context, spec cloudml.DeploymentSpec) (*cloudml.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateDeployment", spec.InstanceType)
	if err := f.DeployErrors[spec.InstanceType]; err != nil {
		return nil, err
	}
	ep, ok := f.endpoints[spec.Endpoint]
	if !ok {
		return nil, notFound("create deployment", spec.Endpoint)
	}
	d := cloudml.Deployment{
		Name:          spec.Name,
		ID:            f.nextID("deployment"),
		Endpoint:      spec.Endpoint,
		Model:         spec.Model.Ref(),
		InstanceType:  spec.InstanceType,
		InstanceCount: spec.InstanceCount,
		State:         "Succeeded",
	}
	key := spec.Endpoint + "/" + spec.Name
	if _, exists := f.deployments[key]; !exists {
		ep.Deployments = append(ep.Deployments, spec.Name)
		sort.Strings(ep.Deployments)
	}
	f.deployments[key] = d
	return &d, nil
}

func (f *Fake) Invoke(ctx context.Context, endpoint, deployment string, payload []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Invoke", endpoint)
	if _, ok := f.deployments[endpoint+"/"+deployment]; !ok {
		return nil, notFound("invoke", endpoint+"/"+deployment)
	}
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	if f.InvokeResponse != nil {
		return f.InvokeResponse, nil
	}
	return []byte(`["Iris-setosa","Iris-virginica","Iris-versicolor"]`), nil
}

func copyEndpoint(ep *cloudml.Endpoint) *cloudml.Endpoint {
	out := *ep
	out.Deployments = append([]string(nil), ep.Deployments...)
	out.Traffic = make(map[string]int, len(ep.Traffic))
	for k, v := range ep.Traffic {
		out.Traffic[k] = v
	}
	return &out
}
