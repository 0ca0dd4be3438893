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

// Package vertex implements cloudml.Client on top of the Vertex AI REST API.
//
// Compute clusters map to persistent resources, jobs to custom jobs and
// deployments to deployed models. Vertex keys traffic by deployed model ID;
// the client translates to and from deployment display names so callers only
// ever see names.
package vertex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	aiplatform "google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

const defaultPollInterval = 10 * time.Second

// Options configures a Client.
type Options struct {
	Project  string
	Location string
	// PollInterval paces long-running operation checks.
	PollInterval time.Duration
	// ClientOptions replace the default credentials when non-empty.
	ClientOptions []option.ClientOption
}

// Client talks to a single Vertex AI region of one project.
type Client struct {
	svc          *aiplatform.Service
	project      string
	location     string
	pollInterval time.Duration
}

var _ cloudml.Client = (*Client)(nil)

// NewClient builds a regional Vertex AI client. Without explicit client
// options it authenticates with Application Default Credentials.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Project == "" {
		return nil, errors.New("vertex: project is required")
	}
	if opts.Location == "" {
		return nil, errors.New("vertex: location is required")
	}

	clientOpts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("https://%s-aiplatform.googleapis.com/", opts.Location)),
	}
	if len(opts.ClientOptions) == 0 {
		ts, err := google.DefaultTokenSource(ctx, aiplatform.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to find default Google credentials: %w", err)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := aiplatform.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aiplatform service: %w", err)
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Client{
		svc:          svc,
		project:      opts.Project,
		location:     opts.Location,
		pollInterval: interval,
	}, nil
}

func (c *Client) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.project, c.location)
}

func (c *Client) computeName(name string) string {
	return c.parent() + "/persistentResources/" + name
}

func (c *Client) endpointName(name string) string {
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	return c.parent() + "/endpoints/" + name
}

func (c *Client) GetCompute(ctx context.Context, name string) (*cloudml.Compute, error) {
	pr, err := c.svc.Projects.Locations.PersistentResources.Get(c.computeName(name)).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("get compute", name, err)
	}
	return toCompute(name, pr), nil
}

func (c *Client) CreateCompute(ctx context.Context, spec cloudml.ComputeSpec) (*cloudml.Compute, error) {
	if spec.Location != "" && spec.Location != c.location {
		logging.Debug("Compute location %q differs from client region %q; creating in %q", spec.Location, c.location, c.location)
	}
	labels := map[string]string{}
	if spec.Tier != "" {
		labels["tier"] = spec.Tier
	}
	if spec.IdleScaleDownSeconds > 0 {
		labels["idle-scale-down-seconds"] = strconv.Itoa(spec.IdleScaleDownSeconds)
	}

	pr := &aiplatform.GoogleCloudAiplatformV1PersistentResource{
		DisplayName: spec.Name,
		Labels:      sanitizeLabels(labels),
		ResourcePools: []*aiplatform.GoogleCloudAiplatformV1ResourcePool{{
			Id:           "workers",
			MachineSpec:  &aiplatform.GoogleCloudAiplatformV1MachineSpec{MachineType: spec.Size},
			ReplicaCount: int64(max(spec.MinInstances, 1)),
			AutoscalingSpec: &aiplatform.GoogleCloudAiplatformV1ResourcePoolAutoscalingSpec{
				MinReplicaCount: int64(spec.MinInstances),
				MaxReplicaCount: int64(spec.MaxInstances),
			},
		}},
	}
	op, err := c.svc.Projects.Locations.PersistentResources.Create(c.parent(), pr).
		PersistentResourceId(spec.Name).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("create compute", spec.Name, err)
	}
	if _, err := c.wait(ctx, op); err != nil {
		return nil, wrapErr("create compute", spec.Name, err)
	}
	return c.GetCompute(ctx, spec.Name)
}

func (c *Client) SubmitJob(ctx context.Context, spec cloudml.JobSpec) (*cloudml.Job, error) {
	labels := map[string]string{}
	for k, v := range spec.Labels {
		labels[k] = v
	}
	if spec.ExperimentName != "" {
		labels["experiment"] = spec.ExperimentName
	}

	var env []*aiplatform.GoogleCloudAiplatformV1EnvVar
	for _, k := range sortedKeys(spec.Inputs) {
		env = append(env, &aiplatform.GoogleCloudAiplatformV1EnvVar{
			Name:  "MLTK_INPUT_" + strings.ToUpper(k),
			Value: spec.Inputs[k],
		})
	}

	cj := &aiplatform.GoogleCloudAiplatformV1CustomJob{
		DisplayName: spec.DisplayName,
		Labels:      sanitizeLabels(labels),
		JobSpec: &aiplatform.GoogleCloudAiplatformV1CustomJobSpec{
			PersistentResourceId: spec.Compute,
			WorkerPoolSpecs: []*aiplatform.GoogleCloudAiplatformV1WorkerPoolSpec{{
				MachineSpec:  &aiplatform.GoogleCloudAiplatformV1MachineSpec{MachineType: spec.InstanceType},
				ReplicaCount: 1,
				ContainerSpec: &aiplatform.GoogleCloudAiplatformV1ContainerSpec{
					ImageUri: spec.Image,
					Command:  []string{"/bin/bash", "-c", spec.Command},
					Env:      env,
				},
			}},
		},
	}
	if spec.OutputURI != "" {
		cj.JobSpec.BaseOutputDirectory = &aiplatform.GoogleCloudAiplatformV1GcsDestination{OutputUriPrefix: spec.OutputURI}
	}

	created, err := c.svc.Projects.Locations.CustomJobs.Create(c.parent(), cj).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("submit job", spec.DisplayName, err)
	}
	return toJob(created), nil
}

func (c *Client) GetJob(ctx context.Context, id string) (*cloudml.Job, error) {
	cj, err := c.svc.Projects.Locations.CustomJobs.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("get job", id, err)
	}
	return toJob(cj), nil
}

// ListModels returns one record per version of every model carrying name.
// Models.List only reports each model's default version, so the versions are
// paged separately.
func (c *Client) ListModels(ctx context.Context, name string) ([]cloudml.ModelRecord, error) {
	models, err := c.listModels(ctx, name)
	if err != nil {
		return nil, wrapErr("list models", name, err)
	}
	var out []cloudml.ModelRecord
	for _, m := range models {
		err := c.svc.Projects.Locations.Models.ListVersions(m.Name).Pages(ctx, func(page *aiplatform.GoogleCloudAiplatformV1ListModelVersionsResponse) error {
			for _, v := range page.Models {
				out = append(out, toModelRecord(v))
			}
			return nil
		})
		if err != nil {
			return nil, wrapErr("list model versions", m.Name, err)
		}
	}
	return out, nil
}

func (c *Client) listModels(ctx context.Context, name string) ([]*aiplatform.GoogleCloudAiplatformV1Model, error) {
	call := c.svc.Projects.Locations.Models.List(c.parent())
	if name != "" {
		call = call.Filter(fmt.Sprintf("display_name=%q", name))
	}
	var out []*aiplatform.GoogleCloudAiplatformV1Model
	err := call.Pages(ctx, func(page *aiplatform.GoogleCloudAiplatformV1ListModelsResponse) error {
		out = append(out, page.Models...)
		return nil
	})
	return out, err
}

// RegisterModel uploads a new version under an existing model of the same
// name, or creates the model when none exists.
func (c *Client) RegisterModel(ctx context.Context, spec cloudml.ModelSpec) (*cloudml.ModelRecord, error) {
	req := &aiplatform.GoogleCloudAiplatformV1UploadModelRequest{
		Model: &aiplatform.GoogleCloudAiplatformV1Model{
			DisplayName: spec.Name,
			ArtifactUri: spec.ArtifactURI,
			Labels:      sanitizeLabels(spec.Labels),
			ContainerSpec: &aiplatform.GoogleCloudAiplatformV1ModelContainerSpec{
				ImageUri: spec.ServingImage,
			},
		},
	}
	existing, err := c.listModels(ctx, spec.Name)
	if err != nil {
		return nil, wrapErr("register model", spec.Name, err)
	}
	if len(existing) > 0 {
		req.ParentModel = existing[0].Name
		logging.Debug("Registering %q as a new version of %s", spec.Name, req.ParentModel)
	}

	op, err := c.svc.Projects.Locations.Models.Upload(c.parent(), req).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("register model", spec.Name, err)
	}
	done, err := c.wait(ctx, op)
	if err != nil {
		return nil, wrapErr("register model", spec.Name, err)
	}

	var resp aiplatform.GoogleCloudAiplatformV1UploadModelResponse
	if err := json.Unmarshal(done.Response, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode upload response for model %q: %w", spec.Name, err)
	}
	// A plain Get returns the default version, which a new upload is not.
	ref := resp.Model
	if resp.ModelVersionId != "" {
		ref += "@" + resp.ModelVersionId
	}
	m, err := c.svc.Projects.Locations.Models.Get(ref).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("get model", ref, err)
	}
	rec := toModelRecord(m)
	return &rec, nil
}

func (c *Client) CreateEndpoint(ctx context.Context, spec cloudml.EndpointSpec) (*cloudml.Endpoint, error) {
	if spec.AuthMode != "" {
		logging.Debug("Vertex AI endpoints always authenticate with IAM; ignoring auth mode %q", spec.AuthMode)
	}
	ep := &aiplatform.GoogleCloudAiplatformV1Endpoint{
		DisplayName: spec.Name,
		Description: spec.Description,
		Labels:      sanitizeLabels(spec.Tags),
	}
	op, err := c.svc.Projects.Locations.Endpoints.Create(c.parent(), ep).EndpointId(spec.Name).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("create endpoint", spec.Name, err)
	}
	if _, err := c.wait(ctx, op); err != nil {
		return nil, wrapErr("create endpoint", spec.Name, err)
	}
	return c.GetEndpoint(ctx, spec.Name)
}

func (c *Client) getEndpoint(ctx context.Context, name string) (*aiplatform.GoogleCloudAiplatformV1Endpoint, error) {
	ep, err := c.svc.Projects.Locations.Endpoints.Get(c.endpointName(name)).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("get endpoint", name, err)
	}
	return ep, nil
}

func (c *Client) GetEndpoint(ctx context.Context, name string) (*cloudml.Endpoint, error) {
	ep, err := c.getEndpoint(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.toEndpoint(name, ep), nil
}

func (c *Client) UpdateEndpoint(ctx context.Context, endpoint *cloudml.Endpoint) (*cloudml.Endpoint, error) {
	current, err := c.getEndpoint(ctx, endpoint.Name)
	if err != nil {
		return nil, err
	}
	ids := deployedModelIDs(current)
	split := map[string]int64{}
	for name, pct := range endpoint.Traffic {
		id, ok := ids[name]
		if !ok {
			return nil, &cloudml.Error{
				Op:       "update endpoint",
				Resource: endpoint.Name,
				Err:      fmt.Errorf("traffic references unknown deployment %q", name),
			}
		}
		split[id] = int64(pct)
	}

	patch := &aiplatform.GoogleCloudAiplatformV1Endpoint{
		Description:  endpoint.Description,
		TrafficSplit: split,
	}
	updated, err := c.svc.Projects.Locations.Endpoints.Patch(current.Name, patch).
		UpdateMask("traffic_split,description").Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("update endpoint", endpoint.Name, err)
	}
	return c.toEndpoint(endpoint.Name, updated), nil
}

func (c *Client) CreateDeployment(ctx context.Context, spec cloudml.DeploymentSpec) (*cloudml.Deployment, error) {
	current, err := c.getEndpoint(ctx, spec.Endpoint)
	if err != nil {
		return nil, err
	}

	count := int64(max(spec.InstanceCount, 1))
	model := spec.Model.ID
	if model == "" {
		model = spec.Model.Name
	}
	// Pin the exact version rather than the model's default one.
	if spec.Model.Version != "" && !strings.Contains(model, "@") {
		model += "@" + spec.Model.Version
	}
	req := &aiplatform.GoogleCloudAiplatformV1DeployModelRequest{
		DeployedModel: &aiplatform.GoogleCloudAiplatformV1DeployedModel{
			DisplayName: spec.Name,
			Model:       model,
			DedicatedResources: &aiplatform.GoogleCloudAiplatformV1DedicatedResources{
				MachineSpec:     &aiplatform.GoogleCloudAiplatformV1MachineSpec{MachineType: spec.InstanceType},
				MinReplicaCount: count,
				MaxReplicaCount: count,
			},
		},
	}
	// An endpoint without traffic must route everything to its first model.
	if len(current.TrafficSplit) == 0 {
		req.TrafficSplit = map[string]int64{"0": 100}
	}

	op, err := c.svc.Projects.Locations.Endpoints.DeployModel(current.Name, req).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("create deployment", spec.Name+"@"+spec.InstanceType, err)
	}
	done, err := c.wait(ctx, op)
	if err != nil {
		return nil, wrapErr("create deployment", spec.Name+"@"+spec.InstanceType, err)
	}

	var resp aiplatform.GoogleCloudAiplatformV1DeployModelResponse
	if err := json.Unmarshal(done.Response, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode deploy response for %q: %w", spec.Name, err)
	}
	newID := ""
	if resp.DeployedModel != nil {
		newID = resp.DeployedModel.Id
	}

	if err := c.undeployReplaced(ctx, current, spec.Name, newID); err != nil {
		return nil, err
	}

	return &cloudml.Deployment{
		Name:          spec.Name,
		ID:            newID,
		Endpoint:      spec.Endpoint,
		Model:         spec.Model.Ref(),
		InstanceType:  spec.InstanceType,
		InstanceCount: int(count),
		State:         "Succeeded",
	}, nil
}

// undeployReplaced removes older deployed models that carried the same
// display name, moving their traffic share onto the replacement.
func (c *Client) undeployReplaced(ctx context.Context, before *aiplatform.GoogleCloudAiplatformV1Endpoint, name, newID string) error {
	if newID == "" {
		return nil
	}
	split := map[string]int64{}
	for id, pct := range before.TrafficSplit {
		split[id] = pct
	}
	for _, dm := range before.DeployedModels {
		if dm.DisplayName != name || dm.Id == newID {
			continue
		}
		req := &aiplatform.GoogleCloudAiplatformV1UndeployModelRequest{DeployedModelId: dm.Id}
		if pct, ok := split[dm.Id]; ok {
			delete(split, dm.Id)
			split[newID] += pct
			req.TrafficSplit = split
		}
		logging.Info("Removing replaced deployment %q (deployed model %s)", name, dm.Id)
		op, err := c.svc.Projects.Locations.Endpoints.UndeployModel(before.Name, req).Context(ctx).Do()
		if err != nil {
			return wrapErr("undeploy model", dm.Id, err)
		}
		if _, err := c.wait(ctx, op); err != nil {
			return wrapErr("undeploy model", dm.Id, err)
		}
	}
	return nil
}

// Invoke sends payload unchanged to the serving container. Vertex routes the
// request by the endpoint traffic split, so deployment only documents intent.
func (c *Client) Invoke(ctx context.Context, endpoint, deployment string, payload []byte) ([]byte, error) {
	logging.Debug("Invoking endpoint %q (expected deployment %q)", endpoint, deployment)
	req := &aiplatform.GoogleCloudAiplatformV1RawPredictRequest{
		HttpBody: &aiplatform.GoogleApiHttpBody{
			ContentType: "application/json",
			Data:        base64.StdEncoding.EncodeToString(payload),
		},
	}
	body, err := c.svc.Projects.Locations.Endpoints.RawPredict(c.endpointName(endpoint), req).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr("invoke endpoint", endpoint, err)
	}
	data, err := base64.StdEncoding.DecodeString(body.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode prediction response: %w", err)
	}
	return data, nil
}

// wait polls a long-running operation until it is done.
func (c *Client) wait(ctx context.Context, op *aiplatform.GoogleLongrunningOperation) (*aiplatform.GoogleLongrunningOperation, error) {
	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	for !op.Done {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		next, err := c.svc.Projects.Locations.Operations.Get(op.Name).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		op = next
	}
	if op.Error != nil {
		return op, &statusError{code: int(op.Error.Code), message: op.Error.Message}
	}
	return op, nil
}

func toCompute(name string, pr *aiplatform.GoogleCloudAiplatformV1PersistentResource) *cloudml.Compute {
	c := &cloudml.Compute{Name: name, ID: pr.Name, State: pr.State}
	if len(pr.ResourcePools) > 0 {
		pool := pr.ResourcePools[0]
		if pool.MachineSpec != nil {
			c.Size = pool.MachineSpec.MachineType
		}
		if pool.AutoscalingSpec != nil {
			c.MinInstances = int(pool.AutoscalingSpec.MinReplicaCount)
			c.MaxInstances = int(pool.AutoscalingSpec.MaxReplicaCount)
		} else {
			c.MinInstances = int(pool.ReplicaCount)
			c.MaxInstances = int(pool.ReplicaCount)
		}
	}
	return c
}

func toJob(cj *aiplatform.GoogleCloudAiplatformV1CustomJob) *cloudml.Job {
	j := &cloudml.Job{
		ID:          cj.Name,
		DisplayName: cj.DisplayName,
		Status:      jobStatus(cj.State),
	}
	if cj.Error != nil {
		j.Message = cj.Error.Message
	}
	if cj.JobSpec != nil && cj.JobSpec.BaseOutputDirectory != nil {
		j.OutputURI = cj.JobSpec.BaseOutputDirectory.OutputUriPrefix
	}
	return j
}

func jobStatus(state string) cloudml.JobStatus {
	switch state {
	case "JOB_STATE_QUEUED":
		return cloudml.JobQueued
	case "JOB_STATE_PENDING":
		return cloudml.JobPreparing
	case "JOB_STATE_RUNNING", "JOB_STATE_UPDATING":
		return cloudml.JobRunning
	case "JOB_STATE_SUCCEEDED":
		return cloudml.JobCompleted
	case "JOB_STATE_FAILED", "JOB_STATE_PARTIALLY_SUCCEEDED":
		return cloudml.JobFailed
	case "JOB_STATE_CANCELLING":
		return cloudml.JobCancelRequested
	case "JOB_STATE_CANCELLED":
		return cloudml.JobCanceled
	case "JOB_STATE_PAUSED":
		return cloudml.JobPaused
	case "JOB_STATE_EXPIRED":
		return cloudml.JobNotResponding
	default:
		return cloudml.JobUnknown
	}
}

func toModelRecord(m *aiplatform.GoogleCloudAiplatformV1Model) cloudml.ModelRecord {
	rec := cloudml.ModelRecord{Name: m.DisplayName, Version: m.VersionId, ID: m.Name}
	created := m.VersionCreateTime
	if created == "" {
		created = m.CreateTime
	}
	if created != "" {
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = t
		} else {
			logging.Debug("Ignoring unparsable create time %q on model %s: %v", created, m.Name, err)
		}
	}
	return rec
}

func deployedModelIDs(ep *aiplatform.GoogleCloudAiplatformV1Endpoint) map[string]string {
	ids := map[string]string{}
	for _, dm := range ep.DeployedModels {
		ids[dm.DisplayName] = dm.Id
	}
	return ids
}

func (c *Client) toEndpoint(name string, ep *aiplatform.GoogleCloudAiplatformV1Endpoint) *cloudml.Endpoint {
	names := map[string]string{}
	out := &cloudml.Endpoint{
		Name:        name,
		ID:          ep.Name,
		Description: ep.Description,
		Traffic:     map[string]int{},
		ScoringURI:  fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/%s:rawPredict", c.location, ep.Name),
	}
	for _, dm := range ep.DeployedModels {
		names[dm.Id] = dm.DisplayName
		out.Deployments = append(out.Deployments, dm.DisplayName)
	}
	for id, pct := range ep.TrafficSplit {
		if n, ok := names[id]; ok {
			out.Traffic[n] += int(pct)
		}
	}
	return out
}

// statusError is a failed long-running operation.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("operation failed with code %d: %s", e.code, e.message)
}

// gRPC canonical codes reported in operation errors.
const (
	codeNotFound          = 5
	codeResourceExhausted = 8
)

func wrapErr(op, resource string, err error) error {
	var already *cloudml.Error
	if errors.As(err, &already) {
		return err
	}
	e := &cloudml.Error{Op: op, Resource: resource, Err: err}

	var gerr *googleapi.Error
	var serr *statusError
	switch {
	case errors.As(err, &gerr):
		e.Code = gerr.Code
		switch gerr.Code {
		case 404:
			e.Kind = cloudml.KindNotFound
		case 429:
			e.Kind = cloudml.KindQuotaExceeded
		default:
			e.Kind = classifyText(gerr.Message)
		}
	case errors.As(err, &serr):
		e.Code = serr.code
		switch serr.code {
		case codeNotFound:
			e.Kind = cloudml.KindNotFound
		case codeResourceExhausted:
			e.Kind = cloudml.KindQuotaExceeded
		default:
			e.Kind = classifyText(serr.message)
		}
	default:
		e.Kind = classifyText(err.Error())
	}
	return e
}

// classifyText falls back to message matching but never infers not-found
// without a status code saying so.
func classifyText(msg string) cloudml.ErrorKind {
	k := cloudml.ClassifyMessage(msg)
	if k == cloudml.KindNotFound {
		return cloudml.KindOther
	}
	return k
}

func sanitizeLabels(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := sanitizeLabel(k)
		if key == "" || key[0] < 'a' || key[0] > 'z' {
			key = "l" + key
		}
		out[key] = sanitizeLabel(v)
	}
	return out
}

// sanitizeLabel lowercases s and replaces characters Vertex rejects in labels.
func sanitizeLabel(s string) string {
	s = strings.ToLower(s)
	b := []byte(s)
	for i, ch := range b {
		if !(ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9' || ch == '-' || ch == '_') {
			b[i] = '_'
		}
	}
	if len(b) > 63 {
		b = b[:63]
	}
	return string(b)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
