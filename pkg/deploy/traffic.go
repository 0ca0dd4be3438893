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
	"fmt"
	"sync"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

// EndpointUpdater is the subset of cloudml.Client used by Router.
type EndpointUpdater interface {
	GetEndpoint(ctx context.Context, name string) (*cloudml.Endpoint, error)
	UpdateEndpoint(ctx context.Context, endpoint *cloudml.Endpoint) (*cloudml.Endpoint, error)
}

// Router rewrites endpoint traffic splits. Updates to the same endpoint are
// serialized within the process. The zero value is ready to use.
type Router struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (r *Router) lock(endpoint string) func() {
	r.mu.Lock()
	if r.locks == nil {
		r.locks = map[string]*sync.Mutex{}
	}
	l, ok := r.locks[endpoint]
	if !ok {
		l = &sync.Mutex{}
		r.locks[endpoint] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// RouteAll sends all of endpoint's traffic to deployment, replacing whatever
// split was there, and returns the endpoint as updated.
func (r *Router) RouteAll(ctx context.Context, client EndpointUpdater, endpoint, deployment string) (*cloudml.Endpoint, error) {
	unlock := r.lock(endpoint)
	defer unlock()

	ep, err := client.GetEndpoint(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get endpoint %q: %w", endpoint, err)
	}
	ep.Traffic = map[string]int{deployment: 100}

	logging.Info("Routing 100%% of %s traffic to %s...", endpoint, deployment)
	updated, err := client.UpdateEndpoint(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("failed to update traffic of endpoint %q: %w", endpoint, err)
	}
	return updated, nil
}
