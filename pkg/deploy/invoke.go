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
	"fmt"

	"ml-toolkit/pkg/logging"
)

// PredictionRequest is the scoring payload: one row of
// [sepal_length, sepal_width, petal_length, petal_width] per sample.
type PredictionRequest struct {
	Data [][]float64 `json:"data"`
}

// IrisSamples holds one setosa, one virginica and one versicolor flower.
var IrisSamples = [][]float64{
	{5.1, 3.5, 1.4, 0.2},
	{6.2, 3.4, 5.4, 2.3},
	{5.8, 2.7, 4.1, 1.0},
}

// Invoker is the subset of cloudml.Client used by Invoke.
type Invoker interface {
	Invoke(ctx context.Context, endpoint, deployment string, payload []byte) ([]byte, error)
}

// Invoke scores req against deployment and returns the raw response body.
func Invoke(ctx context.Context, client Invoker, endpoint, deployment string, req PredictionRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}
	logging.Debug("Invoking %s/%s with %s", endpoint, deployment, payload)
	resp, err := client.Invoke(ctx, endpoint, deployment, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke endpoint %q: %w", endpoint, err)
	}
	return resp, nil
}
