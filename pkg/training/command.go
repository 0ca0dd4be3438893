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

package training

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"
)

// Inputs are the parameters of a training run.
type Inputs struct {
	TestTrainRatio      float64
	NEstimators         int
	MaxDepth            int
	RegisteredModelName string
}

// Values returns the inputs keyed by their command-line names.
func (in Inputs) Values() map[string]string {
	return map[string]string{
		"test_train_ratio":      strconv.FormatFloat(in.TestTrainRatio, 'g', -1, 64),
		"n_estimators":          strconv.Itoa(in.NEstimators),
		"max_depth":             strconv.Itoa(in.MaxDepth),
		"registered_model_name": in.RegisteredModelName,
	}
}

// RenderCommand substitutes inputs into a command template such as
// "python main.py --max_depth {{.max_depth}}". Referencing an unknown input
// is an error.
func RenderCommand(commandTemplate string, inputs Inputs) (string, error) {
	tmpl, err := template.New("command").Option("missingkey=error").Parse(commandTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse command template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, inputs.Values()); err != nil {
		return "", fmt.Errorf("failed to render command template: %w", err)
	}
	return buf.String(), nil
}
