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
	"strings"
	"testing"
)

var defaultInputs = Inputs{TestTrainRatio: 0.2, NEstimators: 50, MaxDepth: 10, RegisteredModelName: "iris_model"}

func TestRenderCommand(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		want    string
		wantErr string
	}{
		{
			name: "all inputs",
			tmpl: "python main.py --test_train_ratio {{.test_train_ratio}} --n_estimators {{.n_estimators}} --max_depth {{.max_depth}} --registered_model_name {{.registered_model_name}}",
			want: "python main.py --test_train_ratio 0.2 --n_estimators 50 --max_depth 10 --registered_model_name iris_model",
		},
		{
			name: "no placeholders",
			tmpl: "python main.py",
			want: "python main.py",
		},
		{
			name:    "unknown input",
			tmpl:    "python main.py --lr {{.learning_rate}}",
			wantErr: "failed to render command template",
		},
		{
			name:    "bad template",
			tmpl:    "python main.py {{.max_depth",
			wantErr: "failed to parse command template",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RenderCommand(tc.tmpl, defaultInputs)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("RenderCommand() error = %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("RenderCommand() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("RenderCommand() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestInputsValuesFormatsFloats(t *testing.T) {
	got := Inputs{TestTrainRatio: 0.25}.Values()["test_train_ratio"]
	if got != "0.25" {
		t.Errorf("Values()[test_train_ratio] = %q, want 0.25", got)
	}
}
