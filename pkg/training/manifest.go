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
	"encoding/json"
	"fmt"
	"text/template"

	"ml-toolkit/pkg/cloudml"
)

// ManifestTemplate renders a training job request as YAML.
const ManifestTemplate = `apiVersion: mltk.dev/v1
kind: TrainingJob
metadata:
  name: {{quote .Name}}
{{- if .Labels }}
  labels:
{{- range $k, $v := .Labels }}
    {{quote $k}}: {{quote $v}}
{{- end }}
{{- end }}
spec:
  displayName: {{quote .DisplayName}}
  experimentName: {{quote .ExperimentName}}
  compute: {{quote .Compute}}
  instanceType: {{quote .InstanceType}}
  image: {{quote .Image}}
  command: ["/bin/bash", "-c", {{quote .Command}}]
{{- if .Inputs }}
  inputs:
{{- range $k, $v := .Inputs }}
    {{quote $k}}: {{quote $v}}
{{- end }}
{{- end }}
{{- if .OutputURI }}
  outputUri: {{quote .OutputURI}}
{{- end }}
`

// quote renders s as a double-quoted YAML scalar.
func quote(s string) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RenderManifest generates the YAML manifest for spec.
func RenderManifest(spec cloudml.JobSpec) (string, error) {
	tmpl, err := template.New("trainingJob").Funcs(template.FuncMap{"quote": quote}).Parse(ManifestTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse training job template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, spec); err != nil {
		return "", fmt.Errorf("failed to execute training job template: %w", err)
	}
	return buf.String(), nil
}
