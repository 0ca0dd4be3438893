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

package cloudml

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies control-plane failures so callers can branch without
// inspecting message text.
type ErrorKind int

const (
	// KindOther is any failure without a more specific classification.
	KindOther ErrorKind = iota
	// KindNotFound means the named resource does not exist.
	KindNotFound
	// KindQuotaExceeded means the project lacks capacity for the request.
	KindQuotaExceeded
	// KindUnsupportedConfiguration means the requested size or setting is not offered.
	KindUnsupportedConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindQuotaExceeded:
		return "QuotaExceeded"
	case KindUnsupportedConfiguration:
		return "UnsupportedConfiguration"
	default:
		return "Other"
	}
}

// Error is a failed control-plane call.
type Error struct {
	Kind     ErrorKind
	Op       string
	Resource string
	// Code is the provider status code, 0 when unknown.
	Code int
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Resource != "" {
		fmt.Fprintf(&b, " %q", e.Resource)
	}
	if e.Kind != KindOther {
		fmt.Fprintf(&b, " (%s)", e.Kind)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or KindOther.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOther
}

// IsNotFound reports whether err was tagged as a missing resource.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsRecoverableProvisioning reports whether a deployment failure was caused by
// capacity or by the requested size not being offered, either of which may
// succeed on a different size.
func IsRecoverableProvisioning(err error) bool {
	switch KindOf(err) {
	case KindQuotaExceeded, KindUnsupportedConfiguration:
		return true
	}
	return false
}

var (
	quotaPhrases = []string{
		"not enough quota",
		"quota exceeded",
		"exceeded quota",
		"insufficient quota",
		"resource_exhausted",
		"out of capacity",
	}
	unsupportedPhrases = []string{
		"not supported",
		"unsupported machine type",
		"is not available in",
	}
)

// ClassifyMessage is a last-resort classifier for providers that report
// failures only as text. Matching is case-insensitive.
func ClassifyMessage(msg string) ErrorKind {
	lower := strings.ToLower(msg)
	for _, p := range quotaPhrases {
		if strings.Contains(lower, p) {
			return KindQuotaExceeded
		}
	}
	for _, p := range unsupportedPhrases {
		if strings.Contains(lower, p) {
			return KindUnsupportedConfiguration
		}
	}
	if strings.Contains(lower, "not found") {
		return KindNotFound
	}
	return KindOther
}
