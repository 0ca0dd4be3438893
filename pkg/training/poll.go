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
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

const DefaultPollInterval = 30 * time.Second

// JobGetter is the subset of cloudml.Client used by AwaitCompletion.
type JobGetter interface {
	GetJob(ctx context.Context, id string) (*cloudml.Job, error)
}

// PollOptions tune AwaitCompletion. The zero value polls every
// DefaultPollInterval with no deadline.
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
	// OnStatus is called whenever the observed status changes.
	OnStatus func(job *cloudml.Job)
}

// JobFailedError reports a job that reached a terminal state other than
// Completed.
type JobFailedError struct {
	JobID   string
	Status  cloudml.JobStatus
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("training job %s failed: %s (%s)", e.JobID, e.Status, e.Message)
	}
	return fmt.Sprintf("training job %s failed: %s", e.JobID, e.Status)
}

// AwaitCompletion blocks until job jobID is terminal. It returns the
// Completed job, a *JobFailedError for any other terminal status, or the
// context error when cancelled or past the timeout.
func AwaitCompletion(ctx context.Context, client JobGetter, jobID string, opts PollOptions) (*cloudml.Job, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var last cloudml.JobStatus
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() == nil {
				// The limiter refuses a token that would land past the
				// deadline; the timeout still runs its full length.
				<-ctx.Done()
			}
			return nil, fmt.Errorf("stopped waiting for job %s (last status %q): %w", jobID, last, ctx.Err())
		}

		job, err := client.GetJob(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to get status of job %s: %w", jobID, err)
		}
		if job.Status != last {
			logging.Info("Job %s status: %s", jobID, job.Status)
			if opts.OnStatus != nil {
				opts.OnStatus(job)
			}
			last = job.Status
		}

		if !job.Status.Terminal() {
			continue
		}
		if job.Status.Succeeded() {
			return job, nil
		}
		return job, &JobFailedError{JobID: jobID, Status: job.Status, Message: job.Message}
	}
}
