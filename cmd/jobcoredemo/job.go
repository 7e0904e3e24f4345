package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ErlanBelekov/jobcore"
	"github.com/ErlanBelekov/jobcore/internal/domain"
)

// demoJobFactory resolves every JobDetail.JobClass == "http_request" into a
// job that performs the request described in its data map, the rough
// in-process analogue of the teacher's worker executing a stored HTTP job.
type demoJobFactory struct {
	logger *slog.Logger
	client *http.Client
}

func newDemoJobFactory(logger *slog.Logger) *demoJobFactory {
	return &demoJobFactory{
		logger: logger.With("component", "demo_job_factory"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *demoJobFactory) NewJob(detail *jobcore.JobDetail) (jobcore.Job, error) {
	switch detail.JobClass {
	case "http_request":
		return &httpRequestJob{client: f.client, logger: f.logger}, nil
	case "log":
		return &logJob{logger: f.logger}, nil
	default:
		return nil, fmt.Errorf("unknown job class %q", detail.JobClass)
	}
}

// httpRequestJob performs an outbound HTTP call described by its job data
// map (method, url): a 2xx/3xx status is success, anything else returns a
// JobExecutionError requesting no refire, since a misconfigured demo
// endpoint won't fix itself on schedule.
type httpRequestJob struct {
	client *http.Client
	logger *slog.Logger
}

func (j *httpRequestJob) Execute(ctx context.Context, jobCtx *jobcore.JobExecutionContext) error {
	data := jobCtx.JobDetail.JobDataMap
	method := data.String("method")
	if method == "" {
		method = http.MethodGet
	}
	url := data.String("url")
	if url == "" {
		return &domain.JobExecutionError{Cause: fmt.Errorf("http_request job %s: missing url", jobCtx.JobDetail.Key)}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return &domain.JobExecutionError{Cause: err}
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return &domain.JobExecutionError{Cause: err, Refire: true}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &domain.JobExecutionError{Cause: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	j.logger.InfoContext(ctx, "http_request job completed", "job_key", jobCtx.JobDetail.Key.String(), "status", resp.StatusCode, "fire_instance_id", jobCtx.FireInstanceID)
	return nil
}

// logJob just logs its own firing, useful for demoing cron/interval
// schedules without any network dependency.
type logJob struct {
	logger *slog.Logger
}

func (j *logJob) Execute(ctx context.Context, jobCtx *jobcore.JobExecutionContext) error {
	j.logger.InfoContext(ctx, "log job fired",
		"job_key", jobCtx.JobDetail.Key.String(),
		"fire_instance_id", jobCtx.FireInstanceID,
		"recovering", jobCtx.Recovering,
	)
	return nil
}
