package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"

	"github.com/G-Research/jobdash/internal/common/dasherrors"
	"github.com/G-Research/jobdash/internal/jobdash/model"
)

const apiBasePath = "/api/v1"

// Client calls the job API over HTTP. Failed requests are returned as the dasherrors type matching the
// response status, so callers can treat remote and in-process repositories alike.
type Client struct {
	baseUrl       string
	credentials   LoginCredentials
	retryAttempts uint
	http          *http.Client
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateJob submits a definition document. contentType is application/json or application/yaml.
func (c *Client) CreateJob(ctx context.Context, definition []byte, contentType string) (*model.Job, error) {
	job := &model.Job{}
	err := c.do(ctx, http.MethodPost, "/jobs", contentType, definition, http.StatusCreated, job)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob fetches a job with its runs. Transient failures are retried.
func (c *Client) GetJob(ctx context.Context, jobSpecId string) (*model.Job, error) {
	var job *model.Job
	err := retry.Do(
		func() error {
			job = &model.Job{}
			return c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobSpecId), "", nil, http.StatusOK, job)
		},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CreateJobRun requests a new run. It is never retried, since a retry could create a second run.
func (c *Client) CreateJobRun(ctx context.Context, jobSpecId string) (*model.Run, error) {
	run := &model.Run{}
	err := c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(jobSpecId)+"/runs", "", nil, http.StatusCreated, run)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, expectedStatus int, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, bodyReader)
	if err != nil {
		return errors.WithStack(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.credentials.Username != "" {
		req.SetBasicAuth(c.credentials.Username, c.credentials.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return statusError(resp, path)
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(result), "decoding response to %s %s", method, path)
}

// statusError turns a failed response back into the error the server reported.
func statusError(resp *http.Response, path string) error {
	message := resp.Status
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		message = body.Error
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return errors.WithStack(&dasherrors.ErrNotFound{Value: path, Message: message})
	case http.StatusConflict:
		return errors.WithStack(&dasherrors.ErrAlreadyExists{Value: path, Message: message})
	case http.StatusBadRequest:
		return errors.WithStack(&dasherrors.ErrInvalidArgument{Name: "request", Value: path, Message: message})
	default:
		return errors.WithStack(&httpError{status: resp.StatusCode, message: message})
	}
}

type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.status, e.message)
}

// Server errors and failures to get a response at all are worth retrying, client errors are not.
func isTransient(err error) bool {
	var statusErr *httpError
	if errors.As(err, &statusErr) {
		return statusErr.status >= http.StatusInternalServerError
	}
	return dasherrors.HttpStatusFromError(err) == http.StatusInternalServerError
}
