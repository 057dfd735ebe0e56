package jobdashctl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/G-Research/jobdash/pkg/client"
)

// CreateJob submits the definition in path, which is YAML when the file extension says so and JSON otherwise.
func (a *App) CreateJob(ctx context.Context, path string) error {
	definition, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading definition from %s", path)
	}
	contentType := "application/json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		contentType = "application/yaml"
	}

	return client.WithJobClient(a.connectionDetails, func(c *client.Client) error {
		job, err := c.CreateJob(ctx, definition, contentType)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Created job %s\n", job.JobSpecId)
		return nil
	})
}

// RunJob creates a run of the job.
func (a *App) RunJob(ctx context.Context, jobSpecId string) error {
	return client.WithJobClient(a.connectionDetails, func(c *client.Client) error {
		run, err := c.CreateJobRun(ctx, jobSpecId)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Created run %s of job %s (%s)\n", run.RunId, jobSpecId, run.Status)
		return nil
	})
}
