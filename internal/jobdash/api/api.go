package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
	"sigs.k8s.io/yaml"

	"github.com/G-Research/jobdash/internal/common/dasherrors"
	"github.com/G-Research/jobdash/internal/common/logging"
	"github.com/G-Research/jobdash/internal/common/util"
	"github.com/G-Research/jobdash/internal/jobdash/jobspec"
	"github.com/G-Research/jobdash/internal/jobdash/model"
	"github.com/G-Research/jobdash/internal/jobdash/repository"
)

const (
	BasePath         = "/api/v1"
	JobSpecIdParam   = "jobSpecId"
	maxDefinitionLen = 1 << 20
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JobApi serves the job API over a JobRepository.
type JobApi struct {
	repository repository.JobRepository
	clock      clock.PassiveClock
}

func NewJobApi(repository repository.JobRepository) *JobApi {
	return &JobApi{
		repository: repository,
		clock:      clock.RealClock{},
	}
}

// Routes registers the API handlers, relative to BasePath.
func (a *JobApi) Routes(r chi.Router) {
	r.Post("/jobs", a.createJob)
	r.Get("/jobs/{"+JobSpecIdParam+"}", a.getJob)
	r.Post("/jobs/{"+JobSpecIdParam+"}/runs", a.createJobRun)
}

func (a *JobApi) createJob(w http.ResponseWriter, r *http.Request) {
	spec, err := readDefinition(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := jobspec.Validate(spec); err != nil {
		writeError(w, r, err)
		return
	}

	job := &model.Job{
		JobSpecId: util.NewJobSpecId(),
		Spec:      spec,
		CreatedAt: a.clock.Now().UTC(),
	}
	if err := a.repository.CreateJob(r.Context(), job); err != nil {
		writeError(w, r, err)
		return
	}
	log.WithField("jobSpecId", job.JobSpecId).Info("Created job")
	writeJson(w, http.StatusCreated, job)
}

func (a *JobApi) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.repository.GetJob(r.Context(), chi.URLParam(r, JobSpecIdParam))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJson(w, http.StatusOK, job)
}

func (a *JobApi) createJobRun(w http.ResponseWriter, r *http.Request) {
	jobSpecId := chi.URLParam(r, JobSpecIdParam)
	run, err := a.repository.CreateJobRun(r.Context(), jobSpecId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.WithField("jobSpecId", jobSpecId).Infof("Created run %s", run.RunId)
	writeJson(w, http.StatusCreated, run)
}

// readDefinition returns the request body as compact JSON, converting it from YAML first if the request says
// it is YAML.
func readDefinition(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDefinitionLen+1))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(body) > maxDefinitionLen {
		return nil, &dasherrors.ErrInvalidArgument{
			Name:    "definition",
			Value:   strconv.Itoa(len(body)) + " bytes",
			Message: "definition is too large",
		}
	}

	if isYaml(r.Header.Get("Content-Type")) {
		body, err = yaml.YAMLToJSON(body)
		if err != nil {
			return nil, &dasherrors.ErrInvalidArgument{
				Name:    "definition",
				Value:   "",
				Message: "definition is not valid yaml: " + err.Error(),
			}
		}
	}

	// Invalid JSON is left as is for the definition validation to report.
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, body); err != nil {
		return body, nil
	}
	return compacted.Bytes(), nil
}

func isYaml(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/yaml" || mediaType == "application/x-yaml" || mediaType == "text/yaml"
}

func writeJson(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := dasherrors.HttpStatusFromError(err)
	if status >= http.StatusInternalServerError {
		logging.WithStacktrace(log.WithField("path", r.URL.Path), err).Error("Request failed")
	}
	writeJson(w, status, &ErrorResponse{Error: errors.Cause(err).Error()})
}
