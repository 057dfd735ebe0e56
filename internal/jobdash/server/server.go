package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/jobdash/internal/common/health"
	"github.com/G-Research/jobdash/internal/common/logging"
	"github.com/G-Research/jobdash/internal/jobdash/api"
	"github.com/G-Research/jobdash/internal/jobdash/view"
)

const eventStreamContentType = "text/event-stream"

// JobActions are the requests the UI issues on behalf of its users.
type JobActions interface {
	view.JobFetcher
	CreateJobRun(jobSpecId string)
}

type Config struct {
	CorsAllowedOrigins []string
	Header             view.Header
	Display            view.Display
	RefreshInterval    time.Duration
	StreamTimeout      time.Duration
}

// UIServer serves the job views. Every request for a view renders a new instance of it.
type UIServer struct {
	store   view.StateStore
	actions JobActions
	config  Config
}

func NewUIServer(store view.StateStore, actions JobActions, config Config) *UIServer {
	return &UIServer{
		store:   store,
		actions: actions,
		config:  config,
	}
}

// Handler routes the UI, the job API when jobApi is not nil, and health checks.
func (s *UIServer) Handler(jobApi *api.JobApi, healthChecker health.Checker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(countRequests)

	healthHandler := health.HttpHandler(healthChecker)
	r.Method(http.MethodGet, "/health", healthHandler)
	r.Method(http.MethodHead, "/health", healthHandler)
	if jobApi != nil {
		r.Route(api.BasePath, jobApi.Routes)
	}
	r.Get("/jobs/{"+view.JobSpecIdParam+"}/definition", s.definition)
	r.Post("/jobs/{"+view.JobSpecIdParam+"}/runs", s.runJob)

	return allowCORS(r, s.config.CorsAllowedOrigins)
}

// definition serves a page load, which mounts a new view and so requests the job once. The page's event
// stream and its automatic reloads only render the view against the store.
func (s *UIServer) definition(w http.ResponseWriter, r *http.Request) {
	definition := view.NewDefinition(view.DefinitionProps{
		Params:  view.ParamsFromRequest(r),
		Store:   s.store,
		Fetcher: s.actions,
		Header:  s.config.Header,
		Display: s.config.Display,
	})

	if acceptsEventStream(r) {
		s.stream(w, r, definition)
		return
	}
	if r.URL.Query().Get(view.RefreshParam) == "" {
		definition.Mount()
	}

	frame := definition.Render(s.store.State())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := view.WriteHTMLPage(w, frame, s.config.RefreshInterval); err != nil {
		logging.WithStacktrace(log.WithField("path", r.URL.Path), err).Error("Failed to write page")
	}
}

// stream sends a render event for every new frame of the view until the definition is shown, the client goes
// away or the stream timeout passes. A done event is sent once the definition is shown.
func (s *UIServer) stream(w http.ResponseWriter, r *http.Request, definition *view.Definition) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming is not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	if s.config.StreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.StreamTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.Header().Set("Content-Type", eventStreamContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frame := range definition.Watch(ctx) {
		lines, err := view.HTMLFragmentLines(frame)
		if err != nil {
			logging.WithStacktrace(log.WithField("path", r.URL.Path), err).Error("Failed to render frame")
			return
		}
		if err := writeEvent(w, "render", lines); err != nil {
			log.WithError(err).Debug("Event stream closed by client")
			return
		}
		if !frame.Loading {
			_ = writeEvent(w, "done", []string{""})
			flusher.Flush()
			return
		}
		flusher.Flush()
	}
}

func (s *UIServer) runJob(w http.ResponseWriter, r *http.Request) {
	params := view.ParamsFromRequest(r)
	s.actions.CreateJobRun(params.JobSpecId)
	http.Redirect(w, r, view.DefinitionPath(params.JobSpecId), http.StatusSeeOther)
}

func acceptsEventStream(r *http.Request) bool {
	for _, accept := range r.Header.Values("Accept") {
		for _, mediaRange := range strings.Split(accept, ",") {
			if strings.TrimSpace(strings.Split(mediaRange, ";")[0]) == eventStreamContentType {
				return true
			}
		}
	}
	return false
}

func writeEvent(w http.ResponseWriter, event string, lines []string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}
