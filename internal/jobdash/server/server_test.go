package server

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/jobdash/internal/common/health"
	"github.com/G-Research/jobdash/internal/jobdash/actions"
	"github.com/G-Research/jobdash/internal/jobdash/api"
	"github.com/G-Research/jobdash/internal/jobdash/model"
	"github.com/G-Research/jobdash/internal/jobdash/repository"
	"github.com/G-Research/jobdash/internal/jobdash/store"
	"github.com/G-Research/jobdash/internal/jobdash/view"
)

var testJob = &model.Job{
	JobSpecId: "42",
	Spec:      []byte(`{"type":"web","schedule":"*/5 * * * *"}`),
	CreatedAt: time.Date(2022, 10, 1, 12, 0, 0, 0, time.UTC),
}

type testEnv struct {
	server     *httptest.Server
	store      *store.Store
	repository *repository.InMemoryJobRepository
	dispatcher *actions.Dispatcher
	actions    *recordingActions
}

// recordingActions passes requests on to the dispatcher and remembers which jobs were fetched.
type recordingActions struct {
	*actions.Dispatcher
	mu      sync.Mutex
	fetched []string
}

func (a *recordingActions) FetchJob(jobSpecId string) {
	a.mu.Lock()
	a.fetched = append(a.fetched, jobSpecId)
	a.mu.Unlock()
	a.Dispatcher.FetchJob(jobSpecId)
}

func (a *recordingActions) Fetched() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.fetched...)
}

func withTestServer(t *testing.T, healthy error, action func(env *testEnv)) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := store.New(100)
	require.NoError(t, err)
	go func() { _ = s.Run(ctx) }()

	repo := repository.NewInMemoryJobRepository()
	dispatcher := actions.NewDispatcher(repo, s, time.Second)
	recorder := &recordingActions{Dispatcher: dispatcher}
	uiServer := NewUIServer(s, recorder, Config{
		CorsAllowedOrigins: []string{"http://allowed"},
		Header:             view.RegionalNav{Title: "test"},
		Display:            view.JsonDisplay{},
		RefreshInterval:    time.Second,
		StreamTimeout:      5 * time.Second,
	})
	server := httptest.NewServer(uiServer.Handler(
		api.NewJobApi(repo),
		health.CheckerFunc(func() error { return healthy })))
	defer server.Close()

	action(&testEnv{server: server, store: s, repository: repo, dispatcher: dispatcher, actions: recorder})
	dispatcher.Wait()
}

func TestDefinitionPage(t *testing.T) {
	withTestServer(t, nil, func(env *testEnv) {
		require.NoError(t, env.repository.CreateJob(context.Background(), testJob))

		assert.Eventually(t, func() bool {
			page := get(t, env.server.URL+"/jobs/42/definition")
			return strings.Contains(page, "<h2>Definition</h2>")
		}, 5*time.Second, 10*time.Millisecond)

		page := get(t, env.server.URL+"/jobs/42/definition")
		assert.Contains(t, page, "&#34;schedule&#34;: &#34;*/5 * * * *&#34;")
		assert.NotContains(t, page, view.LoadingText)
	})
}

func TestDefinitionPage_UnknownJob(t *testing.T) {
	withTestServer(t, nil, func(env *testEnv) {
		page := get(t, env.server.URL+"/jobs/missing/definition")
		assert.Contains(t, page, view.LoadingText)
		assert.Contains(t, page, `http-equiv="refresh" content="1; url=/jobs/missing/definition?refreshed=1"`)
		assert.Contains(t, page, "disabled>Run</button>")

		env.dispatcher.Wait()
		assert.Eventually(t, func() bool {
			return store.SelectError(env.store.State(), "missing") != nil
		}, 5*time.Second, 10*time.Millisecond)

		page = get(t, env.server.URL+view.RefreshPath("missing"))
		assert.Contains(t, page, view.LoadingText)
		assert.Equal(t, []string{"missing"}, env.actions.Fetched())
	})
}

func TestDefinitionPage_FetchesOncePerPageLoad(t *testing.T) {
	withTestServer(t, nil, func(env *testEnv) {
		page := get(t, env.server.URL+"/jobs/missing/definition")
		require.Contains(t, page, "new EventSource")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		resp := openStream(t, ctx, env.server.URL+"/jobs/missing/definition")
		defer resp.Body.Close()
		line, err := bufio.NewReader(resp.Body).ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "event: render\n", line)

		get(t, env.server.URL+view.RefreshPath("missing"))
		get(t, env.server.URL+view.RefreshPath("missing"))

		assert.Equal(t, []string{"missing"}, env.actions.Fetched())

		get(t, env.server.URL+"/jobs/missing/definition")
		assert.Equal(t, []string{"missing", "missing"}, env.actions.Fetched())
	})
}

func TestDefinitionStream(t *testing.T) {
	withTestServer(t, nil, func(env *testEnv) {
		require.NoError(t, env.repository.CreateJob(context.Background(), testJob))
		get(t, env.server.URL+"/jobs/42/definition")

		resp := openStream(t, context.Background(), env.server.URL+"/jobs/42/definition")
		defer resp.Body.Close()
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		events := readEvents(t, resp.Body)
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, "done", last.name)

		rendered := events[len(events)-2]
		assert.Equal(t, "render", rendered.name)
		assert.Contains(t, rendered.data, "<h2>Definition</h2>")
		for _, event := range events[:len(events)-2] {
			assert.Contains(t, event.data, view.LoadingText)
		}
		assert.Equal(t, []string{"42"}, env.actions.Fetched())
	})
}

func TestDefinitionStream_EndsWithClient(t *testing.T) {
	withTestServer(t, nil, func(env *testEnv) {
		ctx, cancel := context.WithCancel(context.Background())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/jobs/missing/definition", nil)
		require.NoError(t, err)
		req.Header.Set("Accept", "text/plain, text/event-stream;q=0.9")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		line, err := bufio.NewReader(resp.Body).ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "event: render\n", line)
		cancel()
	})
}

func TestRunJob(t *testing.T) {
	withTestServer(t, nil, func(env *testEnv) {
		require.NoError(t, env.repository.CreateJob(context.Background(), testJob))
		require.NoError(t, env.store.Apply(store.JobFetched{Job: testJob}))

		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}}
		resp, err := client.Post(env.server.URL+"/jobs/42/runs", "application/x-www-form-urlencoded", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/jobs/42/definition", resp.Header.Get("Location"))

		env.dispatcher.Wait()
		assert.Eventually(t, func() bool {
			job := store.SelectJob(env.store.State(), "42")
			return job != nil && len(job.Runs) == 1
		}, 5*time.Second, 10*time.Millisecond)

		job, err := env.repository.GetJob(context.Background(), "42")
		require.NoError(t, err)
		assert.Len(t, job.Runs, 1)
	})
}

func TestHealth(t *testing.T) {
	withTestServer(t, nil, func(env *testEnv) {
		resp, err := http.Get(env.server.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
	withTestServer(t, errors.New("store stopped"), func(env *testEnv) {
		resp, err := http.Get(env.server.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		head, err := http.Head(env.server.URL + "/health")
		require.NoError(t, err)
		defer head.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, head.StatusCode)
	})
}

func TestApiIsMounted(t *testing.T) {
	withTestServer(t, nil, func(env *testEnv) {
		resp, err := http.Get(env.server.URL + api.BasePath + "/jobs/missing")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCors(t *testing.T) {
	tests := map[string]struct {
		origin          string
		expectedAllowed bool
	}{
		"allowed origin": {origin: "http://allowed", expectedAllowed: true},
		"other origin":   {origin: "http://other"},
		"no origin":      {},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			withTestServer(t, nil, func(env *testEnv) {
				req, err := http.NewRequest(http.MethodOptions, env.server.URL+api.BasePath+"/jobs", nil)
				require.NoError(t, err)
				if tc.origin != "" {
					req.Header.Set("Origin", tc.origin)
				}
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				defer resp.Body.Close()

				if tc.expectedAllowed {
					assert.Equal(t, http.StatusNoContent, resp.StatusCode)
					assert.Equal(t, tc.origin, resp.Header.Get("Access-Control-Allow-Origin"))
					assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
				} else {
					assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
				}
			})
		})
	}
}

func TestAcceptsEventStream(t *testing.T) {
	tests := map[string]struct {
		accept   []string
		expected bool
	}{
		"none":          {},
		"html":          {accept: []string{"text/html,application/xhtml+xml"}},
		"event stream":  {accept: []string{"text/event-stream"}, expected: true},
		"with params":   {accept: []string{"text/html;q=1, text/event-stream;q=0.5"}, expected: true},
		"second header": {accept: []string{"text/html", "text/event-stream"}, expected: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, accept := range tc.accept {
				req.Header.Add("Accept", accept)
			}
			assert.Equal(t, tc.expected, acceptsEventStream(req))
		})
	}
}

func openStream(t *testing.T, ctx context.Context, url string) *http.Response {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, url string) string {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

type event struct {
	name string
	data string
}

func readEvents(t *testing.T, body io.Reader) []event {
	var events []event
	var current event
	var data []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		case line == "":
			current.data = strings.Join(data, "\n")
			events = append(events, current)
			current = event{}
			data = nil
		}
	}
	require.NoError(t, scanner.Err())
	return events
}
