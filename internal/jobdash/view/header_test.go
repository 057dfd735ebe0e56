package view

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/jobdash/internal/jobdash/model"
)

func TestRegionalNav_Render(t *testing.T) {
	job := &model.Job{JobSpecId: "42"}
	tests := map[string]struct {
		nav      RegionalNav
		job      *model.Job
		expected HeaderFrame
	}{
		"job absent": {
			expected: HeaderFrame{Title: "jobdash", JobSpecId: "42", RunDisabled: true, RunAction: "/jobs/42/runs"},
		},
		"job without runs": {
			nav:      RegionalNav{Title: "Staging"},
			job:      job,
			expected: HeaderFrame{Title: "Staging", JobSpecId: "42", RunAction: "/jobs/42/runs"},
		},
		"job with runs": {
			job: job.
				WithRun(&model.Run{RunId: "1", Status: model.RunStatusCompleted}).
				WithRun(&model.Run{RunId: "2", Status: model.RunStatusRunning}),
			expected: HeaderFrame{
				Title:           "jobdash",
				JobSpecId:       "42",
				RunCount:        2,
				LatestRunStatus: model.RunStatusRunning,
				RunAction:       "/jobs/42/runs",
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.nav.Render("42", tc.job))
		})
	}
}

func TestPaths_EscapeIds(t *testing.T) {
	assert.Equal(t, "/jobs/a%2Fb/definition", DefinitionPath("a/b"))
	assert.Equal(t, "/jobs/a%2Fb/runs", RunPath("a/b"))
}

func TestWriteHTMLPage(t *testing.T) {
	loading := &Frame{
		JobSpecId: "42",
		Header:    RegionalNav{}.Render("42", nil),
		Loading:   true,
	}
	loaded := &Frame{
		JobSpecId:  "42",
		Header:     RegionalNav{}.Render("42", &model.Job{JobSpecId: "42"}),
		Definition: `{"cmd": "<script>"}`,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHTMLPage(&buf, loading, 1500*time.Millisecond))
	page := buf.String()
	assert.Contains(t, page, `<meta http-equiv="refresh" content="2; url=/jobs/42/definition?refreshed=1">`)
	assert.Contains(t, page, LoadingText)
	assert.Contains(t, page, `disabled>Run</button>`)
	assert.NotContains(t, page, "<h2>"+DefinitionText+"</h2>")

	buf.Reset()
	require.NoError(t, WriteHTMLPage(&buf, loaded, time.Second))
	page = buf.String()
	assert.NotContains(t, page, "http-equiv")
	assert.NotContains(t, page, LoadingText)
	assert.Contains(t, page, "<h2>"+DefinitionText+"</h2>\n<hr>")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.Contains(t, page, `class="secondary">Run</button>`)
	assert.Contains(t, page, `action="/jobs/42/runs"`)
}

func TestHTMLFragmentLines(t *testing.T) {
	lines, err := HTMLFragmentLines(&Frame{JobSpecId: "42", Header: RegionalNav{}.Render("42", nil), Loading: true})
	require.NoError(t, err)
	assert.Equal(t, `<header class="regional-nav">`, lines[0])
	assert.Equal(t, "</main>", lines[len(lines)-1])
	for _, line := range lines {
		assert.NotContains(t, line, "\n")
	}
}
