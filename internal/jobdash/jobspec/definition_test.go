package jobspec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/jobdash/internal/common/dasherrors"
	"github.com/G-Research/jobdash/internal/jobdash/model"
)

func TestDerive(t *testing.T) {
	tests := map[string]struct {
		spec     string
		expected model.Definition
	}{
		"flat definition": {
			spec:     `{"type": "web", "schedule": "*/5 * * * *"}`,
			expected: model.Definition{"type": "web", "schedule": "*/5 * * * *"},
		},
		"top level bookkeeping removed": {
			spec:     `{"id": "42", "createdAt": "2022-03-01T15:04:05Z", "runs": [], "earnings": 3, "startAt": null}`,
			expected: model.Definition{"startAt": nil},
		},
		"initiator and task bookkeeping removed": {
			spec: `{
				"initiators": [{"id": 1, "jobSpecId": "42", "type": "cron", "params": {"schedule": "@hourly"}}],
				"tasks": [{"id": 7, "type": "httpget", "createdAt": "x", "params": {"get": "https://example.com", "id": "kept"}}]
			}`,
			expected: model.Definition{
				"initiators": []interface{}{
					map[string]interface{}{"type": "cron", "params": map[string]interface{}{"schedule": "@hourly"}},
				},
				"tasks": []interface{}{
					map[string]interface{}{"type": "httpget", "params": map[string]interface{}{"get": "https://example.com", "id": "kept"}},
				},
			},
		},
		"numbers keep their precision": {
			spec:     `{"payment": 100000000000000000001, "threshold": 0.5}`,
			expected: model.Definition{"payment": json.Number("100000000000000000001"), "threshold": json.Number("0.5")},
		},
		"trailing whitespace": {
			spec:     "{\"type\": \"web\"}\n\n",
			expected: model.Definition{"type": "web"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			definition, ok := Derive(&model.Job{JobSpecId: "42", Spec: []byte(tc.spec)})
			require.True(t, ok)
			assert.Equal(t, tc.expected, definition)
		})
	}
}

func TestDerive_NotDerivable(t *testing.T) {
	tests := map[string]*model.Job{
		"absent job":               nil,
		"nil spec":                 {JobSpecId: "42"},
		"blank spec":               {JobSpecId: "42", Spec: []byte("   ")},
		"invalid json":             {JobSpecId: "42", Spec: []byte(`{"type":`)},
		"array":                    {JobSpecId: "42", Spec: []byte(`[{"type": "web"}]`)},
		"string":                   {JobSpecId: "42", Spec: []byte(`"web"`)},
		"null":                     {JobSpecId: "42", Spec: []byte(`null`)},
		"empty object":             {JobSpecId: "42", Spec: []byte(`{}`)},
		"only bookkeeping":         {JobSpecId: "42", Spec: []byte(`{"id": "42", "createdAt": "x"}`)},
		"initiators not a list":    {JobSpecId: "42", Spec: []byte(`{"initiators": {"type": "web"}}`)},
		"tasks containing scalars": {JobSpecId: "42", Spec: []byte(`{"tasks": ["httpget"]}`)},
		"trailing data":            {JobSpecId: "42", Spec: []byte(`{"type": "web"} {"type": "cron"}`)},
	}
	for name, job := range tests {
		t.Run(name, func(t *testing.T) {
			definition, ok := Derive(job)
			assert.False(t, ok)
			assert.Nil(t, definition)
		})
	}
}

func TestDerive_DoesNotModifyJob(t *testing.T) {
	spec := `{"id": "42", "type": "web"}`
	job := &model.Job{JobSpecId: "42", Spec: []byte(spec)}

	first, ok := Derive(job)
	require.True(t, ok)
	first["type"] = "changed"

	second, ok := Derive(job)
	require.True(t, ok)
	assert.Equal(t, model.Definition{"type": "web"}, second)
	assert.Equal(t, spec, string(job.Spec))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]byte(`{"type": "web"}`)))

	err := Validate([]byte(`[]`))
	var invalidArgument *dasherrors.ErrInvalidArgument
	require.ErrorAs(t, err, &invalidArgument)
	assert.Equal(t, "definition", invalidArgument.Name)
	assert.Equal(t, "definition must be an object", invalidArgument.Message)
}
