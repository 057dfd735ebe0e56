package view

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/jobdash/internal/jobdash/model"
)

func TestDisplay_Format(t *testing.T) {
	definition := model.Definition{
		"type":     "web",
		"schedule": "*/5 * * * *",
		"tasks": []interface{}{
			map[string]interface{}{"type": "httpget", "retries": json.Number("3")},
		},
	}
	tests := map[string]struct {
		format   DisplayFormat
		expected string
	}{
		"json": {
			format: JsonFormat,
			expected: `{
  "schedule": "*/5 * * * *",
  "tasks": [
    {
      "retries": 3,
      "type": "httpget"
    }
  ],
  "type": "web"
}`,
		},
		"yaml": {
			format: YamlFormat,
			expected: `schedule: '*/5 * * * *'
tasks:
- retries: 3
  type: httpget
type: web`,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			display, err := NewDisplay(tc.format)
			require.NoError(t, err)

			formatted, err := display.Format(definition)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, formatted)

			again, err := display.Format(definition)
			require.NoError(t, err)
			assert.Equal(t, formatted, again)
		})
	}
}

func TestGoDisplay_Format(t *testing.T) {
	definition := model.Definition{"type": "web", "schedule": "*/5 * * * *"}

	formatted, err := GoDisplay{}.Format(definition)
	require.NoError(t, err)

	assert.Contains(t, formatted, `"schedule": "*/5 * * * *"`)
	assert.Less(t, strings.Index(formatted, "schedule"), strings.Index(formatted, "type"))
}

func TestJsonDisplay_DoesNotEscapeHtml(t *testing.T) {
	formatted, err := JsonDisplay{}.Format(model.Definition{"url": "http://a?b=1&c=<d>"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"url\": \"http://a?b=1&c=<d>\"\n}", formatted)
}

func TestDisplayFormat_UnmarshalText(t *testing.T) {
	tests := map[string]struct {
		text     string
		expected DisplayFormat
		err      bool
	}{
		"empty":   {text: "", expected: JsonFormat},
		"json":    {text: "json", expected: JsonFormat},
		"yaml":    {text: "YAML", expected: YamlFormat},
		"go":      {text: " go ", expected: GoFormat},
		"unknown": {text: "xml", err: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var format DisplayFormat
			err := format.UnmarshalText([]byte(tc.text))
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, format)
		})
	}
}

func TestNewDisplay_UnknownFormat(t *testing.T) {
	_, err := NewDisplay("xml")
	assert.Error(t, err)
}
