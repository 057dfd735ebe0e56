package view

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	"sigs.k8s.io/yaml"

	"github.com/G-Research/jobdash/internal/jobdash/model"
)

type DisplayFormat string

const (
	JsonFormat DisplayFormat = "json"
	YamlFormat DisplayFormat = "yaml"
	GoFormat   DisplayFormat = "go"
)

func (f *DisplayFormat) UnmarshalText(text []byte) error {
	format := DisplayFormat(strings.ToLower(strings.TrimSpace(string(text))))
	switch format {
	case "":
		*f = JsonFormat
	case JsonFormat, YamlFormat, GoFormat:
		*f = format
	default:
		return errors.Errorf("unknown display format %q, expected one of json, yaml or go", string(text))
	}
	return nil
}

// Display renders a definition as nested, human readable text. Output is deterministic: the same definition
// always produces the same text.
type Display interface {
	Format(definition model.Definition) (string, error)
}

func NewDisplay(format DisplayFormat) (Display, error) {
	switch format {
	case JsonFormat, "":
		return JsonDisplay{}, nil
	case YamlFormat:
		return YamlDisplay{}, nil
	case GoFormat:
		return GoDisplay{}, nil
	default:
		return nil, errors.Errorf("unknown display format %q", format)
	}
}

// JsonDisplay renders indented JSON with object keys sorted.
type JsonDisplay struct{}

func (JsonDisplay) Format(definition model.Definition) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(definition); err != nil {
		return "", errors.WithStack(err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

type YamlDisplay struct{}

func (YamlDisplay) Format(definition model.Definition) (string, error) {
	out, err := yaml.Marshal(definition)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

// GoDisplay dumps the definition as a Go literal.
type GoDisplay struct{}

var goDisplayOptions = litter.Options{
	StripPackageNames: true,
	HidePrivateFields: true,
}

func (GoDisplay) Format(definition model.Definition) (string, error) {
	return goDisplayOptions.Sdump(definition), nil
}
