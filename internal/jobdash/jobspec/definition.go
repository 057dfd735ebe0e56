// Package jobspec turns the definition document stored with a job into the plain structured object shown to
// users. Derivation is total: every input, including an absent job, yields either a definition or false.
package jobspec

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/G-Research/jobdash/internal/common/dasherrors"
	"github.com/G-Research/jobdash/internal/jobdash/model"
)

const (
	initiatorsKey = "initiators"
	tasksKey      = "tasks"
)

// Keys assigned by the server rather than the author of the definition.
var (
	topLevelBookkeepingKeys = []string{"id", "createdAt", "updatedAt", "deletedAt", "runs", "earnings"}
	elementBookkeepingKeys  = []string{"id", "jobSpecId", "createdAt", "updatedAt", "deletedAt"}
)

// Derive returns the displayable definition of job, or false if job is nil or its spec cannot be turned into
// a definition.
func Derive(job *model.Job) (model.Definition, bool) {
	if job == nil {
		return nil, false
	}
	definition, err := Parse(job.Spec)
	if err != nil {
		return nil, false
	}
	return definition, true
}

// Validate returns an ErrInvalidArgument describing why spec would not produce a definition, or nil.
func Validate(spec []byte) error {
	_, err := Parse(spec)
	return err
}

// Parse decodes spec and strips bookkeeping fields. The returned definition shares nothing with spec.
func Parse(spec []byte) (model.Definition, error) {
	if len(bytes.TrimSpace(spec)) == 0 {
		return nil, invalid(spec, "definition is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(spec))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return nil, invalid(spec, "definition is not valid json: "+err.Error())
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, invalid(spec, "definition has trailing data")
	}

	object, ok := document.(map[string]interface{})
	if !ok {
		return nil, invalid(spec, "definition must be an object")
	}
	removeKeys(object, topLevelBookkeepingKeys)

	for _, key := range []string{initiatorsKey, tasksKey} {
		value, present := object[key]
		if !present {
			continue
		}
		elements, ok := value.([]interface{})
		if !ok {
			return nil, invalid(spec, key+" must be a list")
		}
		for _, element := range elements {
			fields, ok := element.(map[string]interface{})
			if !ok {
				return nil, invalid(spec, key+" must only contain objects")
			}
			removeKeys(fields, elementBookkeepingKeys)
		}
	}

	if len(object) == 0 {
		return nil, invalid(spec, "definition has no fields")
	}
	return object, nil
}

func removeKeys(object map[string]interface{}, keys []string) {
	for _, key := range keys {
		delete(object, key)
	}
}

func invalid(spec []byte, message string) error {
	return errors.WithStack(&dasherrors.ErrInvalidArgument{
		Name:    "definition",
		Value:   abbreviate(spec),
		Message: message,
	})
}

func abbreviate(spec []byte) string {
	const maxLen = 64
	if len(spec) <= maxLen {
		return string(spec)
	}
	return string(spec[:maxLen]) + "..."
}
