package dasherrors

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHttpStatusFromError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"ErrAlreadyExists":                {&ErrAlreadyExists{}, http.StatusConflict},
		"ErrNotFound":                     {&ErrNotFound{}, http.StatusNotFound},
		"ErrInvalidArgument":              {&ErrInvalidArgument{}, http.StatusBadRequest},
		"pkg.Error => ErrAlreadyExists":   {errors.WithMessage(&ErrAlreadyExists{}, "foo"), http.StatusConflict},
		"pkg.Error => ErrNotFound":        {errors.WithStack(&ErrNotFound{}), http.StatusNotFound},
		"pkg.Error => ErrInvalidArgument": {errors.Wrap(&ErrInvalidArgument{}, "foo"), http.StatusBadRequest},
		"pkg.Error":                       {errors.New("foo"), http.StatusInternalServerError},
		"nil":                             {nil, http.StatusOK},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, HttpStatusFromError(tc.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		`resource "42" of type "job" does not exist`,
		(&ErrNotFound{Type: "job", Value: "42"}).Error())
	assert.Equal(t,
		`resource "42" already exists; try another id`,
		(&ErrAlreadyExists{Value: "42", Message: "try another id"}).Error())
	assert.Equal(t,
		`value "[]" is invalid for field "definition"; must be an object`,
		(&ErrInvalidArgument{Name: "definition", Value: "[]", Message: "must be an object"}).Error())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(errors.WithStack(&ErrNotFound{Value: "42"})))
	assert.False(t, IsNotFound(errors.New("foo")))
	assert.False(t, IsNotFound(nil))
}
