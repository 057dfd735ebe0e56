package view

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const JobSpecIdParam = "jobSpecId"

// Params are the navigation parameters of a view, taken from the matched route.
type Params struct {
	JobSpecId string
}

func ParamsFromRequest(r *http.Request) Params {
	return Params{JobSpecId: chi.URLParam(r, JobSpecIdParam)}
}
