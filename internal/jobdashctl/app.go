package jobdashctl

import (
	"io"
	"os"

	"github.com/G-Research/jobdash/pkg/client"
)

// App is the jobdash command line client.
type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out receives everything a command prints. Tests replace it to inspect the output.
	Out io.Writer
}

// Params holds how commands reach the jobdash API. It is filled from flags and the client config file.
type Params struct {
	ApiConnectionDetails *client.ApiConnectionDetails
}

// New returns an App that writes to standard output.
func New() *App {
	return &App{
		Params: &Params{},
		Out:    os.Stdout,
	}
}

func (a *App) connectionDetails() *client.ApiConnectionDetails {
	return a.Params.ApiConnectionDetails
}
