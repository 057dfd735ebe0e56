package main

import (
	"os"

	"github.com/G-Research/jobdash/cmd/jobdash/cmd"
	"github.com/G-Research/jobdash/internal/common"
)

func main() {
	common.ConfigureCommandLineLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
