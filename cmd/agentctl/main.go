package main

import (
	"os"

	"github.com/contractor-agent/golang_services/internal/agentctl"
)

var version = "dev"

func main() {
	if err := agentctl.Execute(version); err != nil {
		os.Exit(1)
	}
}
