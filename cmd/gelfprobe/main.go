package main

import (
	"os"

	"github.com/G-Research/gelfprobe/cmd/gelfprobe/cmd"
	"github.com/G-Research/gelfprobe/internal/common/logging"
)

// Config is handled by cmd/root.go
func main() {
	logging.ConfigureCliLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
