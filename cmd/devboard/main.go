package main

import (
	"os"

	"github.com/okian/standings/cmd/devboard/cmd"
	"github.com/okian/standings/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cmd.Execute()
}
