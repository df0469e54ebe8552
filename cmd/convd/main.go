package main

import (
	"fmt"
	"os"

	"video-conversion/cmd/convd/cmd"
	"video-conversion/internal/config"
)

func main() {
	// a missing .env is fine; a broken one is worth a warning
	if _, err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration warning: %v\n", err)
	}

	cmd.Execute()
}
