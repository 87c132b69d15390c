// Command lakitu-stream consumes the items table stream and logs changes.
package main

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/lakitu/internal/config"
	"github.com/jacentio/lakitu/internal/logging"
	"github.com/jacentio/lakitu/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	lambda.Start(stream.NewHandler(logger).HandleItemChanges)
}
