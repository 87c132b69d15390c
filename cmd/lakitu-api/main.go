// Command lakitu-api is the API Gateway Lambda for the item API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/jacentio/lakitu/apigw"
	"github.com/jacentio/lakitu/internal/backend"
	"github.com/jacentio/lakitu/internal/config"
	"github.com/jacentio/lakitu/internal/logging"
	"github.com/jacentio/lakitu/router"
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

	b, err := backend.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to open item store", zap.Error(err))
	}
	defer func() { _ = b.Close() }()

	r := router.New(b.Store, router.Config{
		BasePath:       cfg.BasePath,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	lambda.Start(apigw.NewHandler(r).Handle)
}
