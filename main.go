package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lambertjamesd/gcadpcm/logger"
	"go.uber.org/zap"
)

func main() {
	// replaced once the config is loaded
	if err := logger.Init("info", "development"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err := execute(context.Background(), os.Args[1:])

	if err != nil {
		logger.Log.Error("failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Sync()
}
