package main

import (
	"os"

	"sentiment-sales-risk/internal/logger"
)

var version = "dev"

func main() {
	defer logger.Sync()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
