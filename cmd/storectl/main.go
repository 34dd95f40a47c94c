// Command storectl inspects and maintains the local store from the shell.
package main

import (
	"os"

	"github.com/safar/safar/backend/go-services/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
