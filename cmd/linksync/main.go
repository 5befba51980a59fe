package main

import (
	"fmt"
	"os"

	"github.com/Ning0612/linksync/internal/cli"
	"github.com/Ning0612/linksync/internal/logger"
)

func main() {
	rootCmd := cli.NewRootCmd()
	err := rootCmd.Execute()
	logger.Shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
