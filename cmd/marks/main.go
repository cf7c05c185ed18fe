package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/heimdex/heimdex-marks/internal/cli"
)

func main() {
	if err := run(); err != nil {
		if cli.IsUsageError(err) {
			fmt.Fprintf(os.Stderr, "usage error: %v\n", err)
			os.Exit(2)
		}
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	return cli.Execute(context.Background())
}
