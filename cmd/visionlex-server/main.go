package main

import (
	"context"
	"fmt"
	"os"

	"visionlex-server-go/internal/bootstrap"
	"visionlex-server-go/internal/platform/logging"
)

func main() {
	fmt.Printf("[%s] [INFO] [BOOT] starting visionlex-server...\n", logging.Timestamp())
	if err := bootstrap.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "visionlex-server failed: %v\n", err)
		os.Exit(1)
	}
}
