// Command groundwork ingests documents and answers questions from them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/groundwork/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.SetServiceBuilder(buildServices)

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
