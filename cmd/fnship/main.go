// Where: cli/cmd/fnship/main.go
// What: CLI entrypoint.
// Why: Execute fnship commands with configured dependencies.
package main

import (
	"os"

	"github.com/fnship/fnship/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:], buildDependencies()))
}
