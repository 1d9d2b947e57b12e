// Command iamcore runs the identity service.
package main

import (
	"os"

	"github.com/aussiebroadwan/iamcore/internal/auth/app"
)

// Set at build time via -ldflags "-X main.version=...".
var version = ""

func main() {
	if version != "" {
		app.BuildVersion = version
	}
	cmd := NewRootCmd()
	cmd.Version = app.BuildVersion

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
