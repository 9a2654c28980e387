package main

import (
	"fmt"
	"os"

	"github.com/soyeahso/honeypot/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	// Rebuild-and-restart loop for local development.
	if os.Getenv("HONEYPOT_DEV_AUTORESTART") == "1" {
		go autorestart.RestartOnChange()
	}

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
