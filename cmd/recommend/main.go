package main

// Generate a staffing recommendation from an assessment file:
//   go run ./cmd/recommend generate --input assessment.json --size small

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
