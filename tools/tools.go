//go:build tools

// Package tools pins build-only dependencies so `go mod tidy` doesn't
// drop them: gremlins for mutation testing and benchstat for comparing
// loadtest baselines, neither of which any package imports directly.
package tools

import (
	_ "github.com/go-gremlins/gremlins/cmd/gremlins"
	_ "golang.org/x/perf/cmd/benchstat"
)
