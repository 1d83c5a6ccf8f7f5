// Package main is the entry point for the AxiomCore operations tooling.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/axiomcore/internal/monitor"
)

func main() {
	monitor.NewApp().Run()
}
