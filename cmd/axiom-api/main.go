// Package main is the entry point for the AxiomCore API server.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/axiomcore/internal/apiserver"
)

func main() {
	apiserver.NewApp().Run()
}
