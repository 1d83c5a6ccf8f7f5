// Package server provides the lifecycle controller that brings an HTTP
// listener up and drains it on termination signals.
package server

import "context"

// Lifecycle defines the lifecycle interface for servers.
type Lifecycle interface {
	// Start binds and starts serving. It returns once the server is accepting
	// connections or binding has failed.
	Start(ctx context.Context) error
	// Stop stops accepting new connections and waits for in-flight requests.
	// It returns early with ctx.Err() when ctx is cancelled.
	Stop(ctx context.Context) error
}

// Listener is the network listener driven by a Controller.
type Listener interface {
	Lifecycle
	// Addr returns the bound address, valid after a successful Start.
	Addr() string
	// IsAccepting reports whether the listener accepts new connections.
	IsAccepting() bool
}
