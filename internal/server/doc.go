// Package server wires the echo service together and owns its lifecycle.
//
// NewRouter builds the gin engine: recovery, request IDs, request logging,
// optional CORS and rate limiting, then the route table from internal/api
// mounted on every method and path. Server binds the listener, serves
// requests concurrently and drains them on shutdown:
//
//	srv, err := server.NewFromConfig(cfg, logger)
//	if err != nil {
//		return err
//	}
//	return srv.Run(ctx)
//
// Run blocks until SIGINT/SIGTERM, then stops accepting connections and waits
// for in-flight requests, bounded by server.drain_timeout.
package server
