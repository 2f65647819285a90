// Package app assembles the application: configuration, logging,
// telemetry, the housing service stack and the HTTP server with its
// routes and middleware chain.
package app
