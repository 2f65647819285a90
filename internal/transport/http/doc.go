// Package http contains the HTTP transport layer: chi routers and
// handlers that translate requests into housing service calls and render
// JSON responses. Handlers hold no business logic; parsing, aggregation
// and persistence live behind HousingServiceInterface.
package http
