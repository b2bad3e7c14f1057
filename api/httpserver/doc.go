// Package httpserver provides the HTTP server shell for the CryptoSanta API:
// chi router with standard middleware, health and drain endpoints for load
// balancers, optional pprof, a metrics side-car, and graceful shutdown.
package httpserver
