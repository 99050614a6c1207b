// Package app wires configuration, services and transport into a running
// HTTP server and owns its lifecycle.
//
// Initialization order: resolve paths and analysis settings, ensure the
// data directories, create the websocket hub, the analysis and health
// services and the batch manager, then build the chi router and the
// http.Server. Serve blocks until its context ends and then shuts the
// server, any running batch and the hub down in that order.
//
// The caller owns logging and telemetry setup; New receives the logger and
// the OpenTelemetry providers already initialised.
package app
