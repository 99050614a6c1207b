// Package websocket streams batch progress to browser clients. The Hub
// implements batch.ProgressSink; Handler upgrades /ws requests.
package websocket
