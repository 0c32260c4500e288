// Package server exposes the coordinator over HTTP: the session API, the
// websocket subscription endpoint, the relay reply callback, and the
// observability endpoints. Authentication happens upstream; callers identify
// themselves via the X-User-ID header.
package server
