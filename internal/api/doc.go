// Package api implements the optional HTTP status server for WriterBot.
//
// Endpoints, all under /api/v1:
//
//	GET  /health           database and component health, 200 or 503
//	GET  /metrics          runtime, connection pool, and bot counters
//	GET  /commands         registered chat commands
//	GET  /install          applied and pending install files
//	POST /prefixes/flush   drop the guild prefix cache
//
// Every request gets an X-Request-ID (the client's, or a new UUID), is
// logged, and is protected by panic recovery.
//
// The listener binds to 127.0.0.1 by default and has no authentication.
// Expose it only on a trusted network.
package api
