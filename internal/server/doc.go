// Package server hosts the Fiber application that serves the client package,
// plus the net/http front door that splits WebSocket upgrades from ordinary
// requests. The asset pipeline (static files, landing page, backend selection,
// archive lookup, conditional GET, rewrite) lives here; anything the archive
// cannot answer is handed to the injected ProxyHandler, so the proxy package
// depends on server and never the other way round.
package server
