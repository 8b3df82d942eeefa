// Package archive loads the client package (package.nw, a zip file) into memory
// once at startup and exposes read-only lookup of its entries by relative path.
// The router depends on this package to decide whether a request is an asset
// or an API call, and uses the archive modification time as the Last-Modified
// value for conditional GETs. Nothing here writes back to disk.
package archive
