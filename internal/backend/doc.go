// Package backend resolves which game server a request is meant for. In
// path-embedded mode the origin is carried in the URL as /(<origin>)<endpoint>;
// in fixed mode a single configured origin serves every path. The package also
// owns the small helpers that depend only on the backend origin: the official
// /season and /ptr prefix, the auth returnUrl, the proxy target with its
// internal override, and the official-like version probe.
package backend
