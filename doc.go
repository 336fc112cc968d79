// Package cacheplugin implements the cache plugin of a key-database pipeline.
// A Handle resolves a per-user cache directory through a resolver module and
// opens a storage backend there; its get, set and error handlers delegate to
// that backend and a fixed contract describes the plugin to the host.
package cacheplugin
