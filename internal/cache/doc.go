// Package cache holds query results keyed by the query's cache key.
//
// Concurrent requests for a missing key share one fetch: the first caller
// runs the factory and everyone waiting on the key gets its result. A
// failed fetch stores nothing.
package cache
