// Package ratelimit implements fixed-window request throttling keyed by
// endpoint and caller identifier.
//
// The counter store is injected: [MemoryStore] serves single-process
// deployments and tests, [RedisStore] shares windows across instances.
// Fixed-window semantics: the first hit in a window starts it, later hits
// increment, and a hit after the window has elapsed resets the counter
// instead of blocking.
package ratelimit
