// Package authcore is an embeddable, framework-independent authentication
// engine: given a canonical request it registers or authenticates a user,
// issues and validates cookie-bound sessions, enforces rate limits and
// account lockout, manages email-verification and password-reset tokens,
// and dispatches domain events to registered listeners.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the [Adapter] persistence contract, and the [Response] session-store
// instruction contract. Host adapters translate native request/response
// objects into [request.Raw] and out of [Response]; the engine never reads
// or writes cookies, headers, or transport sessions itself.
//
// # What this package must NOT do
//
//   - Issue raw queries — persistence is semantic CRUD on [Adapter].
//   - Touch transport concerns (TLS, cookie encoding, middleware wiring).
//   - Leak internal error detail to callers; unexpected failures surface
//     as INTERNAL_ERROR with detail confined to logs and the OnError hook.
package authcore
