// Package token provides the engine's credential artifacts: opaque
// single-use tokens for email verification and password reset, the signed
// session cookie codec, and email normalization.
//
// Opaque tokens are returned to the caller exactly once; only their SHA-256
// digest is ever handed to the persistence adapter.
package token
