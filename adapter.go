package authcore

import (
	"context"
	"errors"
	"time"
)

// Adapter sentinel errors. Adapters must return these (possibly wrapped)
// so the engine can translate persistence outcomes into domain errors;
// in particular a uniqueness violation on email surfaces as
// EMAIL_ALREADY_EXISTS rather than crashing the request.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Adapter is the persistence contract. The engine only issues semantic
// operations — never a query language — and rehydrates what each request
// needs rather than holding live references across requests.
//
// Implementations must be safe for concurrent use and must enforce email
// uniqueness themselves (the engine has no cross-request locking).
type Adapter interface {
	// CreateUser atomically persists a user and its credential.
	// Returns ErrDuplicateEmail when the normalized email is taken.
	CreateUser(ctx context.Context, user *User, cred *Credential) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	// DeleteUser cascades: credential, sessions, and tokens go first,
	// then the user row.
	DeleteUser(ctx context.Context, id string) error

	CredentialByUser(ctx context.Context, userID string) (*Credential, error)
	UpdateCredential(ctx context.Context, cred *Credential) error

	CreateSession(ctx context.Context, sess *Session) error
	SessionByID(ctx context.Context, id string) (*Session, error)
	SessionsByUser(ctx context.Context, userID string) ([]*Session, error)
	UpdateSession(ctx context.Context, sess *Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error

	CreateToken(ctx context.Context, tok *Token) error
	// ConsumeToken validates (unexpired, unused) and marks the token
	// used in one atomic step, preventing replay under concurrent
	// consumption. Invalid, expired, used, and unknown tokens all
	// return ErrNotFound.
	ConsumeToken(ctx context.Context, hash string, typ TokenType, now time.Time) (*Token, error)
	DeleteTokensByUser(ctx context.Context, userID string, typ TokenType) error
}
