// Package redisadapter persists engine state in Redis, for deployments
// where several processes share one authentication backend.
//
// Key layout under the configured prefix (default "ac"):
//
//	ac:user:<id>          user JSON
//	ac:email:<email>      normalized email -> user ID
//	ac:cred:<userID>      credential JSON
//	ac:sess:<id>          session JSON, TTL = session expiry
//	ac:usess:<userID>     set of session IDs
//	ac:tok:<type>:<hash>  token JSON, TTL = token expiry
//	ac:utok:<userID>:<type>  set of token hashes
package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/authcore-dev/authcore"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures so callers can
// distinguish an outage from a missing record.
var ErrRedisUnavailable = errors.New("redis unavailable")

// consumeTokenLua deletes and returns the token blob in one step, so two
// concurrent consumers of the same token cannot both win.
const consumeTokenScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return false
end
redis.call("DEL", KEYS[1])
return data
`

var consumeTokenLua = redis.NewScript(consumeTokenScript)

// Store implements [authcore.Adapter] on a Redis client.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New wraps client in a Store. prefix namespaces every key and defaults
// to "ac".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ac"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) userKey(id string) string      { return s.prefix + ":user:" + id }
func (s *Store) emailKey(email string) string  { return s.prefix + ":email:" + email }
func (s *Store) credKey(userID string) string  { return s.prefix + ":cred:" + userID }
func (s *Store) sessionKey(id string) string   { return s.prefix + ":sess:" + id }
func (s *Store) userSessKey(uid string) string { return s.prefix + ":usess:" + uid }

func (s *Store) tokenKey(typ authcore.TokenType, hash string) string {
	return s.prefix + ":tok:" + string(typ) + ":" + hash
}

func (s *Store) userTokKey(uid string, typ authcore.TokenType) string {
	return s.prefix + ":utok:" + uid + ":" + string(typ)
}

func wrapErr(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

func (s *Store) CreateUser(ctx context.Context, user *authcore.User, cred *authcore.Credential) error {
	// The email index key is the uniqueness arbiter: SETNX either claims
	// the address or reports it taken.
	claimed, err := s.redis.SetNX(ctx, s.emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return wrapErr(err)
	}
	if !claimed {
		return authcore.ErrDuplicateEmail
	}

	userData, err := json.Marshal(user)
	if err != nil {
		return err
	}
	credData, err := json.Marshal(cred)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.userKey(user.ID), userData, 0)
		pipe.Set(ctx, s.credKey(cred.UserID), credData, 0)
		return nil
	})
	if err != nil {
		// Release the claim so a retry is not stuck behind a phantom
		// registration.
		_ = s.redis.Del(ctx, s.emailKey(user.Email)).Err()
		return wrapErr(err)
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*authcore.User, error) {
	return s.getUser(ctx, s.userKey(id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrNotFound
		}
		return nil, wrapErr(err)
	}
	return s.getUser(ctx, s.userKey(id))
}

func (s *Store) getUser(ctx context.Context, key string) (*authcore.User, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrNotFound
		}
		return nil, wrapErr(err)
	}

	var user authcore.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *authcore.User) error {
	prev, err := s.UserByID(ctx, user.ID)
	if err != nil {
		return err
	}

	if prev.Email != user.Email {
		claimed, err := s.redis.SetNX(ctx, s.emailKey(user.Email), user.ID, 0).Result()
		if err != nil {
			return wrapErr(err)
		}
		if !claimed {
			return authcore.ErrDuplicateEmail
		}
		if err := s.redis.Del(ctx, s.emailKey(prev.Email)).Err(); err != nil {
			return wrapErr(err)
		}
	}

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.userKey(user.ID), data, 0).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.DeleteSessionsByUser(ctx, id); err != nil {
		return err
	}
	for _, typ := range []authcore.TokenType{authcore.TokenEmailVerification, authcore.TokenPasswordReset} {
		if err := s.DeleteTokensByUser(ctx, id, typ); err != nil {
			return err
		}
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.emailKey(user.Email))
		pipe.Del(ctx, s.credKey(id))
		pipe.Del(ctx, s.userKey(id))
		return nil
	})
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *Store) CredentialByUser(ctx context.Context, userID string) (*authcore.Credential, error) {
	data, err := s.redis.Get(ctx, s.credKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrNotFound
		}
		return nil, wrapErr(err)
	}

	var cred authcore.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *Store) UpdateCredential(ctx context.Context, cred *authcore.Credential) error {
	exists, err := s.redis.Exists(ctx, s.credKey(cred.UserID)).Result()
	if err != nil {
		return wrapErr(err)
	}
	if exists == 0 {
		return authcore.ErrNotFound
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.credKey(cred.UserID), data, 0).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess *authcore.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.userSessKey(sess.UserID), sess.ID)
		return nil
	})
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *Store) SessionByID(ctx context.Context, id string) (*authcore.Session, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrNotFound
		}
		return nil, wrapErr(err)
	}

	var sess authcore.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) SessionsByUser(ctx context.Context, userID string) ([]*authcore.Session, error) {
	ids, err := s.redis.SMembers(ctx, s.userSessKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, wrapErr(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrapErr(err)
	}

	sessions := make([]*authcore.Session, 0, len(ids))
	var stale []interface{}
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				// Expired row still in the index set.
				stale = append(stale, ids[i])
				continue
			}
			return nil, wrapErr(cmdErr)
		}

		var sess authcore.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return nil, err
		}
		sessions = append(sessions, &sess)
	}

	if len(stale) > 0 {
		_ = s.redis.SRem(ctx, s.userSessKey(userID), stale...).Err()
	}
	return sessions, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *authcore.Session) error {
	exists, err := s.redis.Exists(ctx, s.sessionKey(sess.ID)).Result()
	if err != nil {
		return wrapErr(err)
	}
	if exists == 0 {
		return authcore.ErrNotFound
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.redis.Set(ctx, s.sessionKey(sess.ID), data, ttl).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	sess, err := s.SessionByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(id))
		pipe.SRem(ctx, s.userSessKey(sess.UserID), id)
		return nil
	})
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *Store) DeleteSessionsByUser(ctx context.Context, userID string) error {
	setKey := s.userSessKey(userID)
	ids, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return wrapErr(err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.sessionKey(id))
	}
	keys = append(keys, setKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *Store) CreateToken(ctx context.Context, tok *authcore.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}

	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(tok.Type, tok.Hash), data, ttl)
		pipe.SAdd(ctx, s.userTokKey(tok.UserID, tok.Type), tok.Hash)
		return nil
	})
	if err != nil {
		return wrapErr(err)
	}
	return nil
}

func (s *Store) ConsumeToken(ctx context.Context, hash string, typ authcore.TokenType, now time.Time) (*authcore.Token, error) {
	result, err := consumeTokenLua.Run(ctx, s.redis, []string{s.tokenKey(typ, hash)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Missing, expired (TTL fired), or already consumed.
			return nil, authcore.ErrNotFound
		}
		return nil, wrapErr(err)
	}

	var blob []byte
	switch v := result.(type) {
	case string:
		blob = []byte(v)
	case []byte:
		blob = v
	default:
		return nil, fmt.Errorf("%w: invalid consume script response", ErrRedisUnavailable)
	}

	var tok authcore.Token
	if err := json.Unmarshal(blob, &tok); err != nil {
		return nil, err
	}
	if !now.Before(tok.ExpiresAt) {
		return nil, authcore.ErrNotFound
	}

	used := now
	tok.UsedAt = &used
	_ = s.redis.SRem(ctx, s.userTokKey(tok.UserID, tok.Type), hash).Err()
	return &tok, nil
}

func (s *Store) DeleteTokensByUser(ctx context.Context, userID string, typ authcore.TokenType) error {
	setKey := s.userTokKey(userID, typ)
	hashes, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return wrapErr(err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, s.tokenKey(typ, hash))
	}
	keys = append(keys, setKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return wrapErr(err)
	}
	return nil
}
