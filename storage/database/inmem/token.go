package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/surgepay/core/user"
)

var nowFunc = time.Now // mockable

type tokenStore struct {
	db   *tokenTable
	kind string
}

var _ user.TokenStore = (*tokenStore)(nil) // interface compliance check

func NewTokenStore(db *DB, kind string) user.TokenStore {
	return &tokenStore{db: db.token, kind: kind}
}

func (ts *tokenStore) tokens() map[string]tokenRecord {
	tokens, ok := ts.db.table[ts.kind]
	if !ok {
		tokens = make(map[string]tokenRecord)
		ts.db.table[ts.kind] = tokens
	}
	return tokens
}

func (ts *tokenStore) SaveToken(_ context.Context, token, userID string, ttl time.Duration) error {
	ts.db.Lock()
	defer ts.db.Unlock()
	ts.tokens()[token] = tokenRecord{userID: userID, expiresAt: nowFunc().Add(ttl)}
	return nil
}

func (ts *tokenStore) GetToken(_ context.Context, token string) (string, error) {
	ts.db.Lock()
	defer ts.db.Unlock()
	return ts.lookup(token, false)
}

func (ts *tokenStore) ConsumeToken(_ context.Context, token string) (string, error) {
	ts.db.Lock()
	defer ts.db.Unlock()
	return ts.lookup(token, true)
}

func (ts *tokenStore) lookup(token string, consume bool) (string, error) {
	tokens := ts.tokens()
	rec, ok := tokens[token]
	if !ok {
		return "", user.ErrTokenNotFound
	}
	if !nowFunc().Before(rec.expiresAt) {
		delete(tokens, token)
		return "", user.ErrTokenNotFound
	}
	if consume {
		delete(tokens, token)
	}
	return rec.userID, nil
}
