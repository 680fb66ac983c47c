package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/surgepay/core/user"
)

const tokenPrefix = "token"

type tokenStore struct {
	client redis.Cmdable
	kind   string
}

var _ user.TokenStore = (*tokenStore)(nil) // interface compliance check

// NewTokenStore returns a user.TokenStore keeping tokens of the given kind under
// `surgepay:token:<kind>:<token>`.
func NewTokenStore(client redis.Cmdable, kind string) user.TokenStore {
	return &tokenStore{client: client, kind: kind}
}

func (ts *tokenStore) key(token string) string {
	return Key(tokenPrefix, ts.kind, token)
}

func (ts *tokenStore) SaveToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := ts.client.Set(ctx, ts.key(token), userID, ttl).Err(); err != nil {
		return errors.Wrap(err, "saving token")
	}
	return nil
}

func (ts *tokenStore) GetToken(ctx context.Context, token string) (string, error) {
	uid, err := ts.client.Get(ctx, ts.key(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", user.ErrTokenNotFound
		}
		return "", errors.Wrap(err, "getting token")
	}
	return uid, nil
}

func (ts *tokenStore) ConsumeToken(ctx context.Context, token string) (string, error) {
	uid, err := ts.client.GetDel(ctx, ts.key(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", user.ErrTokenNotFound
		}
		return "", errors.Wrap(err, "consuming token")
	}
	return uid, nil
}
