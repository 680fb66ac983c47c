package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrTokenNotFound = errors.New("token not found")

// TokenStore keeps verification tokens issued to users.
// A token maps to the ID of the user it was issued to and expires after its TTL.
type TokenStore interface {
	SaveToken(ctx context.Context, token, userID string, ttl time.Duration) error
	// GetToken returns the user ID of a live token without consuming it.
	GetToken(ctx context.Context, token string) (string, error)
	// ConsumeToken atomically returns and deletes a live token.
	// Of two concurrent calls for the same token, at most one succeeds.
	ConsumeToken(ctx context.Context, token string) (string, error)
}
