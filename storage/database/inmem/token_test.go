package inmemdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/surgepay/core/user"
)

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	db := Open()
	verify := NewTokenStore(db, "verify")
	other := NewTokenStore(db, "other")

	require.NoError(t, verify.SaveToken(ctx, "tok", "uid-1", time.Hour))

	_, err := other.GetToken(ctx, "tok")
	assert.Equal(t, user.ErrTokenNotFound, err, "kinds are isolated")

	uid, err := verify.GetToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	uid, err = verify.ConsumeToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	_, err = verify.ConsumeToken(ctx, "tok")
	assert.Equal(t, user.ErrTokenNotFound, err)
}

func TestTokenStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(Open(), "verify")
	require.NoError(t, store.SaveToken(ctx, "tok", "uid-1", time.Hour))

	nowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
	defer func() { nowFunc = time.Now }()

	_, err := store.GetToken(ctx, "tok")
	assert.Equal(t, user.ErrTokenNotFound, err)
}

func TestTokenStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(Open(), "verify")
	require.NoError(t, store.SaveToken(ctx, "once", "uid-1", time.Hour))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ConsumeToken(ctx, "once"); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}
