package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/accessdesk/accessdesk/internal/shared"
)

const refreshKeyPrefix = "accessdesk:refresh:"

// RefreshStore persists opaque, single-use refresh tokens.
type RefreshStore interface {
	Issue(ctx context.Context, userID int64) (string, time.Time, error)
	Consume(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, userID int64, token string) error
	RevokeUser(ctx context.Context, userID int64) error
}

// RedisRefreshStore keeps refresh tokens in Redis with a TTL. Each user has a
// set of outstanding tokens so all of them can be revoked at once.
type RedisRefreshStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisRefreshStore constructs a RedisRefreshStore.
func NewRedisRefreshStore(client *redis.Client, ttl time.Duration) *RedisRefreshStore {
	return &RedisRefreshStore{client: client, ttl: ttl, now: time.Now}
}

func tokenKey(token string) string { return refreshKeyPrefix + token }

func userKey(userID int64) string { return refreshKeyPrefix + "user:" + strconv.FormatInt(userID, 10) }

// Issue creates a refresh token for the user.
func (s *RedisRefreshStore) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	token := uuid.NewString()
	expiresAt := s.now().UTC().Add(s.ttl).Truncate(time.Second)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(token), userID, s.ttl)
		pipe.SAdd(ctx, userKey(userID), token)
		pipe.Expire(ctx, userKey(userID), s.ttl)
		return nil
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: store refresh token: %w", err)
	}
	return token, expiresAt, nil
}

// Consume atomically redeems a refresh token and returns its user. A token
// can be redeemed once.
func (s *RedisRefreshStore) Consume(ctx context.Context, token string) (int64, error) {
	if _, err := uuid.Parse(token); err != nil {
		return 0, fmt.Errorf("%w: malformed refresh token", shared.ErrTokenInvalid)
	}
	raw, err := s.client.GetDel(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("%w: unknown or used refresh token", shared.ErrTokenInvalid)
		}
		return 0, fmt.Errorf("auth: consume refresh token: %w", err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt refresh token", shared.ErrTokenInvalid)
	}
	if err := s.client.SRem(ctx, userKey(userID), token).Err(); err != nil {
		return 0, fmt.Errorf("auth: consume refresh token: %w", err)
	}
	return userID, nil
}

// revokeOwned deletes the token only while it still belongs to the user.
var revokeOwned = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[2])
return 1
`)

// Revoke deletes a refresh token owned by the user. Unknown tokens and tokens
// issued to someone else are ignored.
func (s *RedisRefreshStore) Revoke(ctx context.Context, userID int64, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return nil
	}
	keys := []string{tokenKey(token), userKey(userID)}
	if err := revokeOwned.Run(ctx, s.client, keys, strconv.FormatInt(userID, 10), token).Err(); err != nil {
		return fmt.Errorf("auth: revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUser deletes every outstanding refresh token of the user.
func (s *RedisRefreshStore) RevokeUser(ctx context.Context, userID int64) error {
	tokens, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("auth: list refresh tokens: %w", err)
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, tokenKey(t))
	}
	keys = append(keys, userKey(userID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("auth: revoke refresh tokens: %w", err)
	}
	return nil
}

var _ RefreshStore = (*RedisRefreshStore)(nil)
