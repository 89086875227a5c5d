package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/activitytracker/tracker-api/internal/core/domain"
)

const defaultPrefix = "refresh:"

// Layout under the prefix:
//
//	t:<token>  hash {id, user_id, expires_at, created_at}, expires at expires_at
//	i:<id>     hash {token, user_id}, removed only by the scripts below
//	u:<user>   set of ids
//	exp        sorted set of ids scored by expires_at (unix ms)
//
// Scripts derive keys from the prefix, so all keys must live on one node.
const scriptPrelude = `
local function remove(p, id)
  local iKey = p .. "i:" .. id
  local f = redis.call("HMGET", iKey, "token", "user_id")
  if not f[1] then return 0 end
  redis.call("DEL", iKey, p .. "t:" .. f[1])
  redis.call("ZREM", p .. "exp", id)
  if f[2] then redis.call("SREM", p .. "u:" .. f[2], id) end
  return 1
end
local function insert(p, id, token, owner, exp, created)
  local tKey = p .. "t:" .. token
  redis.call("HSET", tKey, "id", id, "user_id", owner, "expires_at", exp, "created_at", created)
  redis.call("PEXPIREAT", tKey, exp)
  redis.call("HSET", p .. "i:" .. id, "token", token, "user_id", owner)
  redis.call("SADD", p .. "u:" .. owner, id)
  redis.call("ZADD", p .. "exp", exp, id)
end
`

var (
	insertScript = redis.NewScript(scriptPrelude + `
if redis.call("EXISTS", ARGV[1] .. "t:" .. ARGV[3]) == 1 then return 0 end
insert(ARGV[1], ARGV[2], ARGV[3], ARGV[4], ARGV[5], ARGV[6])
return 1
`)

	rotateScript = redis.NewScript(scriptPrelude + `
if redis.call("EXISTS", ARGV[1] .. "t:" .. ARGV[4]) == 1 then return -2 end
if remove(ARGV[1], ARGV[2]) == 0 then return -1 end
insert(ARGV[1], ARGV[3], ARGV[4], ARGV[5], ARGV[6], ARGV[7])
return 1
`)

	deleteScript = redis.NewScript(scriptPrelude + `
return remove(ARGV[1], ARGV[2])
`)

	deleteUserScript = redis.NewScript(scriptPrelude + `
local uKey = ARGV[1] .. "u:" .. ARGV[2]
local n = 0
for _, id in ipairs(redis.call("SMEMBERS", uKey)) do
  n = n + remove(ARGV[1], id)
end
redis.call("DEL", uKey)
return n
`)

	deleteExpiredScript = redis.NewScript(scriptPrelude + `
local n = 0
for _, id in ipairs(redis.call("ZRANGEBYSCORE", ARGV[1] .. "exp", "-inf", ARGV[2])) do
  n = n + remove(ARGV[1], id)
end
return n
`)
)

// RefreshTokenStore implements ports.RefreshTokenStore on Redis. Every
// mutation is a single Lua script, so rotation is atomic.
type RefreshTokenStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRefreshTokenStore(client redis.UniversalClient, prefix string) *RefreshTokenStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RefreshTokenStore{client: client, prefix: prefix}
}

func (s *RefreshTokenStore) Insert(ctx context.Context, t *domain.RefreshToken) error {
	res, err := insertScript.Run(ctx, s.client, nil,
		s.prefix, t.ID, t.Token, t.UserID, t.ExpiresAt.UnixMilli(), t.CreatedAt.UnixMilli()).Int64()
	if err != nil {
		return unavailable("insert refresh token", err)
	}
	if res == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (s *RefreshTokenStore) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+"t:"+token).Result()
	if err != nil {
		return nil, unavailable("find refresh token", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrRefreshTokenNotFound
	}
	expMs, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode refresh token expiry: %w", err)
	}
	createdMs, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	return &domain.RefreshToken{
		ID:        fields["id"],
		Token:     token,
		UserID:    fields["user_id"],
		ExpiresAt: time.UnixMilli(expMs).UTC(),
		CreatedAt: time.UnixMilli(createdMs).UTC(),
	}, nil
}

func (s *RefreshTokenStore) DeleteByID(ctx context.Context, id string) error {
	n, err := deleteScript.Run(ctx, s.client, nil, s.prefix, id).Int64()
	if err != nil {
		return unavailable("delete refresh token", err)
	}
	if n == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	return nil
}

func (s *RefreshTokenStore) Rotate(ctx context.Context, consumedID string, next *domain.RefreshToken) error {
	res, err := rotateScript.Run(ctx, s.client, nil,
		s.prefix, consumedID, next.ID, next.Token, next.UserID,
		next.ExpiresAt.UnixMilli(), next.CreatedAt.UnixMilli()).Int64()
	if err != nil {
		return unavailable("rotate refresh token", err)
	}
	switch res {
	case -1:
		return domain.ErrRefreshTokenNotFound
	case -2:
		return domain.ErrConflict
	}
	return nil
}

func (s *RefreshTokenStore) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	n, err := deleteUserScript.Run(ctx, s.client, nil, s.prefix, userID).Int64()
	if err != nil {
		return 0, unavailable("delete user refresh tokens", err)
	}
	return n, nil
}

func (s *RefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := deleteExpiredScript.Run(ctx, s.client, nil, s.prefix, now.UnixMilli()).Int64()
	if err != nil {
		return 0, unavailable("delete expired refresh tokens", err)
	}
	return n, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrUnavailable, op, err)
}
