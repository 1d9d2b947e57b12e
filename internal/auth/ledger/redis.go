package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// rotateScript swaps KEYS[1] from ARGV[1] to ARGV[2] with a PX of ARGV[3]
// and returns 1. On any mismatch it deletes the key and returns 0.
var rotateScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and current == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
  return 1
end
redis.call('DEL', KEYS[1])
return 0
`)

// Redis keeps ledger entries as plain string keys with a PX expiry.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis uses keys of the form <prefix>:refresh:<userID>.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "iam"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(userID int64) string {
	return r.prefix + ":refresh:" + strconv.FormatInt(userID, 10)
}

func (r *Redis) Insert(ctx context.Context, userID int64, tokenID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(userID), tokenID, ttl).Err(); err != nil {
		return oops.Code("LEDGER_REDIS_FAILURE").With("user_id", userID).Wrap(err)
	}
	return nil
}

func (r *Redis) Validate(ctx context.Context, userID int64, tokenID string) (Result, error) {
	if malformed(tokenID) {
		return Invalid, nil
	}
	current, err := r.client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return Reused, nil
	}
	if err != nil {
		return Invalid, oops.Code("LEDGER_REDIS_FAILURE").With("user_id", userID).Wrap(err)
	}
	if current != tokenID {
		return Reused, nil
	}
	return Valid, nil
}

func (r *Redis) Rotate(ctx context.Context, userID int64, oldID, newID string, ttl time.Duration) (Result, error) {
	if malformed(oldID) {
		return Invalid, nil
	}
	px := max(ttl.Milliseconds(), 1)
	matched, err := rotateScript.Run(ctx, r.client, []string{r.key(userID)}, oldID, newID, px).Int()
	if err != nil {
		return Invalid, oops.Code("LEDGER_REDIS_FAILURE").With("user_id", userID).Wrap(err)
	}
	if matched != 1 {
		return Reused, nil
	}
	return Valid, nil
}

func (r *Redis) Invalidate(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return oops.Code("LEDGER_REDIS_FAILURE").With("user_id", userID).Wrap(err)
	}
	return nil
}
