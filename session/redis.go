package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each session under session:<token> and indexes the
// tokens of every principal in a set so they can be invalidated together.
type RedisRepository struct {
	rdb redis.Cmdable
}

func NewRedisRepository(rdb redis.Cmdable) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func identitySetKey(kind Kind, identity string) string {
	return fmt.Sprintf("user_sessions:%s:%s", kind, identity)
}

// removeTokenScript removes a token from the identity set and deletes the set
// once it is empty.
const removeTokenScript = `
	local removed = redis.call('SREM', KEYS[1], ARGV[1])
	if removed > 0 then
		local count = redis.call('SCARD', KEYS[1])
		if count == 0 then
			redis.call('DEL', KEYS[1])
		end
	end
	return removed
`

func (r *RedisRepository) Save(ctx context.Context, rec Record) (string, error) {
	token := newToken()
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	ttl := TTL(rec.Kind)
	if err := r.rdb.Set(ctx, sessionKey(token), payload, ttl).Err(); err != nil {
		return "", err
	}
	setKey := identitySetKey(rec.Kind, rec.Identity)
	if err := r.rdb.SAdd(ctx, setKey, token).Err(); err != nil {
		return "", err
	}
	// The index lives as long as the newest session in it.
	if err := r.rdb.Expire(ctx, setKey, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (r *RedisRepository) Load(ctx context.Context, token string) (Record, error) {
	payload, err := r.rdb.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	return rec, nil
}

func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	rec, err := r.Load(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return err
	}
	return r.rdb.Eval(ctx, removeTokenScript, []string{identitySetKey(rec.Kind, rec.Identity)}, token).Err()
}

// InvalidateIdentity deletes all session:<token> keys of the principal and the
// index set itself.
func (r *RedisRepository) InvalidateIdentity(ctx context.Context, kind Kind, identity string) error {
	setKey := identitySetKey(kind, identity)
	tokens, err := r.rdb.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, tok := range tokens {
		keys = append(keys, sessionKey(tok))
	}
	keys = append(keys, setKey)
	return r.rdb.Del(ctx, keys...).Err()
}
