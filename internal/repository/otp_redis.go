package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"aquanova-auth/internal/domain"
)

// redisMarkVerifiedScript marca el registro solo si el indice id->email
// sigue apuntando al registro vigente de ese email.
var redisMarkVerifiedScript = redis.NewScript(`
local email = redis.call("GET", KEYS[1])
if not email then
  return 0
end
local key = ARGV[1] .. email
if redis.call("HGET", key, "id") ~= ARGV[2] then
  return 0
end
redis.call("HSET", key, "verified", "1")
return 1
`)

// RedisOTPStore implementa OTPStore con un hash por email.
// Las claves viven ttl+retention para poder distinguir un codigo expirado de uno inexistente.
type RedisOTPStore struct {
	client    redis.Cmdable
	prefix    string
	retention time.Duration
	now       func() time.Time
}

func NewRedisOTPStore(client redis.Cmdable, retention time.Duration) *RedisOTPStore {
	if retention < 0 {
		retention = 0
	}
	return &RedisOTPStore{
		client:    client,
		prefix:    "otp:",
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *RedisOTPStore) recordKey(email string) string { return s.prefix + "rec:" + email }
func (s *RedisOTPStore) idKey(id string) string        { return s.prefix + "id:" + id }

func (s *RedisOTPStore) Put(ctx context.Context, email, code string, ttl time.Duration) (domain.OTPRecord, error) {
	now := s.now()
	rec := domain.OTPRecord{
		ID:        newOTPID(now),
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	keep := ttl + s.retention
	recKey := s.recordKey(email)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recKey)
		pipe.HSet(ctx, recKey, map[string]any{
			"id":         rec.ID,
			"email":      rec.Email,
			"code":       rec.Code,
			"expires_at": rec.ExpiresAt.Format(time.RFC3339Nano),
			"verified":   "0",
			"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, recKey, keep)
		pipe.Set(ctx, s.idKey(rec.ID), email, keep)
		return nil
	})
	if err != nil {
		return domain.OTPRecord{}, oops.Code("OTP_PUT_FAILED").With("backend", "redis").Wrap(err)
	}
	return rec, nil
}

func (s *RedisOTPStore) FindLatestUnverified(ctx context.Context, email, code string) (domain.OTPRecord, bool, error) {
	return s.find(ctx, email, code, onlyUnverified)
}

func (s *RedisOTPStore) FindLatestVerified(ctx context.Context, email, code string) (domain.OTPRecord, bool, error) {
	return s.find(ctx, email, code, onlyVerified)
}

func (s *RedisOTPStore) FindLatestAny(ctx context.Context, email, code string) (domain.OTPRecord, bool, error) {
	return s.find(ctx, email, code, anyVerified)
}

func (s *RedisOTPStore) find(ctx context.Context, email, code string, filter verifiedFilter) (domain.OTPRecord, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(email)).Result()
	if err != nil {
		return domain.OTPRecord{}, false, oops.Code("OTP_FIND_FAILED").With("backend", "redis").Wrap(err)
	}
	if len(fields) == 0 {
		return domain.OTPRecord{}, false, nil
	}
	rec, err := decodeRedisRecord(fields)
	if err != nil {
		return domain.OTPRecord{}, false, oops.Code("OTP_DECODE_FAILED").With("email", email).Wrap(err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return domain.OTPRecord{}, false, nil
	}
	if !filter.match(rec.Verified) {
		return domain.OTPRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *RedisOTPStore) MarkVerified(ctx context.Context, id string) error {
	err := redisMarkVerifiedScript.Run(ctx, s.client, []string{s.idKey(id)}, s.prefix+"rec:", id).Err()
	if err != nil {
		return oops.Code("OTP_MARK_VERIFIED_FAILED").With("otp_id", id).Wrap(err)
	}
	return nil
}

func (s *RedisOTPStore) DeleteAll(ctx context.Context, email string) error {
	recKey := s.recordKey(email)
	id, err := s.client.HGet(ctx, recKey, "id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return oops.Code("OTP_DELETE_FAILED").With("backend", "redis").Wrap(err)
	}
	keys := []string{recKey}
	if id != "" {
		keys = append(keys, s.idKey(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return oops.Code("OTP_DELETE_FAILED").With("backend", "redis").Wrap(err)
	}
	return nil
}

func decodeRedisRecord(fields map[string]string) (domain.OTPRecord, error) {
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return domain.OTPRecord{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return domain.OTPRecord{}, err
	}
	return domain.OTPRecord{
		ID:        fields["id"],
		Email:     fields["email"],
		Code:      fields["code"],
		ExpiresAt: expiresAt,
		Verified:  fields["verified"] == "1",
		CreatedAt: createdAt,
	}, nil
}
