package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPRecord is a stored one-time code. Only the hash of the code is kept.
type OTPRecord struct {
	CodeHash string
	Attempts int
}

type OTPStore interface {
	Save(ctx context.Context, purpose, email, codeHash string, ttl time.Duration) error
	// Get returns nil, nil when no code is stored.
	Get(ctx context.Context, purpose, email string) (*OTPRecord, error)
	IncrementAttempts(ctx context.Context, purpose, email string) (int, error)
	Delete(ctx context.Context, purpose, email string) error
	// Throttle reports whether a send is allowed and, if so, blocks further
	// sends for interval.
	Throttle(ctx context.Context, purpose, email string, interval time.Duration) (bool, error)
}

// TokenBlocklist records revoked refresh token IDs until they expire.
type TokenBlocklist interface {
	// Revoke blocklists tokenID. first is false when it was already revoked.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) (first bool, err error)
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RedisOTPStore struct {
	rdb *redis.Client
}

func NewRedisOTPStore(rdb *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{rdb: rdb}
}

func otpKey(purpose, email string) string     { return fmt.Sprintf("otp:%s:%s", purpose, email) }
func otpSentKey(purpose, email string) string { return fmt.Sprintf("otp:sent:%s:%s", purpose, email) }
func revokedKey(tokenID string) string        { return "auth:revoked:" + tokenID }

func (s *RedisOTPStore) Save(ctx context.Context, purpose, email, codeHash string, ttl time.Duration) error {
	key := otpKey(purpose, email)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "hash", codeHash, "attempts", 0)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Get(ctx context.Context, purpose, email string) (*OTPRecord, error) {
	vals, err := s.rdb.HGetAll(ctx, otpKey(purpose, email)).Result()
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	if len(vals) == 0 || vals["hash"] == "" {
		return nil, nil
	}
	attempts, _ := strconv.Atoi(vals["attempts"])
	return &OTPRecord{CodeHash: vals["hash"], Attempts: attempts}, nil
}

func (s *RedisOTPStore) IncrementAttempts(ctx context.Context, purpose, email string) (int, error) {
	n, err := s.rdb.HIncrBy(ctx, otpKey(purpose, email), "attempts", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return int(n), nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, purpose, email string) error {
	return s.rdb.Del(ctx, otpKey(purpose, email)).Err()
}

func (s *RedisOTPStore) Throttle(ctx context.Context, purpose, email string, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return true, nil
	}
	ok, err := s.rdb.SetNX(ctx, otpSentKey(purpose, email), 1, interval).Result()
	if err != nil {
		return false, fmt.Errorf("throttle otp: %w", err)
	}
	return ok, nil
}

func (s *RedisOTPStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.rdb.SetNX(ctx, revokedKey(tokenID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return ok, nil
}

func (s *RedisOTPStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	err := s.rdb.Get(ctx, revokedKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
