package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/steammaster-scheduling/internal/auth"
)

const (
	fieldHash     = "hash"
	fieldAttempts = "attempts"
)

// OTPStore keeps pending login codes as Redis hashes that expire with the
// code TTL.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func otpKey(email string) string {
	return "otp:" + email
}

func (s *OTPStore) Save(ctx context.Context, email, hash string, ttl time.Duration) error {
	key := otpKey(email)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, fieldHash, hash, fieldAttempts, 0)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (s *OTPStore) Load(ctx context.Context, email string) (auth.Code, error) {
	vals, err := s.client.HGetAll(ctx, otpKey(email)).Result()
	if err != nil {
		return auth.Code{}, fmt.Errorf("load otp: %w", err)
	}
	hash, ok := vals[fieldHash]
	if !ok {
		return auth.Code{}, auth.ErrCodeNotFound
	}
	attempts, _ := strconv.Atoi(vals[fieldAttempts])
	return auth.Code{Hash: hash, Attempts: attempts}, nil
}

var incrAttemptsScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
else
  return -1
end
`)

// IncrAttempts bumps the counter of a live code. An expired code is not
// resurrected.
func (s *OTPStore) IncrAttempts(ctx context.Context, email string) (int, error) {
	n, err := incrAttemptsScript.Run(ctx, s.client, []string{otpKey(email)}, fieldAttempts).Int()
	if err != nil {
		return 0, fmt.Errorf("incr otp attempts: %w", err)
	}
	if n < 0 {
		return 0, auth.ErrCodeNotFound
	}
	return n, nil
}

func (s *OTPStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
