package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/hackgods/steammaster-scheduling/internal/logging"
	"github.com/hackgods/steammaster-scheduling/internal/metrics"
	"github.com/hackgods/steammaster-scheduling/internal/notify"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrCodeNotFound    = errors.New("no pending code")
	ErrInvalidCode     = errors.New("invalid code")
	ErrTooManyAttempts = errors.New("too many attempts")
)

const (
	codeDigits         = 6
	defaultMaxAttempts = 5
)

// Code is what the server keeps for a pending login: never the code itself.
type Code struct {
	Hash     string
	Attempts int
}

// CodeStore holds pending codes with expiry.
type CodeStore interface {
	Save(ctx context.Context, email string, hash string, ttl time.Duration) error
	Load(ctx context.Context, email string) (Code, error)
	IncrAttempts(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, email string) error
}

// OTPService generates and verifies one-time login codes on the server.
type OTPService struct {
	store       CodeStore
	sender      notify.EmailSender
	tokens      *Tokens
	ttl         time.Duration
	maxAttempts int
	random      io.Reader
	metrics     *metrics.Metrics
	log         *logging.Logger
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

func NewOTPService(store CodeStore, sender notify.EmailSender, tokens *Tokens, cfg OTPConfig, m *metrics.Metrics, logger *logging.Logger) *OTPService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &OTPService{
		store:       store,
		sender:      sender,
		tokens:      tokens,
		ttl:         cfg.TTL,
		maxAttempts: cfg.MaxAttempts,
		random:      rand.Reader,
		metrics:     m,
		log:         logger.With("component", "otp"),
	}
}

// Send issues a fresh code for email, replacing any pending one.
func (s *OTPService) Send(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.store.Save(ctx, email, hashCode(email, code), s.ttl); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	msg := notify.EmailMessage{
		To:      email,
		Subject: "Your SteamMaster login code",
		Body:    fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes())),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		_ = s.store.Delete(ctx, email)
		s.metrics.ObserveOTP("send", "error")
		return fmt.Errorf("deliver code: %w", err)
	}
	s.metrics.ObserveOTP("send", "ok")
	s.log.Info("login code sent", "email", email)
	return nil
}

// Verify checks code and on success burns it and returns a session token.
func (s *OTPService) Verify(ctx context.Context, email, code string) (string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	pending, err := s.store.Load(ctx, email)
	if err != nil {
		s.metrics.ObserveOTP("verify", "missing")
		return "", err
	}
	if pending.Attempts >= s.maxAttempts {
		_ = s.store.Delete(ctx, email)
		s.metrics.ObserveOTP("verify", "locked")
		return "", ErrTooManyAttempts
	}

	want := []byte(pending.Hash)
	got := []byte(hashCode(email, strings.TrimSpace(code)))
	if subtle.ConstantTimeCompare(want, got) != 1 {
		attempts, err := s.store.IncrAttempts(ctx, email)
		if err != nil {
			return "", fmt.Errorf("record attempt: %w", err)
		}
		if attempts >= s.maxAttempts {
			_ = s.store.Delete(ctx, email)
		}
		s.metrics.ObserveOTP("verify", "invalid")
		return "", ErrInvalidCode
	}

	if err := s.store.Delete(ctx, email); err != nil {
		return "", fmt.Errorf("burn code: %w", err)
	}
	token, err := s.tokens.Issue(email)
	if err != nil {
		return "", err
	}
	s.metrics.ObserveOTP("verify", "ok")
	s.log.Info("login verified", "email", email)
	return token, nil
}

func (s *OTPService) generate() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(codeDigits), nil)
	n, err := rand.Int(s.random, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func hashCode(email, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + code))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
