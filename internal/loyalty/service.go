package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/logging"
	"github.com/hackgods/steammaster-scheduling/internal/metrics"
)

const (
	keyRedeemed = "redeemedPoints"
	keyInvite   = "invitePoints"
)

// Account is derived on every read and never persisted as a whole.
type Account struct {
	Email          string `json:"email"`
	EarnedPoints   int    `json:"earnedPoints"`
	RedeemedPoints int    `json:"redeemedPoints"`
	InvitePoints   int    `json:"invitePoints"`
}

func (a Account) Balance() int {
	return Balance(a.EarnedPoints, a.RedeemedPoints, a.InvitePoints)
}

type Redemption struct {
	Reward   string  `json:"reward"`
	Cost     int     `json:"cost"`
	Accepted bool    `json:"accepted"`
	Account  Account `json:"account"`
}

// AppointmentLister fetches a customer's booking history.
type AppointmentLister interface {
	List(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error)
}

// Service hosts the calculator for one customer session at a time. Counters
// live behind the Storage port, keyed by customer email.
type Service struct {
	appts   AppointmentLister
	store   Storage
	metrics *metrics.Metrics
	log     *logging.Logger

	// serializes read-modify-write of counters within this process
	mu sync.Mutex
}

func NewService(appts AppointmentLister, store Storage, m *metrics.Metrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		appts:   appts,
		store:   store,
		metrics: m,
		log:     logger.With("component", "loyalty"),
	}
}

// Account computes the current balance for email.
func (s *Service) Account(ctx context.Context, email string) (Account, error) {
	if email == "" {
		return Account{}, appointment.ValidationFailed("loyalty account", "email is required")
	}
	appts, err := s.appts.List(ctx, appointment.Filter{CustomerEmail: email})
	if err != nil {
		return Account{}, err
	}
	redeemed, err := s.counter(ctx, email, keyRedeemed)
	if err != nil {
		return Account{}, err
	}
	invite, err := s.counter(ctx, email, keyInvite)
	if err != nil {
		return Account{}, err
	}
	return Account{
		Email:          email,
		EarnedPoints:   Earned(appts),
		RedeemedPoints: redeemed,
		InvitePoints:   invite,
	}, nil
}

// Redeem spends points on a catalog reward. A rejected redemption leaves
// the counters untouched.
func (s *Service) Redeem(ctx context.Context, email, reward string) (Redemption, error) {
	if _, ok := Rewards[reward]; !ok {
		s.metrics.ObserveRedemption("unknown", false)
		return Redemption{}, appointment.ValidationFailed("redeem", "unknown reward %q", reward)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.Account(ctx, email)
	if err != nil {
		return Redemption{}, err
	}

	_, cost, accepted := RedeemReward(acct.Balance(), reward)
	s.metrics.ObserveRedemption(reward, accepted)
	if !accepted {
		return Redemption{Reward: reward, Cost: cost, Accepted: false, Account: acct}, nil
	}

	acct.RedeemedPoints += cost
	if err := s.setCounter(ctx, email, keyRedeemed, acct.RedeemedPoints); err != nil {
		return Redemption{}, err
	}
	s.log.Info("reward redeemed", "email", email, "reward", reward, "cost", cost, "balance", acct.Balance())
	return Redemption{Reward: reward, Cost: cost, Accepted: true, Account: acct}, nil
}

// Invite credits the invite bonus. The bonus is granted on the act of
// inviting alone.
func (s *Service) Invite(ctx context.Context, email string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.Account(ctx, email)
	if err != nil {
		return Account{}, err
	}
	acct.InvitePoints += Invite()
	if err := s.setCounter(ctx, email, keyInvite, acct.InvitePoints); err != nil {
		return Account{}, err
	}
	s.log.Info("invite bonus credited", "email", email, "points", InviteBonus)
	return acct, nil
}

// Reset drops the stored counters for email.
func (s *Service) Reset(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range []string{keyRedeemed, keyInvite} {
		if err := s.store.Remove(ctx, storageKey(email, k)); err != nil {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return nil
}

func (s *Service) counter(ctx context.Context, email, name string) (int, error) {
	raw, err := s.store.Get(ctx, storageKey(email, name))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.log.Warn("ignoring corrupt loyalty counter", "email", email, "key", name, "value", raw)
		return 0, nil
	}
	return n, nil
}

func (s *Service) setCounter(ctx context.Context, email, name string, v int) error {
	if err := s.store.Set(ctx, storageKey(email, name), strconv.Itoa(v)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func storageKey(email, name string) string {
	return "loyalty:" + email + ":" + name
}
