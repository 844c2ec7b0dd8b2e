package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/hackgods/steammaster-scheduling/internal/logging"
	"github.com/hackgods/steammaster-scheduling/internal/metrics"
)

const (
	OutcomeApplied      = "applied"
	OutcomeStale        = "stale"
	OutcomeRemoteFailed = "remote_failed"
	OutcomeRejected     = "rejected"
	OutcomeRemoteOnly   = "remote_only"
)

// Service keeps the dashboard store consistent with the external booking
// service.
type Service struct {
	repo    Repository
	store   *Store
	metrics *metrics.Metrics
	log     *logging.Logger
}

func NewService(repo Repository, store *Store, m *metrics.Metrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:    repo,
		store:   store,
		metrics: m,
		log:     logger.With("component", "appointments"),
	}
}

func (s *Service) Store() *Store { return s.store }

// Refresh reloads the store from the remote service. On failure the view
// continues with an empty list.
func (s *Service) Refresh(ctx context.Context, f Filter) ([]Appointment, error) {
	start := time.Now()
	appts, err := s.repo.ListAppointments(ctx, f)
	s.metrics.ObserveRemote("list_appointments", err, time.Since(start).Seconds())
	if err != nil {
		s.store.Replace(nil)
		s.log.Warn("appointment refresh failed", "error", err)
		return []Appointment{}, FetchFailed("list appointments", err)
	}
	s.store.Replace(appts)
	return s.store.List(), nil
}

// List fetches appointments without touching the dashboard store.
func (s *Service) List(ctx context.Context, f Filter) ([]Appointment, error) {
	start := time.Now()
	appts, err := s.repo.ListAppointments(ctx, f)
	s.metrics.ObserveRemote("list_appointments", err, time.Since(start).Seconds())
	if err != nil {
		return []Appointment{}, FetchFailed("list appointments", err)
	}
	return appts, nil
}

// UpdateStatus patches the status remotely first and only then locally.
// A remote failure leaves local state untouched. When responses for the same
// id arrive out of order, the one issued last wins and older ones are
// dropped without error.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Appointment, error) {
	if !status.Valid() {
		s.metrics.ObserveStatusUpdate(string(status), OutcomeRejected)
		return Appointment{}, ValidationFailed("update status", "unknown status %q", status)
	}

	ticket := s.store.Ticket(id)

	start := time.Now()
	remote, err := s.repo.PatchStatus(ctx, id, status)
	s.metrics.ObserveRemote("patch_status", err, time.Since(start).Seconds())
	if err != nil {
		s.metrics.ObserveStatusUpdate(string(status), OutcomeRemoteFailed)
		s.log.Warn("status update failed", "id", id, "status", status, "error", err)
		return Appointment{}, RemoteUpdateFailed("update status", err)
	}

	updated, applied, err := s.store.ApplyStatus(id, status, ticket)
	if errors.Is(err, ErrAppointmentNotFound) {
		// not in the current view, the remote record is authoritative
		s.metrics.ObserveStatusUpdate(string(status), OutcomeRemoteOnly)
		s.log.Info("status updated for appointment outside the view", "id", id, "status", status)
		out := Appointment{ID: id, Status: status}
		if remote != nil {
			out = *remote
			if out.ID == "" {
				out.ID = id
			}
		}
		return out, nil
	}
	if err != nil {
		return Appointment{}, err
	}
	if !applied {
		s.metrics.ObserveStatusUpdate(string(status), OutcomeStale)
		s.log.Info("stale status response ignored", "id", id, "status", status, "ticket", ticket)
		return updated, nil
	}

	s.metrics.ObserveStatusUpdate(string(status), OutcomeApplied)
	s.log.Info("status updated", "id", id, "status", status)
	return updated, nil
}
