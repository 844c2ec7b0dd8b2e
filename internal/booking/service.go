package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/logging"
	"github.com/hackgods/steammaster-scheduling/internal/metrics"
)

var ErrSlotTaken = errors.New("time slot already booked")

// Booking results reported to metrics.
const (
	ResultCreated  = "created"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultFailed   = "failed"
)

// Backend is the part of the booking API used when booking.
type Backend interface {
	ListAppointments(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error)
	CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error)
}

// SlotLocker serialises submissions for the same date and time.
type SlotLocker interface {
	WithSlotLock(ctx context.Context, slot string, fn func(ctx context.Context) error) error
}

type Service struct {
	backend  Backend
	locker   SlotLocker
	hours    Hours
	location *time.Location
	metrics  *metrics.Metrics
	log      *logging.Logger
	now      func() time.Time
}

func NewService(backend Backend, locker SlotLocker, hours Hours, m *metrics.Metrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		backend:  backend,
		locker:   locker,
		hours:    hours,
		location: time.Local,
		metrics:  m,
		log:      logger.With("component", "booking"),
		now:      time.Now,
	}
}

// Slots returns the free start times for day.
func (s *Service) Slots(ctx context.Context, day appointment.Date) ([]string, error) {
	if day.IsZero() {
		return []string{}, appointment.ValidationFailed("list slots", "date is required")
	}
	booked, err := s.booked(ctx, day)
	if err != nil {
		return []string{}, appointment.FetchFailed("list slots", err)
	}
	return AvailableSlots(day, s.hours, booked, wallClock(s.now(), s.location)), nil
}

// Submit validates the whole draft, then creates the appointment while
// holding the slot lock. Nothing is sent when validation fails.
func (s *Service) Submit(ctx context.Context, d Draft) (*appointment.Appointment, error) {
	if err := d.ValidateStep(StepConfirm); err != nil {
		s.metrics.ObserveBooking(ResultInvalid)
		return nil, err
	}
	if !s.hours.Contains(d.Time) {
		s.metrics.ObserveBooking(ResultInvalid)
		return nil, appointment.ValidationFailed("validate booking", "time %s is not a bookable slot", d.Time)
	}
	at, err := d.Date.At(d.Time)
	if err != nil {
		s.metrics.ObserveBooking(ResultInvalid)
		return nil, appointment.ValidationFailed("validate booking", "%v", err)
	}
	if at.Before(wallClock(s.now(), s.location)) {
		s.metrics.ObserveBooking(ResultInvalid)
		return nil, appointment.ValidationFailed("validate booking", "time %s %s has already passed", d.Date, d.Time)
	}

	slot := fmt.Sprintf("%sT%s", d.Date, d.Time)
	var created *appointment.Appointment

	err = s.locker.WithSlotLock(ctx, slot, func(ctx context.Context) error {
		booked, err := s.booked(ctx, d.Date)
		if err != nil {
			return fmt.Errorf("recheck slot: %w", err)
		}
		if _, taken := booked[d.Time]; taken {
			return ErrSlotTaken
		}

		start := time.Now()
		appt, err := s.backend.CreateAppointment(ctx, d.Request())
		s.metrics.ObserveRemote("create_appointment", err, time.Since(start).Seconds())
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		result := ResultFailed
		if errors.Is(err, ErrSlotTaken) {
			result = ResultConflict
		}
		s.metrics.ObserveBooking(result)
		s.log.Warn("booking failed", "slot", slot, "email", d.Email, "error", err)
		return nil, appointment.SubmitFailed("create appointment", err)
	}

	s.metrics.ObserveBooking(ResultCreated)
	s.log.Info("booking created", "id", created.ID, "slot", slot, "services", len(d.Services))
	return created, nil
}

func (s *Service) booked(ctx context.Context, day appointment.Date) (map[string]struct{}, error) {
	start := time.Now()
	appts, err := s.backend.ListAppointments(ctx, appointment.Filter{Date: day})
	s.metrics.ObserveRemote("list_appointments", err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return BookedTimes(appts), nil
}
