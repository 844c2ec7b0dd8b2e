package booking

import (
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/catalog"
)

// Wizard steps.
const (
	StepCategory = 1
	StepServices = 2
	StepDetails  = 3
	StepConfirm  = 4
)

// DefaultInterval is the spacing of bookable start times.
const DefaultInterval = 30 * time.Minute

// Draft is the customer's in-progress booking.
type Draft struct {
	ParentCategoryID string            `json:"parentCategoryId"`
	Services         []catalog.Service `json:"services"`
	Name             string            `json:"name"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email"`
	Address          string            `json:"address"`
	Date             appointment.Date  `json:"date"`
	Time             string            `json:"time"`
}

// Toggle selects svc, or deselects it when already selected.
func (d *Draft) Toggle(svc catalog.Service) {
	if d.has(svc.ID) {
		d.Remove(svc.ID)
		return
	}
	d.Services = append(d.Services, svc)
}

// Add selects svc unless it is already selected.
func (d *Draft) Add(svc catalog.Service) {
	if !d.has(svc.ID) {
		d.Services = append(d.Services, svc)
	}
}

func (d *Draft) Remove(id string) {
	out := make([]catalog.Service, 0, len(d.Services))
	for _, s := range d.Services {
		if s.ID != id {
			out = append(out, s)
		}
	}
	d.Services = out
}

func (d *Draft) has(id string) bool {
	for _, s := range d.Services {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (d Draft) Total() decimal.Decimal {
	return catalog.TotalPrice(d.Services)
}

// ValidateStep checks that everything needed to leave step is filled in.
// The confirm step re-checks all earlier steps.
func (d Draft) ValidateStep(step int) error {
	const op = "validate booking"
	switch step {
	case StepCategory:
		if strings.TrimSpace(d.ParentCategoryID) == "" {
			return appointment.ValidationFailed(op, "choose a category")
		}
	case StepServices:
		if len(d.Services) == 0 {
			return appointment.ValidationFailed(op, "choose at least one service")
		}
	case StepDetails:
		return d.validateDetails()
	case StepConfirm:
		for s := StepCategory; s < StepConfirm; s++ {
			if err := d.ValidateStep(s); err != nil {
				return err
			}
		}
	default:
		return appointment.ValidationFailed(op, "unknown step %d", step)
	}
	return nil
}

func (d Draft) validateDetails() error {
	const op = "validate booking"
	required := []struct{ name, value string }{
		{"name", d.Name},
		{"phone", d.Phone},
		{"email", d.Email},
		{"address", d.Address},
		{"time", d.Time},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return appointment.ValidationFailed(op, "%s is required", f.name)
		}
	}
	if d.Date.IsZero() {
		return appointment.ValidationFailed(op, "date is required")
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return appointment.ValidationFailed(op, "invalid email %q", d.Email)
	}
	if _, err := parseTime(d.Time); err != nil {
		return appointment.ValidationFailed(op, "%v", err)
	}
	return nil
}

// Request builds the POST /appointments payload.
func (d Draft) Request() appointment.CreateRequest {
	ids := make([]string, 0, len(d.Services))
	for _, s := range d.Services {
		ids = append(ids, s.ID)
	}
	return appointment.CreateRequest{
		Services:        ids,
		TotalPrice:      d.Total(),
		AppointmentDate: d.Date,
		AppointmentTime: d.Time,
		CustomerName:    strings.TrimSpace(d.Name),
		CustomerEmail:   strings.TrimSpace(d.Email),
		CustomerPhone:   strings.TrimSpace(d.Phone),
	}
}
