package appointment

import (
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusAttended  Status = "attended"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Statuses lists every status in dashboard order.
var Statuses = []Status{StatusScheduled, StatusAttended, StatusCancelled, StatusNoShow}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusAttended, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// TimeLayout is the HH:MM 24h format used for appointment times.
const TimeLayout = "15:04"

// Appointment is a booking snapshot as returned by the external service.
// Only Status changes after creation.
type Appointment struct {
	ID              string          `json:"_id"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone"`
	AppointmentDate Date            `json:"appointmentDate"`
	AppointmentTime string          `json:"appointmentTime"`
	ServiceNames    []string        `json:"serviceNames"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Status          Status          `json:"status"`
}

// Filter narrows GET /appointments. Zero fields are omitted.
type Filter struct {
	Date          Date
	CustomerEmail string
}

// CreateRequest is the booking payload accepted by POST /appointments.
type CreateRequest struct {
	Services        []string        `json:"services"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	AppointmentDate Date            `json:"appointmentDate"`
	AppointmentTime string          `json:"appointmentTime"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone"`
}
