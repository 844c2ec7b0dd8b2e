package api

import (
	"github.com/shopspring/decimal"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/catalog"
	"github.com/hackgods/steammaster-scheduling/internal/loyalty"
)

type OTPRequest struct {
	Email string `json:"email"`
}

type OTPVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type SessionResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type CategoriesResponse struct {
	Categories []catalog.Category `json:"categories"`
}

type ServicesResponse struct {
	Services []catalog.Service `json:"services"`
	Total    decimal.Decimal   `json:"total"`
}

type SlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

type BookingRequest struct {
	ParentCategoryID string   `json:"parentCategoryId"`
	ServiceIDs       []string `json:"serviceIds"`
	Name             string   `json:"name"`
	Phone            string   `json:"phone"`
	Email            string   `json:"email"`
	Address          string   `json:"address"`
	Date             string   `json:"date"`
	Time             string   `json:"time"`
}

type AppointmentsResponse struct {
	Appointments []appointment.Appointment            `json:"appointments"`
	Dates        []string                             `json:"dates"`
	ByDate       map[string][]appointment.Appointment `json:"byDate"`
	Selected     *appointment.Appointment             `json:"selected,omitempty"`
}

type KanbanColumn struct {
	Status       appointment.Status        `json:"status"`
	Appointments []appointment.Appointment `json:"appointments"`
}

type KanbanResponse struct {
	Columns []KanbanColumn `json:"columns"`
}

type StatusUpdateRequest struct {
	Status appointment.Status `json:"status"`
}

type MyBookingsResponse struct {
	Email        string                    `json:"email"`
	Appointments []appointment.Appointment `json:"appointments"`
}

type LoyaltyResponse struct {
	loyalty.Account
	Balance int            `json:"balance"`
	Rewards map[string]int `json:"rewards"`
}

type RedeemRequest struct {
	Reward string `json:"reward"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
