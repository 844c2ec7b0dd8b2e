package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/auth"
	"github.com/hackgods/steammaster-scheduling/internal/booking"
	"github.com/hackgods/steammaster-scheduling/internal/catalog"
	"github.com/hackgods/steammaster-scheduling/internal/loyalty"
	redisclient "github.com/hackgods/steammaster-scheduling/internal/redis"
)

func requestOTPHandler(otp *auth.OTPService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := otp.Send(r.Context(), req.Email); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func verifyOTPHandler(otp *auth.OTPService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OTPVerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		token, err := otp.Verify(r.Context(), req.Email, req.Code)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{
			Token: token,
			Email: strings.ToLower(strings.TrimSpace(req.Email)),
		})
	}
}

func listCategoriesHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := cat.Load(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, CategoriesResponse{Categories: catalog.ParentCategories(snap.Categories)})
	}
}

func listServicesHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := cat.Load(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}

		svcs := snap.Services
		if parent := r.URL.Query().Get("parent"); parent != "" {
			svcs = catalog.ServicesForParent(parent, snap.Categories, snap.Services)
		}
		writeJSON(w, http.StatusOK, ServicesResponse{Services: svcs, Total: catalog.TotalPrice(svcs)})
	}
}

func listSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := appointment.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.Slots(r.Context(), day)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SlotsResponse{Date: day.String(), Slots: slots})
	}
}

func createBookingHandler(cat *catalog.Catalog, svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		draft := booking.Draft{
			ParentCategoryID: req.ParentCategoryID,
			Name:             req.Name,
			Phone:            req.Phone,
			Email:            req.Email,
			Address:          req.Address,
			Time:             req.Time,
		}
		if req.Date != "" {
			day, err := appointment.ParseDate(req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			draft.Date = day
		}

		if len(req.ServiceIDs) > 0 {
			snap, err := cat.Load(r.Context())
			if err != nil {
				handleError(w, r, err)
				return
			}
			for _, id := range req.ServiceIDs {
				s, ok := catalog.FindService(snap.Services, id)
				if !ok {
					writeError(w, http.StatusBadRequest, "unknown_service", "unknown service "+id)
					return
				}
				draft.Add(s)
			}
		}

		appt, err := svc.Submit(r.Context(), draft)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func dashboardFilter(r *http.Request) (appointment.Filter, error) {
	var f appointment.Filter
	q := r.URL.Query()
	if raw := q.Get("date"); raw != "" {
		day, err := appointment.ParseDate(raw)
		if err != nil {
			return f, err
		}
		f.Date = day
	}
	f.CustomerEmail = q.Get("customerEmail")
	return f, nil
}

func refresh(w http.ResponseWriter, r *http.Request, svc *appointment.Service) ([]appointment.Appointment, bool) {
	f, err := dashboardFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return nil, false
	}
	appts, err := svc.Refresh(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return nil, false
	}
	return appts, true
}

func listDashboardHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, ok := refresh(w, r, svc)
		if !ok {
			return
		}

		groups := appointment.GroupByDate(appts)
		resp := AppointmentsResponse{
			Appointments: appointment.SortByDateTime(appts),
			Dates:        appointment.SortedDates(groups),
			ByDate:       groups,
		}
		if sel, ok := svc.Store().Selected(); ok {
			resp.Selected = &sel
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func summaryHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, ok := refresh(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, appointment.Summarize(appts))
	}
}

func kanbanHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, ok := refresh(w, r, svc)
		if !ok {
			return
		}

		sorted := appointment.SortByDateTime(appts)
		columns := make([]KanbanColumn, 0, len(appointment.Statuses))
		for _, st := range appointment.Statuses {
			col := KanbanColumn{Status: st, Appointments: []appointment.Appointment{}}
			for _, a := range sorted {
				if a.Status == st {
					col.Appointments = append(col.Appointments, a)
				}
			}
			columns = append(columns, col)
		}
		writeJSON(w, http.StatusOK, KanbanResponse{Columns: columns})
	}
}

func exportHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, ok := refresh(w, r, svc)
		if !ok {
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="appointments.json"`)
		writeJSON(w, http.StatusOK, appointment.SortByDateTime(appts))
	}
}

func updateStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req StatusUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, req.Status)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func selectAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Store().Select(chi.URLParam(r, "id"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func clearSelectionHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Store().ClearSelection()
		w.WriteHeader(http.StatusNoContent)
	}
}

func myBookingsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, _ := auth.EmailFromContext(r.Context())

		appts, err := svc.List(r.Context(), appointment.Filter{CustomerEmail: email})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MyBookingsResponse{Email: email, Appointments: appointment.SortByDateTime(appts)})
	}
}

func loyaltyResponse(acc loyalty.Account) LoyaltyResponse {
	return LoyaltyResponse{Account: acc, Balance: acc.Balance(), Rewards: loyalty.Rewards}
}

func myLoyaltyHandler(svc *loyalty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, _ := auth.EmailFromContext(r.Context())

		acc, err := svc.Account(r.Context(), email)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, loyaltyResponse(acc))
	}
}

// resetLoyaltyHandler clears the stored redemption and invite counters and
// returns the recomputed account.
func resetLoyaltyHandler(svc *loyalty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, _ := auth.EmailFromContext(r.Context())

		if err := svc.Reset(r.Context(), email); err != nil {
			handleError(w, r, err)
			return
		}
		acc, err := svc.Account(r.Context(), email)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, loyaltyResponse(acc))
	}
}

func redeemHandler(svc *loyalty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, _ := auth.EmailFromContext(r.Context())

		var req RedeemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		red, err := svc.Redeem(r.Context(), email, req.Reward)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, red)
	}
}

func inviteHandler(svc *loyalty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, _ := auth.EmailFromContext(r.Context())

		acc, err := svc.Invite(r.Context(), email)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, loyaltyResponse(acc))
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appointment.ErrValidationFailed):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, auth.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid_email", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, auth.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "too_many_attempts", "request a new code")
	case errors.Is(err, auth.ErrCodeNotFound), errors.Is(err, auth.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, "invalid_code", err.Error())
	case errors.Is(err, appointment.ErrFetchFailed):
		writeError(w, http.StatusBadGateway, "fetch_failed", err.Error())
	case errors.Is(err, appointment.ErrSubmitFailed):
		writeError(w, http.StatusBadGateway, "submit_failed", err.Error())
	case errors.Is(err, appointment.ErrRemoteUpdateFailed):
		writeError(w, http.StatusBadGateway, "remote_update_failed", err.Error())
	default:
		LoggerFrom(r.Context()).Error("unhandled request error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
