package appointment

import (
	"context"
)

// Repository is the external booking service. The service owns creation and
// deletion; this layer only reads snapshots and requests status patches.
type Repository interface {
	ListAppointments(ctx context.Context, f Filter) ([]Appointment, error)
	CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error)

	// PatchStatus issues PATCH /appointments/status {id, status}.
	PatchStatus(ctx context.Context, id string, status Status) (*Appointment, error)
}
