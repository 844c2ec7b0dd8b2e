package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/steammaster-scheduling/internal/logging"
)

type stubRepo struct {
	mu       sync.Mutex
	list     []Appointment
	listErr  error
	patchErr error
	patches  []Status

	// when set, PatchStatus blocks on the channel keyed by status
	gates map[Status]chan struct{}
}

func (r *stubRepo) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.list, nil
}

func (r *stubRepo) CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error) {
	return nil, errors.New("not implemented")
}

func (r *stubRepo) PatchStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	if gate, ok := r.gates[status]; ok {
		<-gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches = append(r.patches, status)
	if r.patchErr != nil {
		return nil, r.patchErr
	}
	return &Appointment{ID: id, Status: status}, nil
}

func newTestService(t *testing.T, repo *stubRepo) *Service {
	t.Helper()
	svc := NewService(repo, NewStore(), nil, logging.Discard())
	_, err := svc.Refresh(context.Background(), Filter{})
	require.NoError(t, err)
	return svc
}

func TestUpdateStatusPatchesListAndSelection(t *testing.T) {
	repo := &stubRepo{list: fixture()}
	svc := newTestService(t, repo)
	before, _ := svc.Store().Get("a2")

	_, err := svc.Store().Select("a2")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), "a2", StatusAttended)
	require.NoError(t, err)
	assert.Equal(t, StatusAttended, updated.Status)

	after, ok := svc.Store().Get("a2")
	require.True(t, ok)
	before.Status = StatusAttended
	assert.Equal(t, before, after, "only status changes")

	selected, ok := svc.Store().Selected()
	require.True(t, ok)
	assert.Equal(t, StatusAttended, selected.Status)
	assert.Equal(t, []Status{StatusAttended}, repo.patches)
}

func TestUpdateStatusRemoteFailureLeavesStateUntouched(t *testing.T) {
	repo := &stubRepo{list: fixture(), patchErr: errors.New("502 bad gateway")}
	svc := newTestService(t, repo)
	before := svc.Store().List()

	_, err := svc.UpdateStatus(context.Background(), "a1", StatusNoShow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteUpdateFailed)
	assert.ErrorIs(t, err, repo.patchErr)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, ErrRemoteUpdateFailed, typed.Kind)

	assert.Equal(t, before, svc.Store().List())
	assert.Len(t, repo.patches, 1, "no automatic retry")
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := &stubRepo{list: fixture()}
	svc := newTestService(t, repo)

	_, err := svc.UpdateStatus(context.Background(), "a1", Status("done"))
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, repo.patches)
}

func TestUpdateStatusIDOutsideView(t *testing.T) {
	repo := &stubRepo{list: fixture()}
	svc := newTestService(t, repo)

	got, err := svc.UpdateStatus(context.Background(), "elsewhere", StatusAttended)
	require.NoError(t, err)
	assert.Equal(t, Appointment{ID: "elsewhere", Status: StatusAttended}, got)
	assert.Equal(t, []Status{StatusAttended}, repo.patches)
	assert.Len(t, svc.Store().List(), 5, "view is not touched")
}

func TestUpdateStatusRecordLeavesViewDuringPatch(t *testing.T) {
	slow := make(chan struct{})
	repo := &stubRepo{list: fixture(), gates: map[Status]chan struct{}{StatusNoShow: slow}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	type result struct {
		appt Appointment
		err  error
	}
	done := make(chan result, 1)
	go func() {
		a, err := svc.UpdateStatus(ctx, "a2", StatusNoShow)
		done <- result{a, err}
	}()

	require.Eventually(t, func() bool {
		svc.store.mu.RLock()
		defer svc.store.mu.RUnlock()
		return svc.store.issued["a2"] == 1
	}, time.Second, 5*time.Millisecond)

	// a filtered refresh drops a2 while the patch is in flight
	repo.mu.Lock()
	repo.list = fixture()[2:]
	repo.mu.Unlock()
	_, err := svc.Refresh(ctx, Filter{Date: NewDate(2025, time.March, 3)})
	require.NoError(t, err)

	close(slow)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "a2", res.appt.ID)
	assert.Equal(t, StatusNoShow, res.appt.Status)

	_, ok := svc.Store().Get("a2")
	assert.False(t, ok)
}

func TestUpdateStatusSelectedOutsideView(t *testing.T) {
	repo := &stubRepo{list: fixture()}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.Store().Select("a4")
	require.NoError(t, err)

	repo.mu.Lock()
	repo.list = fixture()[:3]
	repo.mu.Unlock()
	_, err = svc.Refresh(ctx, Filter{})
	require.NoError(t, err)

	got, err := svc.UpdateStatus(ctx, "a4", StatusScheduled)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.Equal(t, "Cleo", got.CustomerName)

	selected, ok := svc.Store().Selected()
	require.True(t, ok)
	assert.Equal(t, StatusScheduled, selected.Status)
}

func TestUpdateStatusOutOfOrderResponsesKeepLatestRequest(t *testing.T) {
	slow := make(chan struct{})
	repo := &stubRepo{list: fixture(), gates: map[Status]chan struct{}{StatusCancelled: slow}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.UpdateStatus(ctx, "a2", StatusCancelled)
		done <- err
	}()

	// wait until the first call has taken its ticket
	require.Eventually(t, func() bool {
		svc.store.mu.RLock()
		defer svc.store.mu.RUnlock()
		return svc.store.issued["a2"] == 1
	}, time.Second, 5*time.Millisecond)

	got, err := svc.UpdateStatus(ctx, "a2", StatusAttended)
	require.NoError(t, err)
	assert.Equal(t, StatusAttended, got.Status)

	close(slow)
	require.NoError(t, <-done)

	final, _ := svc.Store().Get("a2")
	assert.Equal(t, StatusAttended, final.Status, "older response must not overwrite newer state")
}

func TestRefreshFailureClearsView(t *testing.T) {
	repo := &stubRepo{list: fixture()}
	svc := newTestService(t, repo)
	require.Len(t, svc.Store().List(), 5)

	repo.listErr = errors.New("connection refused")
	appts, err := svc.Refresh(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Empty(t, appts)
	assert.Empty(t, svc.Store().List())
}
