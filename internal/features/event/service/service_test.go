package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clubtac-rating-backend/internal/common/errors"
	"clubtac-rating-backend/internal/features/event/models"
	"clubtac-rating-backend/internal/features/event/repository"
	usermodels "clubtac-rating-backend/internal/features/user/models"
	"clubtac-rating-backend/internal/platform/webhook"
)

type fakeEventRepo struct {
	events       []models.Event
	participants map[string]*models.Participant
}

func newFakeEventRepo(events ...models.Event) *fakeEventRepo {
	return &fakeEventRepo{
		events:       events,
		participants: make(map[string]*models.Participant),
	}
}

func (r *fakeEventRepo) All(ctx context.Context) ([]models.Event, error) {
	return r.events, nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	for i := range r.events {
		if r.events[i].ID == id {
			return &r.events[i], nil
		}
	}
	return nil, repository.ErrEventNotFound
}

func (r *fakeEventRepo) Participant(ctx context.Context, eventID, userID int64) (*models.Participant, error) {
	if p, ok := r.participants[inFlightKey(eventID, userID)]; ok {
		return p, nil
	}
	return nil, repository.ErrParticipantNotFound
}

func (r *fakeEventRepo) PendingParticipants(ctx context.Context) ([]models.Participant, error) {
	var pending []models.Participant
	for _, p := range r.participants {
		if p.PaymentStatus == models.PaymentStatusPending {
			pending = append(pending, *p)
		}
	}
	return pending, nil
}

func (r *fakeEventRepo) putParticipant(eventID, userID int64, status, paylink string) {
	r.participants[inFlightKey(eventID, userID)] = &models.Participant{
		EventID:       eventID,
		UserID:        userID,
		PaymentStatus: status,
		Paylink:       paylink,
	}
}

// fakeWorkflow отвечает заготовленным reply; release блокирует вызов до закрытия.
type fakeWorkflow struct {
	mu      sync.Mutex
	calls   int
	reply   *webhook.RegistrationReply
	err     error
	release chan struct{}
}

func (w *fakeWorkflow) Register(ctx context.Context, req webhook.RegistrationRequest) (*webhook.RegistrationReply, error) {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	if w.release != nil {
		<-w.release
	}
	return w.reply, w.err
}

func (w *fakeWorkflow) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func newTestService(repo repository.EventRepository, wf RegistrationWorkflow, now time.Time) *eventService {
	svc := NewEventService(repo, wf).(*eventService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestDeriveViews(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := []models.Event{
		{ID: 1, Title: "прошлый турнир", StartsAt: now.Add(-48 * time.Hour), Status: models.EventStatusFinished},
		{ID: 2, Title: "отменённый", StartsAt: now.Add(-24 * time.Hour), Status: models.EventStatusCancelled},
		{ID: 3, Title: "ровно сейчас", StartsAt: now, Status: models.EventStatusScheduled},
		{ID: 4, Title: "вечером", StartsAt: now.Add(6 * time.Hour), Status: models.EventStatusScheduled},
		{ID: 5, Title: "на выходных", StartsAt: now.Add(72 * time.Hour), Status: models.EventStatusScheduled},
	}

	upcoming := DeriveUpcoming(events, now)
	require.Len(t, upcoming, 2)
	// Старт ровно в now не попадает в анонсы.
	assert.Equal(t, int64(4), upcoming[0].ID)
	assert.Equal(t, int64(5), upcoming[1].ID)

	finished := DeriveFinished(events, now)
	require.Len(t, finished, 1)
	assert.Equal(t, int64(1), finished[0].ID)
}

func TestDeriveFinishedNewestFirst(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	events := []models.Event{
		{ID: 1, StartsAt: now.Add(-72 * time.Hour), Status: models.EventStatusFinished},
		{ID: 2, StartsAt: now.Add(-48 * time.Hour), Status: models.EventStatusFinished},
		{ID: 3, StartsAt: now.Add(-24 * time.Hour), Status: models.EventStatusFinished},
	}

	finished := DeriveFinished(events, now)

	require.Len(t, finished, 3)
	assert.Equal(t, int64(3), finished[0].ID)
	assert.Equal(t, int64(1), finished[2].ID)
}

func TestRegisterReturnsPaylink(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeEventRepo(models.Event{ID: 1, StartsAt: now.Add(time.Hour), Status: models.EventStatusScheduled})
	wf := &fakeWorkflow{reply: &webhook.RegistrationReply{Paylink: "https://pay.example/abc"}}
	svc := newTestService(repo, wf, now)

	result, err := svc.Register(context.Background(), 1, &usermodels.User{ID: 10, TelegramID: 100500})

	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatePending, result.State)
	assert.Equal(t, "https://pay.example/abc", result.Paylink)
	assert.Equal(t, 1, wf.callCount())
}

func TestRegisterBareAckIsRetriableFailure(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeEventRepo(models.Event{ID: 1, StartsAt: now.Add(time.Hour), Status: models.EventStatusScheduled})
	wf := &fakeWorkflow{reply: &webhook.RegistrationReply{BareAck: true}}
	svc := newTestService(repo, wf, now)

	_, err := svc.Register(context.Background(), 1, &usermodels.User{ID: 10})

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRegistrationAmbiguous, appErr.Code)
	assert.True(t, appErr.IsRetriable())
}

func TestRegisterWithoutPaylinkRereadsParticipant(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeEventRepo(models.Event{ID: 1, StartsAt: now.Add(time.Hour), Status: models.EventStatusScheduled})
	repo.putParticipant(1, 10, models.PaymentStatusPaid, "")
	wf := &fakeWorkflow{reply: &webhook.RegistrationReply{}}
	svc := newTestService(repo, wf, now)

	result, err := svc.Register(context.Background(), 1, &usermodels.User{ID: 10})

	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatePaid, result.State)
}

func TestRegisterWithoutPaylinkAndWithoutRowIsAmbiguous(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeEventRepo(models.Event{ID: 1, StartsAt: now.Add(time.Hour), Status: models.EventStatusScheduled})
	wf := &fakeWorkflow{reply: &webhook.RegistrationReply{}}
	svc := newTestService(repo, wf, now)

	_, err := svc.Register(context.Background(), 1, &usermodels.User{ID: 10})

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRegistrationAmbiguous, appErr.Code)
}

func TestRegisterClosedEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		event models.Event
	}{
		{name: "started", event: models.Event{ID: 1, StartsAt: now, Status: models.EventStatusScheduled}},
		{name: "past", event: models.Event{ID: 1, StartsAt: now.Add(-time.Hour), Status: models.EventStatusScheduled}},
		{name: "cancelled", event: models.Event{ID: 1, StartsAt: now.Add(time.Hour), Status: models.EventStatusCancelled}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &fakeWorkflow{reply: &webhook.RegistrationReply{Paylink: "x"}}
			svc := newTestService(newFakeEventRepo(tt.event), wf, now)

			_, err := svc.Register(context.Background(), 1, &usermodels.User{ID: 10})

			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeEventNotOpen, appErr.Code)
			assert.Equal(t, 0, wf.callCount())
		})
	}
}

func TestRegisterDoubleTriggerSingleCall(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeEventRepo(models.Event{ID: 1, StartsAt: now.Add(time.Hour), Status: models.EventStatusScheduled})
	wf := &fakeWorkflow{
		reply:   &webhook.RegistrationReply{Paylink: "https://pay.example/abc"},
		release: make(chan struct{}),
	}
	svc := newTestService(repo, wf, now)
	user := &usermodels.User{ID: 10, TelegramID: 100500}

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.Register(context.Background(), 1, user)
		firstDone <- err
	}()

	// Дожидаемся, пока первый вызов повиснет внутри workflow.
	require.Eventually(t, func() bool { return wf.callCount() == 1 }, time.Second, time.Millisecond)

	_, err := svc.Register(context.Background(), 1, user)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRegistrationInFlight, appErr.Code)

	close(wf.release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, 1, wf.callCount())
}

func TestParticipantStatusUnregistered(t *testing.T) {
	svc := newTestService(newFakeEventRepo(), &fakeWorkflow{}, time.Now())

	status, err := svc.ParticipantStatus(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.Equal(t, models.PaymentStatusNone, status.PaymentStatus)
}
