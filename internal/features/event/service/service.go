package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "clubtac-rating-backend/internal/common/errors"
	"clubtac-rating-backend/internal/common/logger"
	"clubtac-rating-backend/internal/features/event/models"
	"clubtac-rating-backend/internal/features/event/repository"
	usermodels "clubtac-rating-backend/internal/features/user/models"
	"clubtac-rating-backend/internal/platform/webhook"
)

// RegistrationWorkflow — внешний workflow, создающий участие и платёжную
// ссылку. Реализуется platform/webhook, в тестах подменяется.
type RegistrationWorkflow interface {
	Register(ctx context.Context, req webhook.RegistrationRequest) (*webhook.RegistrationReply, error)
}

type EventService interface {
	Upcoming(ctx context.Context) ([]models.Event, error)
	Finished(ctx context.Context) ([]models.Event, error)
	// Register проводит пользователя через workflow регистрации. Повторный
	// вызов, пока первый в полёте, отклоняется без исходящего запроса.
	Register(ctx context.Context, eventID int64, user *usermodels.User) (*models.RegistrationResult, error)
	// ParticipantStatus — идемпотентный пересчёт статуса участия: чистое
	// перечитывание строки, last-read-wins.
	ParticipantStatus(ctx context.Context, eventID, userID int64) (*models.ParticipantStatus, error)
}

type eventService struct {
	repo     repository.EventRepository
	workflow RegistrationWorkflow

	// Регистрации в полёте, ключ — пара событие/пользователь. Единственная
	// взаимная блокировка во всём приложении.
	inFlight sync.Map

	// Переопределяется в тестах.
	now func() time.Time
}

func NewEventService(repo repository.EventRepository, workflow RegistrationWorkflow) EventService {
	return &eventService{
		repo:     repo,
		workflow: workflow,
		now:      time.Now,
	}
}

func (s *eventService) Upcoming(ctx context.Context) ([]models.Event, error) {
	events, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load events", err)
	}
	return DeriveUpcoming(events, s.now()), nil
}

func (s *eventService) Finished(ctx context.Context) ([]models.Event, error) {
	events, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load events", err)
	}
	return DeriveFinished(events, s.now()), nil
}

// DeriveUpcoming выбирает будущие анонсы: старт строго после now, статус
// любой, ближайшие первыми. Вход отсортирован по возрастанию старта.
func DeriveUpcoming(events []models.Event, now time.Time) []models.Event {
	upcoming := make([]models.Event, 0)
	for _, event := range events {
		if event.StartsAt.After(now) {
			upcoming = append(upcoming, event)
		}
	}
	return upcoming
}

// DeriveFinished выбирает завершённые события со стартом до now,
// последние первыми.
func DeriveFinished(events []models.Event, now time.Time) []models.Event {
	finished := make([]models.Event, 0)
	// Обратный проход переворачивает возрастание старта в убывание.
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if event.Status == models.EventStatusFinished && event.StartsAt.Before(now) {
			finished = append(finished, event)
		}
	}
	return finished
}

func (s *eventService) Register(ctx context.Context, eventID int64, user *usermodels.User) (*models.RegistrationResult, error) {
	event, err := s.repo.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return nil, apperrors.NewEventNotFoundError(eventID)
		}
		return nil, apperrors.NewDatabaseError("load event", err)
	}

	if event.Status == models.EventStatusCancelled || !event.StartsAt.After(s.now()) {
		return nil, apperrors.New(apperrors.ErrCodeEventNotOpen, "Event is not open for registration").
			WithDetail("event_id", eventID)
	}

	key := inFlightKey(eventID, user.ID)
	if _, loaded := s.inFlight.LoadOrStore(key, struct{}{}); loaded {
		return nil, apperrors.New(apperrors.ErrCodeRegistrationInFlight, "Registration already in progress").
			WithDetail("event_id", eventID)
	}
	defer s.inFlight.Delete(key)

	reply, err := s.workflow.Register(ctx, webhook.RegistrationRequest{
		EventID:    eventID,
		UserID:     user.ID,
		TelegramID: user.TelegramID,
	})
	if err != nil {
		return nil, apperrors.NewExternalAPIError("registration webhook", err)
	}

	if reply.BareAck {
		// Голый acknowledgement: workflow не сообщил ничего осмысленного,
		// регистрация считается не завершённой и требует повтора.
		return nil, apperrors.New(apperrors.ErrCodeRegistrationAmbiguous,
			"Registration did not complete, please retry").
			WithDetail("event_id", eventID)
	}

	if reply.Paylink != "" {
		logger.Info().
			Int64("event_id", eventID).
			Int64("user_id", user.ID).
			Msg("Registration accepted, awaiting payment")
		return &models.RegistrationResult{
			EventID: eventID,
			State:   models.RegistrationStatePending,
			Paylink: reply.Paylink,
		}, nil
	}

	// Успех без ссылки: немедленный ответ workflow не отражает итогового
	// статуса, перечитываем строку участника.
	status, err := s.ParticipantStatus(ctx, eventID, user.ID)
	if err != nil {
		return nil, err
	}
	if !status.Registered {
		return nil, apperrors.New(apperrors.ErrCodeRegistrationAmbiguous,
			"Registration did not complete, please retry").
			WithDetail("event_id", eventID)
	}

	return &models.RegistrationResult{
		EventID: eventID,
		State:   stateForPayment(status.PaymentStatus),
		Paylink: status.Paylink,
	}, nil
}

func (s *eventService) ParticipantStatus(ctx context.Context, eventID, userID int64) (*models.ParticipantStatus, error) {
	participant, err := s.repo.Participant(ctx, eventID, userID)
	if err != nil {
		if err == repository.ErrParticipantNotFound {
			return &models.ParticipantStatus{
				EventID:       eventID,
				Registered:    false,
				PaymentStatus: models.PaymentStatusNone,
			}, nil
		}
		return nil, apperrors.NewDatabaseError("load participant", err)
	}

	return &models.ParticipantStatus{
		EventID:       eventID,
		Registered:    true,
		PaymentStatus: participant.PaymentStatus,
		Paylink:       participant.Paylink,
	}, nil
}

// stateForPayment переводит статус оплаты в состояние регистрации.
// Существующая строка без оплаты — это всё ещё регистрация в ожидании.
func stateForPayment(paymentStatus string) string {
	if paymentStatus == models.PaymentStatusPaid {
		return models.RegistrationStatePaid
	}
	return models.RegistrationStatePending
}

func inFlightKey(eventID, userID int64) string {
	return fmt.Sprintf("%d:%d", eventID, userID)
}
