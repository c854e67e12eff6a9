package repository

import (
	"context"
	"errors"

	"clubtac-rating-backend/internal/features/event/models"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrParticipantNotFound = errors.New("participant not found")
)

type EventRepository interface {
	// All возвращает все события по возрастанию времени старта. Список
	// невелик (анонсы одного клуба), производные представления строит сервис.
	All(ctx context.Context) ([]models.Event, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	// Participant читает строку участия; её пишет внешний workflow.
	Participant(ctx context.Context, eventID, userID int64) (*models.Participant, error)
	// PendingParticipants возвращает участия, ждущие подтверждения оплаты.
	PendingParticipants(ctx context.Context) ([]models.Participant, error)
}
