package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clubtac-rating-backend/internal/common/logger"
	"clubtac-rating-backend/internal/features/event/models"
	"clubtac-rating-backend/internal/features/event/repository"
	"clubtac-rating-backend/internal/platform/redis"
)

const defaultPollInterval = 10 * time.Second

// Notifier получает уведомление о подтверждённой оплате. Реализуется
// Telegram-клиентом, в тестах подменяется.
type Notifier interface {
	NotifyPayment(chatID int64, eventTitle string) error
}

// TelegramIDResolver отдаёт Telegram chat ID по внутреннему ID пользователя.
type TelegramIDResolver func(ctx context.Context, userID int64) (int64, bool)

// UpdateMessage — сообщение платёжного workflow в Pub/Sub канале.
type UpdateMessage struct {
	EventID int64 `json:"event_id"`
	UserID  int64 `json:"user_id"`
}

// Syncer сводит локальное представление статусов оплаты с базой.
// Подтверждение оплаты приходит out-of-band, поэтому есть два пути:
// push-подписка на Pub/Sub и страховочный опрос по таймеру. Оба пути
// зовут один и тот же идемпотентный Resync — одновременное срабатывание
// безопасно, побеждает последнее чтение.
type Syncer struct {
	repo         repository.EventRepository
	rdb          *redis.Client
	channel      string
	pollInterval time.Duration
	notifier     Notifier
	resolveChat  TelegramIDResolver
	log          zerolog.Logger

	mu       sync.Mutex
	statuses map[string]string // "eventID:userID" → payment status
}

func New(repo repository.EventRepository, rdb *redis.Client, channel string, pollInterval time.Duration) *Syncer {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Syncer{
		repo:         repo,
		rdb:          rdb,
		channel:      channel,
		pollInterval: pollInterval,
		log:          logger.Component("payment-sync"),
		statuses:     make(map[string]string),
	}
}

// WithNotifier включает уведомления о подтверждённой оплате.
func (s *Syncer) WithNotifier(n Notifier, resolve TelegramIDResolver) *Syncer {
	s.notifier = n
	s.resolveChat = resolve
	return s
}

// Start запускает push-подписку и поллер; оба живут до отмены контекста.
func (s *Syncer) Start(ctx context.Context) {
	go s.runSubscription(ctx)
	go s.runPoller(ctx)
}

func (s *Syncer) runSubscription(ctx context.Context) {
	for {
		if err := s.consumeChannel(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Msg("Payment update subscription dropped, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *Syncer) consumeChannel(ctx context.Context) error {
	messages, closeSub, err := s.rdb.SubscribeChannel(ctx, s.channel)
	if err != nil {
		return err
	}
	defer closeSub()

	s.log.Info().Str("channel", s.channel).Msg("Subscribed to payment updates")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, open := <-messages:
			if !open {
				return fmt.Errorf("subscription channel closed")
			}

			var update UpdateMessage
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				s.log.Warn().Err(err).Str("payload", msg.Payload).Msg("Malformed payment update")
				continue
			}

			if err := s.Resync(ctx, update.EventID, update.UserID); err != nil {
				s.log.Error().Err(err).
					Int64("event_id", update.EventID).
					Int64("user_id", update.UserID).
					Msg("Failed to resync after push update")
			}
		}
	}
}

func (s *Syncer) runPoller(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pollPending(ctx); err != nil {
				s.log.Error().Err(err).Msg("Payment status poll failed")
			}
		}
	}
}

func (s *Syncer) pollPending(ctx context.Context) error {
	pending, err := s.repo.PendingParticipants(ctx)
	if err != nil {
		return err
	}

	for _, p := range pending {
		if err := s.Resync(ctx, p.EventID, p.UserID); err != nil {
			s.log.Error().Err(err).
				Int64("event_id", p.EventID).
				Int64("user_id", p.UserID).
				Msg("Failed to resync pending participant")
		}
	}

	return nil
}

// Resync перечитывает строку участия и заменяет локальный статус прочитанным.
// Чистое перечитывание без дельт: сколько бы путей ни сработало одновременно,
// итог один и тот же.
func (s *Syncer) Resync(ctx context.Context, eventID, userID int64) error {
	participant, err := s.repo.Participant(ctx, eventID, userID)
	if err != nil {
		if err == repository.ErrParticipantNotFound {
			s.setStatus(eventID, userID, models.PaymentStatusNone)
			return nil
		}
		return err
	}

	previous := s.setStatus(eventID, userID, participant.PaymentStatus)

	if participant.PaymentStatus == models.PaymentStatusPaid && previous != models.PaymentStatusPaid {
		s.notifyPaid(ctx, participant)
	}

	return nil
}

// Status возвращает последний известный статус оплаты пары событие/пользователь.
func (s *Syncer) Status(eventID, userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.statuses[statusKey(eventID, userID)]; ok {
		return status
	}
	return models.PaymentStatusNone
}

func (s *Syncer) setStatus(eventID, userID int64, status string) (previous string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := statusKey(eventID, userID)
	previous = s.statuses[key]
	s.statuses[key] = status
	return previous
}

func (s *Syncer) notifyPaid(ctx context.Context, participant *models.Participant) {
	if s.notifier == nil || s.resolveChat == nil {
		return
	}

	chatID, ok := s.resolveChat(ctx, participant.UserID)
	if !ok {
		return
	}

	title := ""
	if event, err := s.repo.GetByID(ctx, participant.EventID); err == nil {
		title = event.Title
	}

	// Уведомление — best effort, статус уже сохранён.
	if err := s.notifier.NotifyPayment(chatID, title); err != nil {
		s.log.Warn().Err(err).Int64("user_id", participant.UserID).Msg("Payment notification failed")
	}
}

func statusKey(eventID, userID int64) string {
	return fmt.Sprintf("%d:%d", eventID, userID)
}
