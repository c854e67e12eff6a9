package models

import "time"

// Статусы события. Переходы scheduled → finished|cancelled делает бэкенд.
const (
	EventStatusScheduled = "scheduled"
	EventStatusFinished  = "finished"
	EventStatusCancelled = "cancelled"
)

// Статусы оплаты участника. Меняются внешним платёжным workflow.
const (
	PaymentStatusNone    = "none"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Event — анонс или прошедшая активность клуба.
type Event struct {
	ID          int64     `json:"id"`
	ClubID      int64     `json:"club_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Address     string    `json:"address"`
	Price       int       `json:"price"`
	Duration    int       `json:"duration"`
	StartsAt    time.Time `json:"starts_at"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	ClubName    string    `json:"club_name,omitempty"`
}

// Participant — связка пользователь-событие со статусом оплаты.
// Строку создаёт внешний workflow регистрации, приложение её только читает.
type Participant struct {
	EventID       int64     `json:"event_id"`
	UserID        int64     `json:"user_id"`
	PaymentStatus string    `json:"payment_status"`
	Paylink       string    `json:"paylink,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Состояния регистрации на событие с точки зрения пользователя.
const (
	RegistrationStateIdle       = "idle"
	RegistrationStateSubmitting = "submitting"
	RegistrationStatePending    = "registered-pending-payment"
	RegistrationStatePaid       = "registered-paid"
	RegistrationStateFailed     = "failed"
)

// RegistrationResult — итог попытки регистрации, отдаваемый Mini App.
type RegistrationResult struct {
	EventID int64  `json:"event_id"`
	State   string `json:"state"`
	Paylink string `json:"paylink,omitempty"`
}

// ParticipantStatus — ответ на запрос статуса участия.
type ParticipantStatus struct {
	EventID       int64  `json:"event_id"`
	Registered    bool   `json:"registered"`
	PaymentStatus string `json:"payment_status"`
	Paylink       string `json:"paylink,omitempty"`
}
