package models

import "time"

// User представляет пользователя клуба. Telegram ID — внешняя идентичность,
// ID — внутренний ключ, по нему связаны участия в событиях.
type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName — имя, под которым игрок фигурирует в играх и рейтингах.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// AuthRequest — тело запроса аутентификации из Mini App.
type AuthRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
}

// AuthResponse — результат аутентификации.
type AuthResponse struct {
	User *User `json:"user"`
}
