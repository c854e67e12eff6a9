package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"clubtac-rating-backend/internal/features/user/models"
	"clubtac-rating-backend/internal/features/user/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.UserRepository {
	return &postgresRepository{db: db}
}

// Create создает нового пользователя. Повторная вставка того же telegram_id
// не плодит дублей: конфликт обновляет профиль и возвращает существующую строку.
func (r *postgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO clubtac_users (telegram_id, username, first_name, last_name)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''))
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = NOW()
		RETURNING id, telegram_id, COALESCE(username, ''), first_name, COALESCE(last_name, ''), created_at, updated_at
	`

	var created models.User
	err := r.db.QueryRowContext(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName).Scan(
		&created.ID, &created.TelegramID, &created.Username,
		&created.FirstName, &created.LastName, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &created, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (r *postgresRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.getOne(ctx, "telegram_id = $1", telegramID)
}

// GetByUsername получает пользователя по username
func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

// GetByID получает пользователя по внутреннему ID
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *postgresRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, telegram_id, COALESCE(username, ''), first_name, COALESCE(last_name, ''), created_at, updated_at
		FROM clubtac_users
		WHERE %s
	`, where)

	var user models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.FirstName,
		&user.LastName, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// Update обновляет профильные поля пользователя
func (r *postgresRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE clubtac_users
		SET username = NULLIF($2, ''), first_name = $3, last_name = NULLIF($4, ''), updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}
