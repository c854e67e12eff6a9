package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"clubtac-rating-backend/internal/features/event/models"
	"clubtac-rating-backend/internal/features/event/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.EventRepository {
	return &postgresRepository{db: db}
}

const eventColumns = `
	e.id, e.club_id, e.type, e.title, e.address, e.price, e.duration,
	e.starts_at, e.status, COALESCE(e.description, ''), COALESCE(c.name, '')
`

// All: все события клуба, ближайшие к началу списка.
func (r *postgresRepository) All(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events e
		LEFT JOIN clubs c ON c.id = e.club_id
		ORDER BY e.starts_at ASC
	`, eventColumns)

	return r.queryEvents(ctx, query)
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events e
		LEFT JOIN clubs c ON c.id = e.club_id
		WHERE e.id = $1
	`, eventColumns)

	var event models.Event
	err := r.scanEvent(r.db.QueryRowContext(ctx, query, id), &event)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

func (r *postgresRepository) Participant(ctx context.Context, eventID, userID int64) (*models.Participant, error) {
	query := `
		SELECT event_id, user_id, payment_status, COALESCE(paylink, ''), created_at, updated_at
		FROM event_participants
		WHERE event_id = $1 AND user_id = $2
	`

	var p models.Participant
	err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(
		&p.EventID, &p.UserID, &p.PaymentStatus, &p.Paylink, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return &p, nil
}

func (r *postgresRepository) PendingParticipants(ctx context.Context) ([]models.Participant, error) {
	query := `
		SELECT event_id, user_id, payment_status, COALESCE(paylink, ''), created_at, updated_at
		FROM event_participants
		WHERE payment_status = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, models.PaymentStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		err := rows.Scan(&p.EventID, &p.UserID, &p.PaymentStatus, &p.Paylink, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

func (r *postgresRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := r.scanEvent(rows, &event); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresRepository) scanEvent(row rowScanner, event *models.Event) error {
	return row.Scan(&event.ID, &event.ClubID, &event.Type, &event.Title,
		&event.Address, &event.Price, &event.Duration, &event.StartsAt,
		&event.Status, &event.Description, &event.ClubName)
}
