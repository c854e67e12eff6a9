package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"clubtac-rating-backend/internal/features/stats/models"
	"clubtac-rating-backend/internal/features/stats/repository"
)

// Рейтинги лежат в представлениях, которые пересчитывает бэкенд;
// приложение их не пишет.
const (
	playerRankingView = "players_hall_of_fame_ranked"
	teamRankingView   = "teams_ranked"
	gamesView         = "games_summary"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.StatsRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) PlayerRankings(ctx context.Context) ([]models.PlayerRanking, error) {
	query := fmt.Sprintf(`
		SELECT place, user_id, username, games_played, wins, win_rate, points
		FROM %s
		ORDER BY place
	`, playerRankingView)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query player rankings: %w", err)
	}
	defer rows.Close()

	var rankings []models.PlayerRanking
	for rows.Next() {
		ranking, err := scanRanking(rows)
		if err != nil {
			return nil, err
		}
		rankings = append(rankings, *ranking)
	}

	return rankings, rows.Err()
}

func (r *postgresRepository) TeamRankings(ctx context.Context) ([]models.TeamRanking, error) {
	query := fmt.Sprintf(`
		SELECT rank, player_1_id, player_1_username, player_2_id, player_2_username, games_played, wins
		FROM %s
		ORDER BY rank
	`, teamRankingView)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query team rankings: %w", err)
	}
	defer rows.Close()

	var teams []models.TeamRanking
	for rows.Next() {
		var team models.TeamRanking
		err := rows.Scan(&team.Rank, &team.Player1ID, &team.Player1Username,
			&team.Player2ID, &team.Player2Username, &team.GamesPlayed, &team.Wins)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team ranking: %w", err)
		}
		teams = append(teams, team)
	}

	return teams, rows.Err()
}

func (r *postgresRepository) RankingByUsername(ctx context.Context, username string) (*models.PlayerRanking, error) {
	return r.rankingWhere(ctx, "username = $1", username)
}

func (r *postgresRepository) RankingByUserID(ctx context.Context, userID int64) (*models.PlayerRanking, error) {
	return r.rankingWhere(ctx, "user_id = $1", userID)
}

func (r *postgresRepository) rankingWhere(ctx context.Context, where string, arg interface{}) (*models.PlayerRanking, error) {
	query := fmt.Sprintf(`
		SELECT place, user_id, username, games_played, wins, win_rate, points
		FROM %s
		WHERE %s
	`, playerRankingView, where)

	ranking, err := scanRanking(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrRankingNotFound
		}
		return nil, err
	}

	return ranking, nil
}

func (r *postgresRepository) RecentGames(ctx context.Context, limit int) ([]models.Game, error) {
	query := fmt.Sprintf(`
		SELECT game_id, created_at, player_1_1, player_1_2, player_2_1, player_2_2, score_1, score_2
		FROM %s
		ORDER BY created_at DESC
		LIMIT $1
	`, gamesView)

	return r.queryGames(ctx, query, limit)
}

func (r *postgresRepository) AllGames(ctx context.Context) ([]models.Game, error) {
	query := fmt.Sprintf(`
		SELECT game_id, created_at, player_1_1, player_1_2, player_2_1, player_2_2, score_1, score_2
		FROM %s
		ORDER BY created_at DESC
	`, gamesView)

	return r.queryGames(ctx, query)
}

func (r *postgresRepository) queryGames(ctx context.Context, query string, args ...interface{}) ([]models.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var game models.Game
		err := rows.Scan(&game.GameID, &game.CreatedAt,
			&game.Player11, &game.Player12, &game.Player21, &game.Player22,
			&game.Score1, &game.Score2)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRanking(row rowScanner) (*models.PlayerRanking, error) {
	var ranking models.PlayerRanking
	var points sql.NullFloat64

	err := row.Scan(&ranking.Place, &ranking.UserID, &ranking.Username,
		&ranking.GamesPlayed, &ranking.Wins, &ranking.WinRate, &points)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan player ranking: %w", err)
	}

	if points.Valid {
		ranking.Points = &points.Float64
	}

	return &ranking, nil
}
