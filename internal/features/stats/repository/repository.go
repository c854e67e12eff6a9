package repository

import (
	"context"
	"errors"

	"clubtac-rating-backend/internal/features/stats/models"
)

var ErrRankingNotFound = errors.New("ranking row not found")

type StatsRepository interface {
	// PlayerRankings возвращает рейтинг игроков, отсортированный по месту.
	PlayerRankings(ctx context.Context) ([]models.PlayerRanking, error)
	// TeamRankings возвращает рейтинг пар, отсортированный по рангу.
	TeamRankings(ctx context.Context) ([]models.TeamRanking, error)
	// RankingByUsername ищет строку рейтинга по отображаемому имени.
	RankingByUsername(ctx context.Context, username string) (*models.PlayerRanking, error)
	// RankingByUserID ищет строку рейтинга по внутреннему ID пользователя.
	RankingByUserID(ctx context.Context, userID int64) (*models.PlayerRanking, error)
	// RecentGames возвращает игры от новых к старым, не больше limit.
	RecentGames(ctx context.Context, limit int) ([]models.Game, error)
	// AllGames возвращает всю историю игр от новых к старым.
	AllGames(ctx context.Context) ([]models.Game, error)
}
