package service

import (
	"context"
	"encoding/json"
	"time"

	"clubtac-rating-backend/internal/common/cache"
	apperrors "clubtac-rating-backend/internal/common/errors"
	"clubtac-rating-backend/internal/features/stats/models"
	"clubtac-rating-backend/internal/features/stats/repository"
	usermodels "clubtac-rating-backend/internal/features/user/models"
	userrepo "clubtac-rating-backend/internal/features/user/repository"
)

const statsCacheTTL = time.Minute

// FinishedEventSource отдаёт краткие карточки завершённых событий для
// привязки к дням истории игр. Реализуется фичей событий.
type FinishedEventSource interface {
	FinishedEventSummaries(ctx context.Context) ([]models.EventSummary, error)
}

type StatsService interface {
	// GetPlayerStats собирает профиль статистики по идентичности пользователя.
	// Ровно один из telegramID/username должен быть задан.
	GetPlayerStats(ctx context.Context, telegramID int64, username string) (*models.PlayerStats, error)
	PlayerRankings(ctx context.Context) ([]models.PlayerRanking, error)
	TeamRankings(ctx context.Context) ([]models.TeamRanking, error)
	GameHistory(ctx context.Context) (*models.GameHistory, error)
}

type statsService struct {
	repo     repository.StatsRepository
	users    userrepo.UserRepository
	events   FinishedEventSource
	cache    *cache.Service
	location *time.Location
}

func NewStatsService(repo repository.StatsRepository, users userrepo.UserRepository, events FinishedEventSource, cacheSvc *cache.Service, location *time.Location) StatsService {
	if location == nil {
		location = time.UTC
	}
	return &statsService{
		repo:     repo,
		users:    users,
		events:   events,
		cache:    cacheSvc,
		location: location,
	}
}

func (s *statsService) GetPlayerStats(ctx context.Context, telegramID int64, username string) (*models.PlayerStats, error) {
	user, err := s.resolveUser(ctx, telegramID, username)
	if err != nil {
		return nil, err
	}

	result := &models.PlayerStats{
		User:         user,
		RecentGames:  []models.Game{},
		BestPartners: []models.PartnerStat{},
	}

	// Строку рейтинга ищем по имени, затем по внутреннему ID. Отсутствие —
	// пустой результат, не ошибка: новичок ещё не сыграл ни одной игры.
	ranking, err := s.lookupRanking(ctx, user)
	if err != nil {
		return nil, err
	}
	result.Stats = ranking

	if user.Username == "" {
		return result, nil
	}

	games, err := s.repo.RecentGames(ctx, recentGamesWindow)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load recent games", err)
	}

	result.RecentGames = RecentGamesFor(games, user.Username)
	if ranking != nil {
		result.BestPartners = BestPartners(games, user.Username)
	}

	return result, nil
}

func (s *statsService) resolveUser(ctx context.Context, telegramID int64, username string) (*usermodels.User, error) {
	var (
		user *usermodels.User
		err  error
	)

	switch {
	case telegramID != 0:
		user, err = s.users.GetByTelegramID(ctx, telegramID)
	case username != "":
		user, err = s.users.GetByUsername(ctx, username)
	default:
		return nil, apperrors.NewValidationError("telegram_id", "telegram_id or username required")
	}

	if err != nil {
		if err == userrepo.ErrUserNotFound {
			if telegramID != 0 {
				return nil, apperrors.NewUserNotFoundError(telegramID)
			}
			return nil, apperrors.NewUserNotFoundError(username)
		}
		return nil, apperrors.NewDatabaseError("find user", err)
	}

	return user, nil
}

func (s *statsService) lookupRanking(ctx context.Context, user *usermodels.User) (*models.PlayerRanking, error) {
	var (
		ranking *models.PlayerRanking
		err     error
	)

	switch {
	case user.Username != "":
		ranking, err = s.repo.RankingByUsername(ctx, user.Username)
	case user.ID != 0:
		ranking, err = s.repo.RankingByUserID(ctx, user.ID)
	default:
		return nil, nil
	}

	if err != nil {
		if err == repository.ErrRankingNotFound {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("load ranking", err)
	}

	return ranking, nil
}

func (s *statsService) PlayerRankings(ctx context.Context) ([]models.PlayerRanking, error) {
	var rankings []models.PlayerRanking
	err := s.cached(ctx, cache.KeyPlayerRankings, &rankings, func() (interface{}, error) {
		return s.repo.PlayerRankings(ctx)
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("load player rankings", err)
	}
	return rankings, nil
}

func (s *statsService) TeamRankings(ctx context.Context) ([]models.TeamRanking, error) {
	var teams []models.TeamRanking
	err := s.cached(ctx, cache.KeyTeamRankings, &teams, func() (interface{}, error) {
		return s.repo.TeamRankings(ctx)
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("load team rankings", err)
	}
	return teams, nil
}

// cached оборачивает загрузку в кэш; без Redis (в тестах) идёт напрямую в базу.
func (s *statsService) cached(ctx context.Context, key string, dest interface{}, load func() (interface{}, error)) error {
	if s.cache == nil {
		value, err := load()
		if err != nil {
			return err
		}
		return copyValue(value, dest)
	}
	return s.cache.GetOrSet(ctx, key, dest, statsCacheTTL, load)
}

func copyValue(value, dest interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// GameHistory группирует все игры по календарным дням клуба и привязывает
// к дню завершённое событие той же даты (первое совпадение).
func (s *statsService) GameHistory(ctx context.Context) (*models.GameHistory, error) {
	var history models.GameHistory
	err := s.cached(ctx, cache.KeyGameHistory, &history, func() (interface{}, error) {
		return s.loadGameHistory(ctx)
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.NewDatabaseError("load game history", err)
	}
	return &history, nil
}

func (s *statsService) loadGameHistory(ctx context.Context) (*models.GameHistory, error) {
	games, err := s.repo.AllGames(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load games", err)
	}

	rankings, err := s.repo.PlayerRankings(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load player rankings", err)
	}

	var summaries []models.EventSummary
	if s.events != nil {
		summaries, err = s.events.FinishedEventSummaries(ctx)
		if err != nil {
			// История игр живёт и без привязки событий.
			summaries = nil
		}
	}

	history := &models.GameHistory{
		Days:        GroupGamesByDay(games, summaries, s.location),
		PlayerIDMap: make(map[string]int64, len(rankings)),
	}
	for _, ranking := range rankings {
		history.PlayerIDMap[ranking.Username] = ranking.UserID
	}

	return history, nil
}

// GroupGamesByDay режет список игр (новые первыми) на группы по календарной
// дате в заданном часовом поясе, сохраняя исходный порядок.
func GroupGamesByDay(games []models.Game, events []models.EventSummary, location *time.Location) []models.GameDay {
	if location == nil {
		location = time.UTC
	}

	eventByDate := make(map[string]*models.EventSummary)
	for i := range events {
		date := events[i].StartsAt.In(location).Format("2006-01-02")
		if _, taken := eventByDate[date]; !taken {
			eventByDate[date] = &events[i]
		}
	}

	var days []models.GameDay
	index := make(map[string]int)
	for _, game := range games {
		date := game.CreatedAt.In(location).Format("2006-01-02")
		i, seen := index[date]
		if !seen {
			i = len(days)
			index[date] = i
			days = append(days, models.GameDay{
				Date:  date,
				Event: eventByDate[date],
			})
		}
		days[i].Games = append(days[i].Games, game)
	}

	return days
}
