package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clubtac-rating-backend/internal/common/errors"
	"clubtac-rating-backend/internal/features/stats/models"
	"clubtac-rating-backend/internal/features/stats/repository"
	usermodels "clubtac-rating-backend/internal/features/user/models"
	userrepo "clubtac-rating-backend/internal/features/user/repository"
)

type fakeStatsRepo struct {
	rankings []models.PlayerRanking
	teams    []models.TeamRanking
	games    []models.Game
}

func (r *fakeStatsRepo) PlayerRankings(ctx context.Context) ([]models.PlayerRanking, error) {
	return r.rankings, nil
}

func (r *fakeStatsRepo) TeamRankings(ctx context.Context) ([]models.TeamRanking, error) {
	return r.teams, nil
}

func (r *fakeStatsRepo) RankingByUsername(ctx context.Context, username string) (*models.PlayerRanking, error) {
	for i := range r.rankings {
		if r.rankings[i].Username == username {
			return &r.rankings[i], nil
		}
	}
	return nil, repository.ErrRankingNotFound
}

func (r *fakeStatsRepo) RankingByUserID(ctx context.Context, userID int64) (*models.PlayerRanking, error) {
	for i := range r.rankings {
		if r.rankings[i].UserID == userID {
			return &r.rankings[i], nil
		}
	}
	return nil, repository.ErrRankingNotFound
}

func (r *fakeStatsRepo) RecentGames(ctx context.Context, limit int) ([]models.Game, error) {
	if len(r.games) > limit {
		return r.games[:limit], nil
	}
	return r.games, nil
}

func (r *fakeStatsRepo) AllGames(ctx context.Context) ([]models.Game, error) {
	return r.games, nil
}

type fakeUserRepo struct {
	users []*usermodels.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *usermodels.User) (*usermodels.User, error) {
	return user, nil
}

func (r *fakeUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*usermodels.User, error) {
	for _, u := range r.users {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, userrepo.ErrUserNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*usermodels.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, userrepo.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*usermodels.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, userrepo.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *usermodels.User) error {
	return nil
}

func TestGetPlayerStatsFullProfile(t *testing.T) {
	base := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	stats := &fakeStatsRepo{
		rankings: []models.PlayerRanking{
			{Place: 1, UserID: 10, Username: "alice", GamesPlayed: 20, Wins: 15, WinRate: 75},
		},
		games: []models.Game{
			game(3, "alice", "bob", "dave", "eve", 5, 3, base.Add(2*time.Hour)),
			game(2, "alice", "bob", "dave", "eve", 4, 2, base.Add(time.Hour)),
			game(1, "dave", "eve", "alice", "bob", 1, 6, base),
		},
	}
	users := &fakeUserRepo{users: []*usermodels.User{
		{ID: 10, TelegramID: 100500, Username: "alice", FirstName: "Alice"},
	}}
	svc := NewStatsService(stats, users, nil, nil, time.UTC)

	profile, err := svc.GetPlayerStats(context.Background(), 100500, "")

	require.NoError(t, err)
	require.NotNil(t, profile.Stats)
	assert.Equal(t, 1, profile.Stats.Place)
	assert.Len(t, profile.RecentGames, 3)
	require.Len(t, profile.BestPartners, 1)
	assert.Equal(t, "bob", profile.BestPartners[0].Name)
	assert.Equal(t, 100, profile.BestPartners[0].WinRate)
}

func TestGetPlayerStatsNoRankingRow(t *testing.T) {
	// Новичок без строки рейтинга: пустой профиль, не ошибка. Напарники
	// не считаются, недавние игры отдаются.
	base := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	stats := &fakeStatsRepo{
		games: []models.Game{
			game(1, "alice", "bob", "dave", "eve", 5, 3, base),
		},
	}
	users := &fakeUserRepo{users: []*usermodels.User{
		{ID: 10, TelegramID: 100500, Username: "alice", FirstName: "Alice"},
	}}
	svc := NewStatsService(stats, users, nil, nil, time.UTC)

	profile, err := svc.GetPlayerStats(context.Background(), 100500, "")

	require.NoError(t, err)
	assert.Nil(t, profile.Stats)
	assert.Len(t, profile.RecentGames, 1)
	assert.Empty(t, profile.BestPartners)
}

func TestGetPlayerStatsWithoutUsername(t *testing.T) {
	// Без username игрок не фигурирует в слотах игр: история и напарники пусты.
	stats := &fakeStatsRepo{
		games: []models.Game{
			game(1, "alice", "bob", "dave", "eve", 5, 3, time.Now()),
		},
	}
	users := &fakeUserRepo{users: []*usermodels.User{
		{ID: 10, TelegramID: 100500, FirstName: "Аноним"},
	}}
	svc := NewStatsService(stats, users, nil, nil, time.UTC)

	profile, err := svc.GetPlayerStats(context.Background(), 100500, "")

	require.NoError(t, err)
	assert.Empty(t, profile.RecentGames)
	assert.Empty(t, profile.BestPartners)
}

func TestGetPlayerStatsRequiresIdentity(t *testing.T) {
	svc := NewStatsService(&fakeStatsRepo{}, &fakeUserRepo{}, nil, nil, time.UTC)

	_, err := svc.GetPlayerStats(context.Background(), 0, "")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsValidation())
}

func TestGetPlayerStatsUnknownUser(t *testing.T) {
	svc := NewStatsService(&fakeStatsRepo{}, &fakeUserRepo{}, nil, nil, time.UTC)

	_, err := svc.GetPlayerStats(context.Background(), 0, "ghost")

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsNotFound())
}

func TestGameHistoryBuildsPlayerIDMap(t *testing.T) {
	base := time.Date(2025, 3, 1, 19, 0, 0, 0, time.UTC)
	stats := &fakeStatsRepo{
		rankings: []models.PlayerRanking{
			{Place: 1, UserID: 10, Username: "alice"},
			{Place: 2, UserID: 11, Username: "bob"},
		},
		games: []models.Game{
			game(1, "alice", "bob", "dave", "eve", 5, 3, base),
		},
	}
	svc := NewStatsService(stats, &fakeUserRepo{}, nil, nil, time.UTC)

	history, err := svc.GameHistory(context.Background())

	require.NoError(t, err)
	require.Len(t, history.Days, 1)
	assert.Equal(t, int64(10), history.PlayerIDMap["alice"])
	assert.Equal(t, int64(11), history.PlayerIDMap["bob"])
}
