package service

import (
	"math"
	"sort"

	"clubtac-rating-backend/internal/features/stats/models"
)

const (
	// Окно игр, из которого считаются личная история и напарники.
	recentGamesWindow = 100
	// Сколько последних игр показывается в профиле.
	recentGamesLimit = 10
	// Минимум совместных игр, чтобы напарник попал в топ.
	minPartnerGames = 3
	// Размер топа напарников.
	topPartnersLimit = 3
)

// RecentGamesFor выбирает из списка (новые первыми) игры с участием name
// и обрезает до лимита профиля.
func RecentGamesFor(games []models.Game, name string) []models.Game {
	recent := make([]models.Game, 0, recentGamesLimit)
	for _, game := range games {
		if !game.HasPlayer(name) {
			continue
		}
		recent = append(recent, game)
		if len(recent) == recentGamesLimit {
			break
		}
	}
	return recent
}

// BestPartners строит топ напарников пользователя по проценту побед.
// Детерминирована и не зависит от порядка игр на входе: при равном проценте
// побеждает лексикографически меньшее имя.
func BestPartners(games []models.Game, name string) []models.PartnerStat {
	type tally struct {
		games int
		wins  int
	}
	partners := make(map[string]*tally)

	for _, game := range games {
		partner, onFirstTeam, ok := teammateOf(&game, name)
		if !ok || partner == "" {
			continue
		}

		t := partners[partner]
		if t == nil {
			t = &tally{}
			partners[partner] = t
		}
		t.games++

		won := game.Score1 > game.Score2
		if !onFirstTeam {
			won = game.Score2 > game.Score1
		}
		if won {
			t.wins++
		}
	}

	stats := make([]models.PartnerStat, 0, len(partners))
	for partner, t := range partners {
		if t.games < minPartnerGames {
			continue
		}
		stats = append(stats, models.PartnerStat{
			Name:    partner,
			Games:   t.games,
			Wins:    t.wins,
			WinRate: int(math.Round(float64(t.wins) / float64(t.games) * 100)),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].WinRate != stats[j].WinRate {
			return stats[i].WinRate > stats[j].WinRate
		}
		return stats[i].Name < stats[j].Name
	})

	if len(stats) > topPartnersLimit {
		stats = stats[:topPartnersLimit]
	}
	return stats
}

// teammateOf возвращает напарника name в игре и номер его команды.
func teammateOf(game *models.Game, name string) (partner string, onFirstTeam bool, ok bool) {
	switch name {
	case game.Player11:
		return game.Player12, true, true
	case game.Player12:
		return game.Player11, true, true
	case game.Player21:
		return game.Player22, false, true
	case game.Player22:
		return game.Player21, false, true
	}
	return "", false, false
}
