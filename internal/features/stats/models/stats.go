package models

import (
	"time"

	usermodels "clubtac-rating-backend/internal/features/user/models"
)

// Game — неизменяемая историческая запись об игре 2x2.
// Слоты игроков хранят отображаемые имена, не ID.
type Game struct {
	GameID    int64     `json:"game_id"`
	CreatedAt time.Time `json:"created_at"`
	Player11  string    `json:"player_1_1"`
	Player12  string    `json:"player_1_2"`
	Player21  string    `json:"player_2_1"`
	Player22  string    `json:"player_2_2"`
	Score1    int       `json:"score_1"`
	Score2    int       `json:"score_2"`
}

// HasPlayer сообщает, занимает ли имя любой из четырёх слотов.
func (g *Game) HasPlayer(name string) bool {
	return g.Player11 == name || g.Player12 == name ||
		g.Player21 == name || g.Player22 == name
}

// PlayerRanking — строка рейтинга игроков, пересчитываемая бэкендом.
// Клиент её только читает.
type PlayerRanking struct {
	Place       int      `json:"place"`
	UserID      int64    `json:"user_id"`
	Username    string   `json:"username"`
	GamesPlayed int      `json:"games_played"`
	Wins        int      `json:"wins"`
	WinRate     int      `json:"win_rate"`
	Points      *float64 `json:"points,omitempty"`
}

// TeamRanking — строка рейтинга пар.
type TeamRanking struct {
	Rank            int    `json:"rank"`
	Player1ID       int64  `json:"player_1_id"`
	Player1Username string `json:"player_1_username"`
	Player2ID       int64  `json:"player_2_id"`
	Player2Username string `json:"player_2_username"`
	GamesPlayed     int    `json:"games_played"`
	Wins            int    `json:"wins"`
}

// WinRatePercent вычисляет процент побед пары.
func (t *TeamRanking) WinRatePercent() int {
	if t.GamesPlayed == 0 {
		return 0
	}
	return int(float64(t.Wins)/float64(t.GamesPlayed)*100 + 0.5)
}

// PartnerStat — агрегат по напарнику из недавних игр пользователя.
type PartnerStat struct {
	Name    string `json:"name"`
	Games   int    `json:"games"`
	Wins    int    `json:"wins"`
	WinRate int    `json:"winRate"`
}

// PlayerStats — полный профиль статистики, отдаваемый Mini App.
// Stats может быть nil: отсутствие строки рейтинга — валидный пустой
// результат, а не ошибка.
type PlayerStats struct {
	User         *usermodels.User `json:"user"`
	Stats        *PlayerRanking   `json:"stats"`
	RecentGames  []Game           `json:"recentGames"`
	BestPartners []PartnerStat    `json:"bestPartners"`
}

// EventSummary — краткая карточка завершённого события для привязки к дню игр.
type EventSummary struct {
	ID       int64     `json:"id"`
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
}

// GameDay — игры одного календарного дня. Event заполняется, когда на эту
// дату пришлось завершённое событие клуба (берётся первое совпадение).
type GameDay struct {
	Date  string        `json:"date"`
	Games []Game        `json:"games"`
	Event *EventSummary `json:"event,omitempty"`
}

// GameHistory — история игр для главного экрана: группы по датам плюс
// отображение имени игрока на его ID для ссылок на профиль.
type GameHistory struct {
	Days        []GameDay        `json:"days"`
	PlayerIDMap map[string]int64 `json:"playerIdMap"`
}
