package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameStatsID is the fixed key of the singleton aggregate row.
const GameStatsID uint64 = 1

// GameStats holds the running totals across all settled rounds.
// Invariant: Wins + Losses == TotalBets and TotalWagered equals the sum
// of all recorded wager amounts; both are maintained inside the same
// transaction that appends the history row.
type GameStats struct {
	ID uint64 `gorm:"primaryKey" json:"-"`

	TotalBets    int64           `gorm:"not null;default:0" json:"total_bets"`
	TotalWagered decimal.Decimal `gorm:"type:numeric(30,9);not null;default:0" json:"total_wagered"`
	Wins         int64           `gorm:"not null;default:0" json:"wins"`
	Losses       int64           `gorm:"not null;default:0" json:"losses"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (GameStats) TableName() string {
	return "game_stats"
}
