package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ResultWin  = "win"
	ResultLoss = "loss"
)

// GameRound is the append-only history of settled rounds. Rows are never
// mutated or deleted. DepositTx carries a unique index so the same
// on-chain transfer can never settle twice.
type GameRound struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	RoundID string `gorm:"type:varchar(36);not null;uniqueIndex" json:"round_id"`

	Result string          `gorm:"type:varchar(10);not null;index" json:"result"`
	Amount decimal.Decimal `gorm:"type:numeric(30,9);not null" json:"amount"`

	// Optional: rounds recorded through the stats write endpoint carry
	// neither a player address nor a deposit reference.
	Player    *string `gorm:"type:varchar(64);index" json:"player,omitempty"`
	DepositTx *string `gorm:"type:varchar(80);uniqueIndex" json:"deposit_tx,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index:idx_game_rounds_created_at,sort:desc" json:"created_at"`
}

func (GameRound) TableName() string {
	return "game_rounds"
}
