package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PayoutPending   = "pending"
	PayoutSent      = "sent"
	PayoutFailed    = "failed"
	PayoutAbandoned = "abandoned"
)

// Payout is the durable record of an owed win. It is written in state
// "pending" before any funds move, so a crash between declaring the win
// and broadcasting the transfer leaves a row the sweep can pick up.
type Payout struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	RoundID string `gorm:"type:varchar(36);not null;uniqueIndex" json:"round_id"`

	Player string          `gorm:"type:varchar(64);not null;index" json:"player"`
	Amount decimal.Decimal `gorm:"type:numeric(30,9);not null" json:"amount"`

	Status    string         `gorm:"type:varchar(12);not null;index" json:"status"`
	TxHash    *string        `gorm:"type:varchar(80)" json:"tx_hash,omitempty"`
	Attempts  int            `gorm:"not null;default:0" json:"attempts"`
	LastError *string        `gorm:"type:text" json:"last_error,omitempty"`
	Meta      datatypes.JSON `gorm:"type:jsonb" json:"meta,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Payout) TableName() string {
	return "payouts"
}
