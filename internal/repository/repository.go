package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"coinflip/internal/models"
)

// ErrDuplicateRound is returned when a round with the same deposit
// transaction reference has already been settled.
var ErrDuplicateRound = errors.New("round already settled for deposit tx")

type ListDuePayoutsParams struct {
	Statuses    []string
	OlderThan   time.Time
	MaxAttempts int
	Limit       int
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Rounds and the aggregate. RecordRound appends the history row and
	// increments the singleton counters in one transaction; it returns
	// the refreshed aggregate snapshot.
	RecordRound(ctx context.Context, round *models.GameRound) (*models.GameStats, error)
	ListRecentRounds(ctx context.Context, limit int) ([]models.GameRound, error)
	GetRoundByDepositTx(ctx context.Context, depositTx string) (*models.GameRound, error)
	GetStats(ctx context.Context) (*models.GameStats, error)

	// Payouts.
	InsertPayout(ctx context.Context, item *models.Payout) error
	UpdatePayout(ctx context.Context, item *models.Payout) error
	GetPayoutByRoundID(ctx context.Context, roundID string) (*models.Payout, error)
	ListDuePayouts(ctx context.Context, params ListDuePayoutsParams) ([]models.Payout, error)

	// Runtime switches.
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error)
}
