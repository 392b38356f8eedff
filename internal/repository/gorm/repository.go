package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coinflip/internal/models"
	"coinflip/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- rounds & aggregate ------------------------------------------------------

// RecordRound appends the history row and bumps the aggregate counters
// inside one transaction. The counter update is a single SQL expression
// so concurrent writers cannot lose increments; the history unique index
// on deposit_tx turns a replayed settlement into ErrDuplicateRound.
func (s *Store) RecordRound(ctx context.Context, round *models.GameRound) (*models.GameStats, error) {
	if s == nil || s.db == nil || round == nil {
		return nil, nil
	}

	var winInc, lossInc int64
	switch round.Result {
	case models.ResultWin:
		winInc = 1
	case models.ResultLoss:
		lossInc = 1
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(round).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repository.ErrDuplicateRound
			}
			return err
		}

		seed := models.GameStats{
			ID:           models.GameStatsID,
			TotalBets:    1,
			TotalWagered: round.Amount,
			Wins:         winInc,
			Losses:       lossInc,
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_bets":    gorm.Expr("game_stats.total_bets + 1"),
				"total_wagered": gorm.Expr("game_stats.total_wagered + ?", round.Amount),
				"wins":          gorm.Expr("game_stats.wins + ?", winInc),
				"losses":        gorm.Expr("game_stats.losses + ?", lossInc),
				"updated_at":    time.Now().UTC(),
			}),
		}).Create(&seed).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetStats(ctx)
}

func (s *Store) ListRecentRounds(ctx context.Context, limit int) ([]models.GameRound, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 10)
	var items []models.GameRound
	if err := s.db.WithContext(ctx).
		Model(&models.GameRound{}).
		Order("created_at desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetRoundByDepositTx(ctx context.Context, depositTx string) (*models.GameRound, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	depositTx = strings.TrimSpace(depositTx)
	if depositTx == "" {
		return nil, nil
	}
	var item models.GameRound
	err := s.db.WithContext(ctx).
		Where("deposit_tx = ?", depositTx).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetStats returns the singleton aggregate. A missing row is the
// documented zero-valued default, not an error.
func (s *Store) GetStats(ctx context.Context) (*models.GameStats, error) {
	if s == nil || s.db == nil {
		return &models.GameStats{ID: models.GameStatsID}, nil
	}
	var item models.GameStats
	err := s.db.WithContext(ctx).
		Where("id = ?", models.GameStatsID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.GameStats{ID: models.GameStatsID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- payouts -----------------------------------------------------------------

func (s *Store) InsertPayout(ctx context.Context, item *models.Payout) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdatePayout(ctx context.Context, item *models.Payout) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetPayoutByRoundID(ctx context.Context, roundID string) (*models.Payout, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Payout
	err := s.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListDuePayouts(ctx context.Context, params repository.ListDuePayoutsParams) ([]models.Payout, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Payout{})
	if len(params.Statuses) > 0 {
		query = query.Where("status IN ?", params.Statuses)
	}
	if !params.OlderThan.IsZero() {
		query = query.Where("updated_at < ?", params.OlderThan)
	}
	if params.MaxAttempts > 0 {
		query = query.Where("attempts < ?", params.MaxAttempts)
	}
	limit := normalizeLimit(params.Limit, 20)
	var items []models.Payout
	if err := query.Order("created_at asc").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- settings ----------------------------------------------------------------

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).
		Where("key = ?", key).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SystemSetting
	if err := s.db.WithContext(ctx).
		Model(&models.SystemSetting{}).
		Order("key asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
