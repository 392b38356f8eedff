package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"coinflip/internal/chain"
	"coinflip/internal/models"
	"coinflip/internal/repository"
)

// memRepo is a minimal in-memory repository.Repository for handler
// tests. Setting failAll makes every read and write error.
type memRepo struct {
	mu      sync.Mutex
	rounds  []models.GameRound
	payouts []models.Payout
	stats   models.GameStats

	failAll bool
}

var errStoreDown = errors.New("store unavailable")

func newMemRepo() *memRepo {
	return &memRepo{stats: models.GameStats{ID: models.GameStatsID}}
}

func (r *memRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.failAll {
		return errStoreDown
	}
	return fn(nil)
}

func (r *memRepo) RecordRound(ctx context.Context, round *models.GameRound) (*models.GameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStoreDown
	}
	if round.DepositTx != nil {
		for _, existing := range r.rounds {
			if existing.DepositTx != nil && *existing.DepositTx == *round.DepositTx {
				return nil, repository.ErrDuplicateRound
			}
		}
	}
	round.CreatedAt = time.Now().UTC()
	r.rounds = append(r.rounds, *round)
	r.stats.TotalBets++
	r.stats.TotalWagered = r.stats.TotalWagered.Add(round.Amount)
	if round.Result == models.ResultWin {
		r.stats.Wins++
	} else {
		r.stats.Losses++
	}
	snapshot := r.stats
	return &snapshot, nil
}

func (r *memRepo) ListRecentRounds(ctx context.Context, limit int) ([]models.GameRound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStoreDown
	}
	var out []models.GameRound
	for i := len(r.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.rounds[i])
	}
	return out, nil
}

func (r *memRepo) GetRoundByDepositTx(ctx context.Context, depositTx string) (*models.GameRound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStoreDown
	}
	for i := range r.rounds {
		if r.rounds[i].DepositTx != nil && *r.rounds[i].DepositTx == depositTx {
			round := r.rounds[i]
			return &round, nil
		}
	}
	return nil, nil
}

func (r *memRepo) GetStats(ctx context.Context) (*models.GameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStoreDown
	}
	snapshot := r.stats
	return &snapshot, nil
}

func (r *memRepo) InsertPayout(ctx context.Context, item *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errStoreDown
	}
	item.ID = uint64(len(r.payouts) + 1)
	r.payouts = append(r.payouts, *item)
	return nil
}

func (r *memRepo) UpdatePayout(ctx context.Context, item *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errStoreDown
	}
	for i := range r.payouts {
		if r.payouts[i].ID == item.ID {
			r.payouts[i] = *item
		}
	}
	return nil
}

func (r *memRepo) GetPayoutByRoundID(ctx context.Context, roundID string) (*models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.payouts {
		if r.payouts[i].RoundID == roundID {
			payout := r.payouts[i]
			return &payout, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListDuePayouts(ctx context.Context, params repository.ListDuePayoutsParams) ([]models.Payout, error) {
	return nil, nil
}

func (r *memRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	return nil, nil
}

func (r *memRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	return nil
}

func (r *memRepo) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	return nil, nil
}

// memChain confirms deposits and broadcasts instantly unless told
// otherwise.
type memChain struct {
	custodian bool
	sendErr   error
	failTx    bool
}

func (c *memChain) TransferStatus(ctx context.Context, ref string) (chain.TxStatus, error) {
	if len(ref) != 66 {
		return chain.StatusUnknown, chain.ErrBadReference
	}
	if c.failTx {
		return chain.StatusFailed, nil
	}
	return chain.StatusConfirmed, nil
}

func (c *memChain) SendPayout(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if c.sendErr != nil {
		return "", c.sendErr
	}
	return "0xfeed", nil
}

func (c *memChain) CustodianAvailable() bool { return c.custodian }

func (c *memChain) EndpointCount() int { return 1 }
