package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"coinflip/internal/chain"
	"coinflip/internal/models"
	"coinflip/internal/repository"
)

// stubRepo is an in-memory repository.Repository for service tests.
type stubRepo struct {
	mu sync.Mutex

	rounds   []models.GameRound
	payouts  []models.Payout
	settings map[string]*models.SystemSetting
	stats    models.GameStats

	recordErr  error
	insertErr  error
	nextPayout uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		settings: map[string]*models.SystemSetting{},
		stats:    models.GameStats{ID: models.GameStatsID},
	}
}

func (r *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *stubRepo) RecordRound(ctx context.Context, round *models.GameRound) (*models.GameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recordErr != nil {
		return nil, r.recordErr
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

func (r *stubRepo) ListRecentRounds(ctx context.Context, limit int) ([]models.GameRound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.GameRound
	for i := len(r.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.rounds[i])
	}
	return out, nil
}

func (r *stubRepo) GetRoundByDepositTx(ctx context.Context, depositTx string) (*models.GameRound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rounds {
		if r.rounds[i].DepositTx != nil && *r.rounds[i].DepositTx == depositTx {
			round := r.rounds[i]
			return &round, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) GetStats(ctx context.Context) (*models.GameStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.stats
	return &snapshot, nil
}

func (r *stubRepo) InsertPayout(ctx context.Context, item *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.nextPayout++
	item.ID = r.nextPayout
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	r.payouts = append(r.payouts, *item)
	return nil
}

func (r *stubRepo) UpdatePayout(ctx context.Context, item *models.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.payouts {
		if r.payouts[i].ID == item.ID {
			item.UpdatedAt = time.Now().UTC()
			r.payouts[i] = *item
			return nil
		}
	}
	return nil
}

func (r *stubRepo) GetPayoutByRoundID(ctx context.Context, roundID string) (*models.Payout, error) {
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

func (r *stubRepo) ListDuePayouts(ctx context.Context, params repository.ListDuePayoutsParams) ([]models.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses := map[string]bool{}
	for _, s := range params.Statuses {
		statuses[s] = true
	}
	var out []models.Payout
	for _, p := range r.payouts {
		if len(statuses) > 0 && !statuses[p.Status] {
			continue
		}
		if !params.OlderThan.IsZero() && !p.UpdatedAt.Before(params.OlderThan) {
			continue
		}
		if params.MaxAttempts > 0 && p.Attempts >= params.MaxAttempts {
			continue
		}
		out = append(out, p)
		if params.Limit > 0 && len(out) >= params.Limit {
			break
		}
	}
	return out, nil
}

func (r *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.settings[key]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, nil
}

func (r *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *item
	r.settings[item.Key] = &copied
	return nil
}

func (r *stubRepo) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SystemSetting
	for _, item := range r.settings {
		out = append(out, *item)
	}
	return out, nil
}

// stubChain is a scriptable ChainClient.
type stubChain struct {
	mu sync.Mutex

	status    chain.TxStatus
	statusErr error

	custodian bool
	sendHash  string
	sendErr   error
	sendCalls int
	lastTo    string
	lastAmt   decimal.Decimal
}

func (c *stubChain) TransferStatus(ctx context.Context, ref string) (chain.TxStatus, error) {
	if !strings.HasPrefix(ref, "0x") || len(ref) != 66 {
		return chain.StatusUnknown, chain.ErrBadReference
	}
	return c.status, c.statusErr
}

func (c *stubChain) SendPayout(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendCalls++
	c.lastTo = to
	c.lastAmt = amount
	if c.sendErr != nil {
		return "", c.sendErr
	}
	if c.sendHash == "" {
		return "0x" + strings.Repeat("ab", 32), nil
	}
	return c.sendHash, nil
}

func (c *stubChain) CustodianAvailable() bool { return c.custodian }

func (c *stubChain) EndpointCount() int { return 1 }
