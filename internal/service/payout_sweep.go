package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coinflip/internal/metrics"
	"coinflip/internal/models"
	"coinflip/internal/repository"
)

// PayoutSweeper re-drives payouts that never made it out: rows left in
// pending (credential missing, crash before broadcast) or failed
// (broadcast error). Runs from cron; one pass per tick.
type PayoutSweeper struct {
	Repo     repository.Repository
	Chain    ChainClient
	Settings *SystemSettingsService
	Logger   *zap.Logger

	GracePeriod time.Duration
	MaxAttempts int
	BatchSize   int
}

func (s *PayoutSweeper) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Chain == nil {
		return nil
	}
	if s.Settings != nil && !s.Settings.IsEnabled(ctx, SettingPayoutSweep, true) {
		return nil
	}
	if !s.Chain.CustodianAvailable() {
		// Nothing can be broadcast; leave the rows for the next tick.
		return nil
	}

	grace := s.GracePeriod
	if grace <= 0 {
		grace = 2 * time.Minute
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	due, err := s.Repo.ListDuePayouts(ctx, repository.ListDuePayoutsParams{
		Statuses:    []string{models.PayoutPending, models.PayoutFailed},
		OlderThan:   time.Now().UTC().Add(-grace),
		MaxAttempts: maxAttempts,
		Limit:       s.BatchSize,
	})
	if err != nil {
		return err
	}

	for _, p := range due {
		payout := p
		hash, err := s.Chain.SendPayout(ctx, payout.Player, payout.Amount)
		payout.Attempts++
		if err != nil {
			msg := err.Error()
			payout.LastError = &msg
			payout.Status = models.PayoutFailed
			if payout.Attempts >= maxAttempts {
				payout.Status = models.PayoutAbandoned
				metrics.PayoutsTotal.WithLabelValues(models.PayoutAbandoned).Inc()
				if s.Logger != nil {
					s.Logger.Error("payout abandoned after max attempts",
						zap.String("round_id", payout.RoundID),
						zap.Int("attempts", payout.Attempts),
						zap.Error(err))
				}
			} else if s.Logger != nil {
				s.Logger.Warn("payout retry failed",
					zap.String("round_id", payout.RoundID),
					zap.Int("attempts", payout.Attempts),
					zap.Error(err))
			}
		} else {
			payout.Status = models.PayoutSent
			payout.TxHash = &hash
			payout.LastError = nil
			metrics.PayoutsTotal.WithLabelValues(models.PayoutSent).Inc()
			if s.Logger != nil {
				s.Logger.Info("deferred payout sent",
					zap.String("round_id", payout.RoundID),
					zap.String("tx", hash))
			}
		}
		if err := s.Repo.UpdatePayout(ctx, &payout); err != nil {
			if s.Logger != nil {
				s.Logger.Error("payout sweep state update failed",
					zap.String("round_id", payout.RoundID), zap.Error(err))
			}
		}
	}
	return nil
}
