package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinflip/internal/chain"
	"coinflip/internal/metrics"
	"coinflip/internal/models"
	"coinflip/internal/repository"
)

var (
	ErrBettingDisabled     = errors.New("betting is disabled")
	ErrDepositFailed       = errors.New("deposit transaction failed on-chain")
	ErrDuplicateSettlement = errors.New("deposit transaction already settled")
)

// ValidationError is a client-input rejection raised before any side
// effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ChainClient is the settlement service's view of internal/chain; tests
// substitute a stub.
type ChainClient interface {
	TransferStatus(ctx context.Context, ref string) (chain.TxStatus, error)
	SendPayout(ctx context.Context, to string, amount decimal.Decimal) (string, error)
	CustodianAvailable() bool
	EndpointCount() int
}

// RoundPublisher receives every settled round (the live feed hub).
type RoundPublisher interface {
	Publish(v any)
}

type SettleRequest struct {
	DepositTx string
	Player    string
	Amount    decimal.Decimal
}

const (
	// Caller-visible payout dispositions. Every win is a success-shaped
	// response; these only distinguish whether the automated transfer
	// went out.
	PayoutStatusNone    = "none"
	PayoutStatusPaid    = "paid"
	PayoutStatusPending = "pending"
	PayoutStatusFailed  = "failed"
)

type SettleResult struct {
	RoundID      string
	Result       string
	Amount       decimal.Decimal
	PayoutAmount decimal.Decimal
	PayoutTx     string
	PayoutStatus string
	Stats        *models.GameStats
}

// SettlementService runs one wager round end to end: validate, verify
// the deposit reference, draw the outcome, persist bookkeeping, and on
// a win broadcast the payout. The deposit lookup fails open on
// ambiguity (not indexed yet, lookup error): the caller is trusted, as
// in the original system; only an explicit on-chain failure rejects
// the round.
type SettlementService struct {
	Repo     repository.Repository
	Chain    ChainClient
	Settings *SystemSettingsService
	Stream   RoundPublisher
	Logger   *zap.Logger

	Multiplier decimal.Decimal

	// Flip overrides the outcome draw in tests. Defaults to an
	// unweighted uniform draw in [0,1).
	Flip func() float64
}

func (s *SettlementService) flip() float64 {
	if s.Flip != nil {
		return s.Flip()
	}
	return rand.Float64()
}

func (s *SettlementService) multiplier() decimal.Decimal {
	if s.Multiplier.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(2)
	}
	return s.Multiplier
}

func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	req.DepositTx = strings.TrimSpace(req.DepositTx)
	req.Player = strings.TrimSpace(req.Player)

	if req.DepositTx == "" {
		return nil, &ValidationError{Field: "deposit_tx", Reason: "required"}
	}
	if req.Player == "" {
		return nil, &ValidationError{Field: "player", Reason: "required"}
	}
	if !chain.ValidAddress(req.Player) {
		return nil, &ValidationError{Field: "player", Reason: "not a valid address"}
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	if s.Settings != nil && !s.Settings.IsEnabled(ctx, SettingBetting, true) {
		return nil, ErrBettingDisabled
	}

	// Cheap duplicate check up front; the unique index on deposit_tx is
	// the real guard under concurrency.
	if existing, err := s.Repo.GetRoundByDepositTx(ctx, req.DepositTx); err == nil && existing != nil {
		return nil, ErrDuplicateSettlement
	}

	status, err := s.Chain.TransferStatus(ctx, req.DepositTx)
	switch {
	case errors.Is(err, chain.ErrBadReference):
		return nil, &ValidationError{Field: "deposit_tx", Reason: "not a transaction hash"}
	case err != nil:
		// Ambiguous lookup: trust the caller and continue.
		metrics.DepositChecks.WithLabelValues("error").Inc()
		if s.Logger != nil {
			s.Logger.Warn("deposit status lookup failed, trusting caller",
				zap.String("deposit_tx", req.DepositTx), zap.Error(err))
		}
	case status == chain.StatusFailed:
		metrics.DepositChecks.WithLabelValues("failed").Inc()
		return nil, ErrDepositFailed
	case status == chain.StatusUnknown:
		metrics.DepositChecks.WithLabelValues("unknown").Inc()
	default:
		// Confirmed. The on-chain amount is intentionally not compared
		// with the wager; the caller-supplied amount is trusted for
		// latency reasons.
		metrics.DepositChecks.WithLabelValues("confirmed").Inc()
	}

	result := models.ResultLoss
	if s.flip() < 0.5 {
		result = models.ResultWin
	}

	round := &models.GameRound{
		RoundID:   uuid.NewString(),
		Result:    result,
		Amount:    req.Amount,
		Player:    &req.Player,
		DepositTx: &req.DepositTx,
	}
	stats, err := s.Repo.RecordRound(ctx, round)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateRound) {
			return nil, ErrDuplicateSettlement
		}
		return nil, fmt.Errorf("record round: %w", err)
	}
	metrics.RoundsSettled.WithLabelValues(result).Inc()

	out := &SettleResult{
		RoundID:      round.RoundID,
		Result:       result,
		Amount:       req.Amount,
		PayoutAmount: decimal.Zero,
		PayoutStatus: PayoutStatusNone,
		Stats:        stats,
	}

	if result == models.ResultWin {
		out.PayoutAmount = req.Amount.Mul(s.multiplier())
		out.PayoutStatus, out.PayoutTx = s.payout(ctx, round.RoundID, req.Player, out.PayoutAmount)
	}

	if s.Stream != nil {
		s.Stream.Publish(round)
	}
	return out, nil
}

// payout writes the durable pending record, then broadcasts. Whatever
// goes wrong here never fails the round: the win stands and the sweep
// picks the row up later.
func (s *SettlementService) payout(ctx context.Context, roundID, player string, amount decimal.Decimal) (string, string) {
	record := &models.Payout{
		RoundID: roundID,
		Player:  player,
		Amount:  amount,
		Status:  models.PayoutPending,
	}
	if err := s.Repo.InsertPayout(ctx, record); err != nil {
		metrics.PayoutsTotal.WithLabelValues(models.PayoutPending).Inc()
		if s.Logger != nil {
			s.Logger.Error("pending payout record failed, deferring to manual handling",
				zap.String("round_id", roundID), zap.Error(err))
		}
		return PayoutStatusPending, ""
	}

	if !s.Chain.CustodianAvailable() {
		metrics.PayoutsTotal.WithLabelValues(models.PayoutPending).Inc()
		if s.Logger != nil {
			s.Logger.Warn("custodian key unavailable, payout deferred", zap.String("round_id", roundID))
		}
		return PayoutStatusPending, ""
	}

	hash, err := s.Chain.SendPayout(ctx, player, amount)
	record.Attempts++
	if err != nil {
		msg := err.Error()
		record.Status = models.PayoutFailed
		record.LastError = &msg
		if updateErr := s.Repo.UpdatePayout(ctx, record); updateErr != nil && s.Logger != nil {
			s.Logger.Error("payout state update failed", zap.String("round_id", roundID), zap.Error(updateErr))
		}
		metrics.PayoutsTotal.WithLabelValues(models.PayoutFailed).Inc()
		if s.Logger != nil {
			s.Logger.Error("payout broadcast failed", zap.String("round_id", roundID), zap.Error(err))
		}
		return PayoutStatusFailed, ""
	}

	record.Status = models.PayoutSent
	record.TxHash = &hash
	record.LastError = nil
	if err := s.Repo.UpdatePayout(ctx, record); err != nil && s.Logger != nil {
		// Funds moved but the row still says pending; log the tx hash so
		// the row can be reconciled by hand before the sweep retries it.
		s.Logger.Error("payout sent but state update failed",
			zap.String("round_id", roundID), zap.String("tx", hash), zap.Error(err))
	}
	metrics.PayoutsTotal.WithLabelValues(models.PayoutSent).Inc()
	return PayoutStatusPaid, hash
}
