package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coinflip/internal/models"
)

func seedPayout(t *testing.T, repo *stubRepo, status string, attempts int, age time.Duration) *models.Payout {
	t.Helper()
	record := &models.Payout{
		RoundID: "round-" + status,
		Player:  testPlayer,
		Amount:  decimal.NewFromInt(2),
		Status:  status,
	}
	if err := repo.InsertPayout(context.Background(), record); err != nil {
		t.Fatalf("seed payout: %v", err)
	}
	repo.mu.Lock()
	for i := range repo.payouts {
		if repo.payouts[i].ID == record.ID {
			repo.payouts[i].Attempts = attempts
			repo.payouts[i].UpdatedAt = time.Now().UTC().Add(-age)
		}
	}
	repo.mu.Unlock()
	return record
}

func TestSweepRetriesDuePayouts(t *testing.T) {
	repo := newStubRepo()
	seedPayout(t, repo, models.PayoutPending, 0, 10*time.Minute)
	seedPayout(t, repo, models.PayoutFailed, 2, 10*time.Minute)

	chainStub := &stubChain{custodian: true, sendHash: "0xdeadbeef"}
	sweeper := &PayoutSweeper{
		Repo:        repo,
		Chain:       chainStub,
		GracePeriod: 2 * time.Minute,
		MaxAttempts: 5,
	}
	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if chainStub.sendCalls != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", chainStub.sendCalls)
	}
	for _, roundID := range []string{"round-pending", "round-failed"} {
		record, _ := repo.GetPayoutByRoundID(context.Background(), roundID)
		if record == nil || record.Status != models.PayoutSent {
			t.Fatalf("%s: expected sent, got %+v", roundID, record)
		}
		if record.TxHash == nil || *record.TxHash != "0xdeadbeef" {
			t.Fatalf("%s: missing tx hash", roundID)
		}
	}
}

func TestSweepSkipsFreshRows(t *testing.T) {
	repo := newStubRepo()
	seedPayout(t, repo, models.PayoutPending, 0, 10*time.Second)

	chainStub := &stubChain{custodian: true}
	sweeper := &PayoutSweeper{Repo: repo, Chain: chainStub, GracePeriod: 2 * time.Minute, MaxAttempts: 5}
	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if chainStub.sendCalls != 0 {
		t.Fatalf("rows inside the grace period must not be retried")
	}
}

func TestSweepAbandonsAfterMaxAttempts(t *testing.T) {
	repo := newStubRepo()
	seedPayout(t, repo, models.PayoutFailed, 4, 10*time.Minute)

	chainStub := &stubChain{custodian: true, sendErr: errors.New("insufficient funds")}
	sweeper := &PayoutSweeper{Repo: repo, Chain: chainStub, GracePeriod: 2 * time.Minute, MaxAttempts: 5}
	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	record, _ := repo.GetPayoutByRoundID(context.Background(), "round-failed")
	if record == nil || record.Status != models.PayoutAbandoned {
		t.Fatalf("expected abandoned, got %+v", record)
	}
	if record.Attempts != 5 {
		t.Fatalf("attempts %d, want 5", record.Attempts)
	}

	// Abandoned rows are off the retry list for good.
	chainStub.sendCalls = 0
	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if chainStub.sendCalls != 0 {
		t.Fatalf("abandoned payout must not be retried")
	}
}

func TestSweepHonorsKillSwitchAndCustodian(t *testing.T) {
	repo := newStubRepo()
	seedPayout(t, repo, models.PayoutPending, 0, 10*time.Minute)

	chainStub := &stubChain{custodian: false}
	sweeper := &PayoutSweeper{Repo: repo, Chain: chainStub, GracePeriod: time.Minute, MaxAttempts: 5}
	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run without custodian: %v", err)
	}
	if chainStub.sendCalls != 0 {
		t.Fatalf("nothing to broadcast without a custodian key")
	}

	chainStub.custodian = true
	settings := &SystemSettingsService{Repo: repo}
	if err := settings.SetEnabled(context.Background(), SettingPayoutSweep, false); err != nil {
		t.Fatalf("set switch: %v", err)
	}
	sweeper.Settings = settings
	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run with switch off: %v", err)
	}
	if chainStub.sendCalls != 0 {
		t.Fatalf("sweep must respect the feature switch")
	}
}
