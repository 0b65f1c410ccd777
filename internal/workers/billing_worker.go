package workers

import (
	"context"
	"time"

	"hercules_backend/internal/logger"
	billingsvc "hercules_backend/internal/services/billing"

	"gorm.io/gorm"
)

const sweepBatchSize = 200

// BillingWorker periodically sweeps for accounts whose charge deadline
// passed while they stayed logged out. Each due account goes through the
// same Evaluate path as a login, so a user logging in mid-sweep costs
// nothing worse than one lost CAS.
type BillingWorker struct {
	db       *gorm.DB
	store    billingsvc.Store
	svc      *billingsvc.LifecycleService
	interval time.Duration
}

func NewBillingWorker(db *gorm.DB, store billingsvc.Store, svc *billingsvc.LifecycleService, interval time.Duration) *BillingWorker {
	return &BillingWorker{db: db, store: store, svc: svc, interval: interval}
}

// Start runs the sweep loop until the context is cancelled.
func (w *BillingWorker) Start(ctx context.Context) {
	logger.Info("billing sweep worker started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("billing sweep worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunSweep(ctx); err != nil {
				logger.WorkerLog("billing_sweep", "sweep", err)
			}
		}
	}
}

// SweepSummary reports one sweep run.
type SweepSummary struct {
	Evaluated  int `json:"evaluated"`
	Charged    int `json:"charged"`
	Failed     int `json:"failed"`
	Blocked    int `json:"blocked"`
	Conflicted int `json:"conflicted"`
}

// RunSweep evaluates every currently due account once. Also invoked on
// demand from the admin API.
func (w *BillingWorker) RunSweep(ctx context.Context) (*SweepSummary, error) {
	start := time.Now()
	summary := &SweepSummary{}

	for {
		ids, err := w.store.DueUserIDs(w.db, time.Now().UTC(), sweepBatchSize)
		if err != nil {
			return summary, err
		}
		if len(ids) == 0 {
			break
		}

		progressed := false
		for _, userID := range ids {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			res, err := w.svc.Evaluate(ctx, w.db, userID)
			if err != nil {
				logger.CtxWithError(ctx, "sweep evaluation failed", err, "user_id", userID)
				summary.Failed++
				continue
			}
			summary.Evaluated++
			switch res.State {
			case billingsvc.StateActive:
				summary.Charged++
				progressed = true
			case billingsvc.StateRetryPending, billingsvc.StateBlocked:
				if res.State == billingsvc.StateBlocked {
					summary.Blocked++
				}
				progressed = true
			case billingsvc.StateConflicted:
				summary.Conflicted++
				progressed = true
			}
		}

		// Accounts stuck in action-required or erroring evaluations stay
		// due; without progress a second pass would just spin on them.
		if !progressed || len(ids) < sweepBatchSize {
			break
		}
	}

	logger.Info("billing sweep finished",
		"evaluated", summary.Evaluated,
		"charged", summary.Charged,
		"blocked", summary.Blocked,
		"conflicted", summary.Conflicted,
		"failed", summary.Failed,
		"duration", time.Since(start).String())
	return summary, nil
}
