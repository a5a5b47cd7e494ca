package jobs

import (
	"log/slog"
	"time"

	"sitepulse/internal/config"
	"sitepulse/internal/database"
	"sitepulse/internal/ledger"
)

// RetentionJob re-prunes the visitor ledger and checkpoints the WAL.
// Pruning also happens on every ledger write; this job covers long idle
// stretches where no visits arrive.
type RetentionJob struct {
	dbManager     *database.DBManager
	visitorLedger *ledger.Ledger
	logger        *slog.Logger
	cfg           *config.Config
}

func NewRetentionJob(dbManager *database.DBManager, visitorLedger *ledger.Ledger, logger *slog.Logger, cfg *config.Config) *RetentionJob {
	return &RetentionJob{
		dbManager:     dbManager,
		visitorLedger: visitorLedger,
		logger:        logger,
		cfg:           cfg,
	}
}

// Run sweeps expired ledger records and compacts the database WAL.
func (j *RetentionJob) Run() error {
	start := time.Now()
	dropped := j.visitorLedger.Sweep()

	if dropped > 0 {
		j.logger.Info("Swept expired visitor records",
			slog.Int("dropped", dropped),
			slog.Int("retained", j.visitorLedger.Len()),
			slog.Int("retention_days", j.cfg.LedgerRetentionDays))
	} else {
		j.logger.Debug("No expired visitor records to sweep")
	}

	if err := j.dbManager.CheckpointWAL("FULL"); err != nil {
		j.logger.Error("Failed to checkpoint WAL", slog.Any("error", err))
		return err
	}

	j.logger.Debug("Retention sweep completed", slog.Duration("took", time.Since(start)))
	return nil
}
