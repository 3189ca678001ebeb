package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// LedgerSeeder submits the initLedger transaction.
type LedgerSeeder interface {
	SeedLedger(ctx context.Context) error
}

// InitHandlers injects the dependencies the task handlers need. It must
// run before Start.
func (j *JobService) InitHandlers(seeder LedgerSeeder) {
	j.seeder = seeder
}

func (j *JobService) handleLedgerInitTask(ctx context.Context, t *asynq.Task) error {
	var p LedgerInitPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal ledger init payload: %w: %w", err, asynq.SkipRetry)
	}

	if j.seeder == nil {
		return errors.New("ledger init handler used before InitHandlers")
	}

	logger := j.logger.With().
		Str("type", TaskLedgerInit).
		Str("request_id", p.RequestID).
		Time("requested_at", p.RequestedAt).
		Logger()

	logger.Info().Msg("processing ledger init task")

	if err := j.seeder.SeedLedger(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to seed ledger")
		return err
	}

	logger.Info().Msg("ledger seeded")
	return nil
}
