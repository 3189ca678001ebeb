package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/candychain/internal/errs"
	"github.com/deppfellow/candychain/internal/ledger"
	"github.com/deppfellow/candychain/internal/lib/job"
	"github.com/deppfellow/candychain/internal/wallet"
)

// TaskQueue is the part of the job queue the services use: enqueueing,
// plus the inspector calls needed to clear a finished task whose id is
// still taken.
type TaskQueue interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// CandyService queries and updates candies on the ledger as the
// configured application identity.
type CandyService struct {
	gateway  ledger.Gateway
	wallet   wallet.Store
	identity string
	jobs     TaskQueue
}

// NewCandyService builds the service. jobs may be nil, in which case the
// ledger is seeded inline.
func NewCandyService(gateway ledger.Gateway, store wallet.Store, identity string, jobs TaskQueue) *CandyService {
	return &CandyService{
		gateway:  gateway,
		wallet:   store,
		identity: identity,
		jobs:     jobs,
	}
}

// session connects to the gateway as the application identity.
func (s *CandyService) session(ctx context.Context) (ledger.Session, error) {
	return connectAs(ctx, s.gateway, s.wallet, s.identity)
}

func connectAs(ctx context.Context, gateway ledger.Gateway, store wallet.Store, label string) (ledger.Session, error) {
	id, err := store.Get(ctx, label)
	if errors.Is(err, wallet.ErrNotFound) {
		return nil, fmt.Errorf("An identity for the user %q does not exist in the wallet", label)
	}
	if err != nil {
		return nil, err
	}
	return gateway.Connect(ctx, id)
}

func (s *CandyService) evaluate(ctx context.Context, fn string, args ...string) ([]byte, error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	result, err := session.Evaluate(ctx, fn, args...)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("transaction", fn).Msg("failed to evaluate transaction")
		return nil, err
	}
	return result, nil
}

func (s *CandyService) submit(ctx context.Context, fn string, args ...string) ([]byte, error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	result, err := session.Submit(ctx, fn, args...)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("transaction", fn).Msg("failed to submit transaction")
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("transaction", fn).Msg("transaction has been submitted")
	return result, nil
}

// QueryAllCandies returns the queryAllCandies response as the chaincode
// produced it.
func (s *CandyService) QueryAllCandies(ctx context.Context) Result {
	data, err := s.evaluate(ctx, ledger.FnQueryAllCandies)
	if err != nil {
		return Fail(err)
	}
	return Ok(data)
}

// FindCandy returns the record stored under key.
func (s *CandyService) FindCandy(ctx context.Context, key string) Result {
	data, err := s.evaluate(ctx, ledger.FnQueryCandy, key)
	if err != nil {
		return Fail(err)
	}
	if len(data) == 0 {
		return Fail(fmt.Errorf("candy %q does not exist", key))
	}
	return Ok(data)
}

// CreateCandy stores a new record and reads it back.
func (s *CandyService) CreateCandy(ctx context.Context, key string, candy ledger.Candy) (*ledger.QueryResult, error) {
	if _, err := s.submit(ctx, ledger.FnCreateCandy, key, candy.Name, candy.Texture, candy.Colour, candy.Owner); err != nil {
		return nil, errs.NewBadGatewayError(err.Error())
	}
	return s.read(ctx, key)
}

// ChangeCandyOwner transfers a candy and returns the updated record.
func (s *CandyService) ChangeCandyOwner(ctx context.Context, key, owner string) (*ledger.QueryResult, error) {
	if _, err := s.submit(ctx, ledger.FnChangeCandyOwner, key, owner); err != nil {
		return nil, errs.NewBadGatewayError(err.Error())
	}
	return s.read(ctx, key)
}

func (s *CandyService) read(ctx context.Context, key string) (*ledger.QueryResult, error) {
	data, err := s.evaluate(ctx, ledger.FnQueryCandy, key)
	if err != nil {
		return nil, errs.NewBadGatewayError(err.Error())
	}
	if len(data) == 0 {
		return nil, errs.NewNotFoundError(fmt.Sprintf("candy %q does not exist", key), true, nil)
	}

	result := &ledger.QueryResult{Key: key}
	if err := json.Unmarshal(data, &result.Record); err != nil {
		return nil, pkgerrors.Wrapf(err, "decoding candy %s", key)
	}
	return result, nil
}

// SeedLedger submits initLedger and waits for it to commit.
func (s *CandyService) SeedLedger(ctx context.Context) error {
	_, err := s.submit(ctx, ledger.FnInitLedger)
	return err
}

// InitLedger seeds the ledger, through the job queue when one is
// configured. queued reports which path was taken.
func (s *CandyService) InitLedger(ctx context.Context, requestID string) (queued bool, err error) {
	if s.jobs == nil {
		if err := s.SeedLedger(ctx); err != nil {
			return false, errs.NewBadGatewayError(err.Error())
		}
		return false, nil
	}

	task, err := job.NewLedgerInitTask(requestID)
	if err != nil {
		return false, pkgerrors.Wrap(err, "building ledger init task")
	}

	info, err := s.jobs.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		retry, clearErr := s.clearArchivedSeed(ctx)
		if clearErr != nil {
			return false, clearErr
		}
		if !retry {
			zerolog.Ctx(ctx).Info().Msg("ledger init already queued")
			return true, nil
		}
		info, err = s.jobs.EnqueueContext(ctx, task)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// another request re-queued it first
			return true, nil
		}
	}
	if err != nil {
		return false, pkgerrors.Wrap(err, "enqueueing ledger init task")
	}

	zerolog.Ctx(ctx).Info().Str("task_id", info.ID).Str("queue", info.Queue).Msg("ledger init queued")
	return true, nil
}

// clearArchivedSeed deletes the seed task holding the fixed task id once it
// has been archived after its last retry, so it can be queued again. It
// reports false while the task is still waiting or running.
func (s *CandyService) clearArchivedSeed(ctx context.Context) (bool, error) {
	info, err := s.jobs.GetTaskInfo(job.QueueCritical, job.TaskLedgerInit)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return true, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(err, "inspecting ledger init task")
	}

	if info.State != asynq.TaskStateArchived {
		return false, nil
	}

	zerolog.Ctx(ctx).Warn().
		Str("state", info.State.String()).
		Str("last_err", info.LastErr).
		Msg("replacing archived ledger init task")

	if err := s.jobs.DeleteTask(job.QueueCritical, job.TaskLedgerInit); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return false, pkgerrors.Wrap(err, "deleting archived ledger init task")
	}
	return true, nil
}
