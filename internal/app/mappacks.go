package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/trackrank/internal/adapters/mq/queue"
	"github.com/okian/trackrank/internal/domain/model"
	"github.com/okian/trackrank/pkg/logger"
	"github.com/okian/trackrank/pkg/metrics"
)

func (s *Service) mappackEngine() error {
	if s.mappacks == nil {
		return ErrMappacksDisabled
	}
	return nil
}

// UpdateMappack recomputes a mappack now. ok is false when it expired.
func (s *Service) UpdateMappack(ctx context.Context, id string) (bool, error) {
	if err := s.mappackEngine(); err != nil {
		return false, err
	}
	_, ok, err := s.mappacks.Update(ctx, id)
	return ok, err
}

// EnqueueMappack queues a recompute. queued is false when a recompute of the
// same mappack is already pending. It returns queue.ErrQueueFull under
// backpressure.
func (s *Service) EnqueueMappack(ctx context.Context, id string) (queued bool, err error) {
	if err := s.mappackEngine(); err != nil {
		return false, err
	}
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordJobCoalesced()
		return false, nil
	}

	job := model.MappackJob{JobID: uuid.NewString(), MappackID: id, EnqueuedAt: s.now()}
	if err := q.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, id)
		return false, fmt.Errorf("enqueue mappack %s: %w", id, err)
	}
	s.logger.Debug(ctx, "mappack queued", logger.String("mappack", id), logger.String("job_id", job.JobID))
	return true, nil
}

// refreshMappacks queues every registered mappack.
func (s *Service) refreshMappacks(ctx context.Context) error {
	ids, err := s.mappacks.Registered(ctx)
	if err != nil {
		return err
	}
	queued := 0
	for _, id := range ids {
		ok, err := s.EnqueueMappack(ctx, id)
		if errors.Is(err, queue.ErrQueueFull) {
			return fmt.Errorf("refresh stopped after %d of %d mappacks: %w", queued, len(ids), err)
		}
		if err != nil {
			return err
		}
		if ok {
			queued++
		}
	}
	s.logger.Debug(ctx, "mappacks refreshed", logger.Int("registered", len(ids)), logger.Int("queued", queued))
	return nil
}

// MappackSnapshot returns the last computed standings of a mappack.
func (s *Service) MappackSnapshot(ctx context.Context, id string) (model.MappackScores, error) {
	if err := s.mappackEngine(); err != nil {
		return model.MappackScores{}, err
	}
	return s.mappacks.Snapshot(ctx, id)
}

// RegisterMappack creates or extends a mappack. participants are logins of
// players scored even without a record.
func (s *Service) RegisterMappack(ctx context.Context, id string, uids []string, permanent bool, participants []string) error {
	if err := s.mappackEngine(); err != nil {
		return err
	}
	ids := make([]int64, 0, len(participants))
	for _, login := range participants {
		p, err := s.lookup.HavePlayer(ctx, login)
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}
	return s.mappacks.Register(ctx, id, uids, permanent, ids)
}

// PersistMappack makes a mappack permanent.
func (s *Service) PersistMappack(ctx context.Context, id string) error {
	if err := s.mappackEngine(); err != nil {
		return err
	}
	return s.mappacks.Persist(ctx, id)
}
