package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lodging/internal/domain"
)

// CommandService runs every write in its own unit of work and evicts the
// cached lodging views it touched once the commit succeeded.
type CommandService struct {
	store      domain.Store
	cache      domain.Cache
	evictDelay time.Duration
}

func NewCommandService(s domain.Store, c domain.Cache) *CommandService {
	return &CommandService{store: s, cache: c}
}

// WithEvictDelay evicts every touched key a second time d after the write.
// A GetLodging that read the old row before the commit and cached it after
// the first eviction is dropped then. Zero disables the second pass.
func (s *CommandService) WithEvictDelay(d time.Duration) *CommandService {
	s.evictDelay = d
	return s
}

func (s *CommandService) inTx(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(uow); err != nil {
		if rerr := uow.Rollback(); rerr != nil {
			log.Warn().Err(rerr).Msg("rollback failed")
		}
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *CommandService) evict(ctx context.Context, lodgingIDs ...int64) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(lodgingIDs))
	for _, id := range lodgingIDs {
		if id == 0 {
			continue
		}
		keys = append(keys, lodgingKey(id))
		_ = s.cache.Del(ctx, lodgingKey(id))
	}
	if s.evictDelay <= 0 || len(keys) == 0 {
		return
	}
	bg := context.WithoutCancel(ctx)
	time.AfterFunc(s.evictDelay, func() {
		for _, k := range keys {
			if err := s.cache.Del(bg, k); err != nil {
				log.Warn().Err(err).Str("key", k).Msg("delayed cache evict failed")
			}
		}
	})
}

// ---- lodgings ----

func (s *CommandService) CreateLodging(ctx context.Context, l *domain.Lodging) error {
	return s.inTx(ctx, func(uow domain.UnitOfWork) error {
		return uow.Lodgings().Insert(ctx, l)
	})
}

func (s *CommandService) UpdateLodging(ctx context.Context, l domain.Lodging) error {
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		return uow.Lodgings().Update(ctx, l)
	}); err != nil {
		return err
	}
	s.evict(ctx, l.ID)
	return nil
}

func (s *CommandService) DeleteLodging(ctx context.Context, id int64) error {
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		return uow.Lodgings().Delete(ctx, id)
	}); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

// ---- rentals ----

func (s *CommandService) CreateRental(ctx context.Context, r *domain.Rental) error {
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		return uow.Rentals().Insert(ctx, r)
	}); err != nil {
		return err
	}
	s.evict(ctx, r.LodgingID)
	return nil
}

func (s *CommandService) UpdateRental(ctx context.Context, r domain.Rental) error {
	var prev domain.Rental
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		var err error
		if prev, err = uow.Rentals().SelectByID(ctx, r.ID); err != nil {
			return err
		}
		return uow.Rentals().Update(ctx, r)
	}); err != nil {
		return err
	}
	s.evict(ctx, prev.LodgingID, r.LodgingID)
	return nil
}

func (s *CommandService) DeleteRental(ctx context.Context, id int64) error {
	var prev domain.Rental
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		var err error
		if prev, err = uow.Rentals().SelectByID(ctx, id); err != nil {
			return err
		}
		return uow.Rentals().Delete(ctx, id)
	}); err != nil {
		return err
	}
	s.evict(ctx, prev.LodgingID)
	return nil
}

// ---- reviews ----

func (s *CommandService) CreateReview(ctx context.Context, r *domain.Review) error {
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		return uow.Reviews().Insert(ctx, r)
	}); err != nil {
		return err
	}
	s.evict(ctx, r.LodgingID)
	return nil
}

func (s *CommandService) UpdateReview(ctx context.Context, r domain.Review) error {
	var prev domain.Review
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		var err error
		if prev, err = uow.Reviews().SelectByID(ctx, r.ID); err != nil {
			return err
		}
		return uow.Reviews().Update(ctx, r)
	}); err != nil {
		return err
	}
	s.evict(ctx, prev.LodgingID, r.LodgingID)
	return nil
}

func (s *CommandService) DeleteReview(ctx context.Context, id int64) error {
	var prev domain.Review
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		var err error
		if prev, err = uow.Reviews().SelectByID(ctx, id); err != nil {
			return err
		}
		return uow.Reviews().Delete(ctx, id)
	}); err != nil {
		return err
	}
	s.evict(ctx, prev.LodgingID)
	return nil
}

// ---- images ----

func (s *CommandService) CreateImage(ctx context.Context, img *domain.Image) error {
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		return uow.Images().Insert(ctx, img)
	}); err != nil {
		return err
	}
	s.evict(ctx, img.LodgingID)
	return nil
}

func (s *CommandService) DeleteImage(ctx context.Context, id int64) error {
	var prev domain.Image
	if err := s.inTx(ctx, func(uow domain.UnitOfWork) error {
		var err error
		if prev, err = uow.Images().SelectByID(ctx, id); err != nil {
			return err
		}
		return uow.Images().Delete(ctx, id)
	}); err != nil {
		return err
	}
	s.evict(ctx, prev.LodgingID)
	return nil
}
