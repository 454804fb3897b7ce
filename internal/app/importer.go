package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"lodging/internal/adapters/observability"
	"lodging/internal/domain"
)

type ImportService struct {
	feed  domain.FeedClient
	store domain.Store
	cache domain.Cache
}

func NewImportService(f domain.FeedClient, s domain.Store, cache domain.Cache) *ImportService {
	return &ImportService{feed: f, store: s, cache: cache}
}

// miss reports feed answers that mean "nothing to import" rather than failure.
func miss(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found", true
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden", true
	}
	return "", false
}

// ImportLodging fetches one lodging from the feed and replaces the stored
// copy with the same external reference.
func (s *ImportService) ImportLodging(ctx context.Context, ref string, reviewCount int) error {
	p, err := s.feed.GetLodging(ctx, ref)
	if err != nil {
		if reason, ok := miss(err); ok {
			log.Warn().Str("ref", ref).Str("reason", reason).Msg("import miss")
			observability.ObserveImport("miss")
			s.evictRef(ctx, ref)
			return nil
		}
		observability.ObserveImport("error")
		return err
	}

	l := mapLodging(ref, p)

	// reviews are best effort: a missing or locked review feed still imports the lodging
	if revs, rerr := s.feed.GetReviews(ctx, ref, reviewCount); rerr != nil {
		reason, ok := miss(rerr)
		if !ok {
			observability.ObserveImport("error")
			return rerr
		}
		log.Warn().Str("ref", ref).Str("reason", reason).Msg("import reviews miss")
	} else {
		l.Reviews = mapReviews(revs)
	}

	var replaced int64
	uow, err := s.store.Begin(ctx)
	if err != nil {
		observability.ObserveImport("error")
		return fmt.Errorf("begin import %s: %w", ref, err)
	}
	if err := func() error {
		prev, err := uow.Lodgings().SelectByExternalRef(ctx, ref)
		switch {
		case err == nil:
			replaced = prev.ID
			if err := uow.Lodgings().Delete(ctx, prev.ID); err != nil {
				return err
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return uow.Lodgings().Insert(ctx, &l)
	}(); err != nil {
		_ = uow.Rollback()
		observability.ObserveImport("error")
		return fmt.Errorf("store import %s: %w", ref, err)
	}
	if err := uow.Commit(); err != nil {
		observability.ObserveImport("error")
		return fmt.Errorf("commit import %s: %w", ref, err)
	}

	if s.cache != nil && replaced != 0 {
		_ = s.cache.Del(ctx, lodgingKey(replaced))
	}
	observability.ObserveImport("ok")
	return nil
}

func (s *ImportService) evictRef(ctx context.Context, ref string) {
	if s.cache == nil {
		return
	}
	prev, err := s.store.Lodgings().SelectByExternalRef(ctx, ref)
	if err != nil {
		return
	}
	_ = s.cache.Del(ctx, lodgingKey(prev.ID))
}
