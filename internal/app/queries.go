package app

import (
	"context"
	"fmt"
	"time"

	"lodging/internal/domain"
)

type QueryService struct {
	repos    domain.Repositories
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.Repositories, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repos: r, cache: c, cacheTTL: ttl}
}

func lodgingKey(id int64) string { return fmt.Sprintf("lodging:%d", id) }

func (s *QueryService) ListLodgings(ctx context.Context) ([]domain.Lodging, error) {
	return s.repos.Lodgings().SelectAll(ctx)
}

func (s *QueryService) GetLodging(ctx context.Context, id int64) (domain.Lodging, error) {
	key := lodgingKey(id)
	var l domain.Lodging
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &l); ok {
			return l, nil
		}
	}
	l, err := s.repos.Lodgings().SelectByID(ctx, id)
	if err != nil {
		return domain.Lodging{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, l, int(s.cacheTTL.Seconds()))
	}
	return l, nil
}

func (s *QueryService) ListRentals(ctx context.Context) ([]domain.Rental, error) {
	return s.repos.Rentals().SelectAll(ctx)
}

func (s *QueryService) GetRental(ctx context.Context, id int64) (domain.Rental, error) {
	return s.repos.Rentals().SelectByID(ctx, id)
}

func (s *QueryService) ListReviews(ctx context.Context) ([]domain.Review, error) {
	return s.repos.Reviews().SelectAll(ctx)
}

func (s *QueryService) GetReview(ctx context.Context, id int64) (domain.Review, error) {
	return s.repos.Reviews().SelectByID(ctx, id)
}

func (s *QueryService) ListImages(ctx context.Context, lodgingID int64) ([]domain.Image, error) {
	return s.repos.Images().SelectByLodging(ctx, lodgingID)
}

func (s *QueryService) GetImage(ctx context.Context, id int64) (domain.Image, error) {
	return s.repos.Images().SelectByID(ctx, id)
}
