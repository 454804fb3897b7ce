package app

import (
	"context"

	"lodging/internal/adapters/observability"
	"lodging/internal/domain"
)

// LodgingFinder is the slice of the lodging store the availability search needs.
type LodgingFinder interface {
	FetchLodgingsMatchingLocation(ctx context.Context, f domain.LocationFilter) ([]domain.Lodging, error)
}

type AvailabilityService struct {
	lodgings LodgingFinder
}

func NewAvailabilityService(f LodgingFinder) *AvailabilityService {
	return &AvailabilityService{lodgings: f}
}

// FindAvailable returns the lodgings that have at least one available rental
// able to hold occupancy, at a location matching the positional
// city/state/country filters. Store errors are returned unchanged.
func (s *AvailabilityService) FindAvailable(ctx context.Context, occupancy int, location ...string) ([]domain.Lodging, error) {
	filter := domain.NewLocationFilter(location...)

	// location narrowing happens in the store; the per-rental check does not fit a flat predicate
	candidates, err := s.lodgings.FetchLodgingsMatchingLocation(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := SelectAvailable(candidates, occupancy)
	observability.ObserveSearch(len(candidates), len(out))
	return out, nil
}

// SelectAvailable keeps lodgings with a qualifying rental, once each, in
// first-seen order.
func SelectAvailable(lodgings []domain.Lodging, occupancy int) []domain.Lodging {
	out := make([]domain.Lodging, 0, len(lodgings))
	seen := make(map[int64]struct{}, len(lodgings))
	for _, l := range lodgings {
		if _, dup := seen[l.ID]; dup {
			continue
		}
		for _, r := range l.Rentals {
			if r.Available(occupancy) {
				seen[l.ID] = struct{}{}
				out = append(out, l)
				break
			}
		}
	}
	return out
}
