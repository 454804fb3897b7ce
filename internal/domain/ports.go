package domain

import "context"

// Repository is the generic persistence contract every entity store exposes.
type Repository[T any] interface {
	SelectAll(ctx context.Context) ([]T, error)
	SelectByID(ctx context.Context, id int64) (T, error)
	// Insert stores v and writes the generated ids back into it.
	Insert(ctx context.Context, v *T) error
	Update(ctx context.Context, v T) error
	Delete(ctx context.Context, id int64) error
}

type LodgingRepository interface {
	Repository[Lodging]

	// FetchLodgingsMatchingLocation returns every lodging whose address
	// satisfies f, with location, address, rentals, units, reviews and images loaded.
	FetchLodgingsMatchingLocation(ctx context.Context, f LocationFilter) ([]Lodging, error)
	SelectByExternalRef(ctx context.Context, ref string) (Lodging, error)
}

type ImageRepository interface {
	Repository[Image]
	SelectByLodging(ctx context.Context, lodgingID int64) ([]Image, error)
}

type Repositories interface {
	Lodgings() LodgingRepository
	Rentals() Repository[Rental]
	Reviews() Repository[Review]
	Images() ImageRepository
}

// UnitOfWork groups writes; nothing is visible to readers until Commit.
type UnitOfWork interface {
	Repositories
	Commit() error
	Rollback() error
}

type Store interface {
	Repositories
	Begin(ctx context.Context) (UnitOfWork, error)
}

type FeedClient interface {
	ListLodgingRefs(ctx context.Context) ([]string, error)
	GetLodging(ctx context.Context, ref string) (map[string]any, error)
	GetReviews(ctx context.Context, ref string, count int) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
