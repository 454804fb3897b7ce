package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lodging/internal/app"
	"lodging/internal/domain"
	"lodging/internal/storage/memory"
)

type fakeFeed struct {
	lodgings   map[string]map[string]any
	reviews    map[string][]map[string]any
	lodgingErr error
	reviewErr  error
}

func (f *fakeFeed) ListLodgingRefs(ctx context.Context) ([]string, error) {
	var out []string
	for ref := range f.lodgings {
		out = append(out, ref)
	}
	return out, nil
}

func (f *fakeFeed) GetLodging(ctx context.Context, ref string) (map[string]any, error) {
	if f.lodgingErr != nil {
		return nil, f.lodgingErr
	}
	p, ok := f.lodgings[ref]
	if !ok {
		return nil, fmt.Errorf("lodging %s: %w", ref, domain.ErrNotFound)
	}
	return p, nil
}

func (f *fakeFeed) GetReviews(ctx context.Context, ref string, count int) ([]map[string]any, error) {
	if f.reviewErr != nil {
		return nil, f.reviewErr
	}
	return f.reviews[ref], nil
}

func harborPayload(name string) map[string]any {
	return map[string]any{
		"name":      name,
		"bathrooms": float64(2),
		"location":  map[string]any{"lat": 42.36, "lng": -71.05},
		"address":   map[string]any{"city": "Boston", "state": "MA", "country": "US"},
		"rentals": []any{
			map[string]any{"lot_number": "1A", "status": "available", "price": "120,50", "unit": map[string]any{"name": "suite", "capacity": float64(4)}},
		},
		"photos": []any{map[string]any{"url": "https://img.example/1.jpg"}},
	}
}

func TestImportLodging_InsertsThenReplaces(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	cache := &fakeCache{}
	feed := &fakeFeed{
		lodgings: map[string]map[string]any{"h-1": harborPayload("Harbor View")},
		reviews:  map[string][]map[string]any{"h-1": {{"text": "great", "score": 9.6}}},
	}
	imp := app.NewImportService(feed, store, cache)

	if err := imp.ImportLodging(ctx, "h-1", 10); err != nil {
		t.Fatalf("first import: %v", err)
	}
	first, err := store.Lodgings().SelectByExternalRef(ctx, "h-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if first.Name != "Harbor View" || first.Address() == nil || first.Address().City != "Boston" {
		t.Fatalf("unexpected lodging: %+v", first)
	}
	if len(first.Rentals) != 1 || first.Rentals[0].Price != 120.5 || first.Rentals[0].Unit.Capacity != 4 {
		t.Fatalf("unexpected rentals: %+v", first.Rentals)
	}
	if len(first.Reviews) != 1 || first.Reviews[0].Rating != 10 {
		t.Fatalf("unexpected reviews: %+v", first.Reviews)
	}

	// the imported lodging is searchable
	found, err := app.NewAvailabilityService(store.Lodgings()).FindAvailable(ctx, 4, "boston")
	if err != nil || len(found) != 1 {
		t.Fatalf("search after import: %v %v", found, err)
	}

	feed.lodgings["h-1"] = harborPayload("Harbor View Renovated")
	if err := imp.ImportLodging(ctx, "h-1", 10); err != nil {
		t.Fatalf("second import: %v", err)
	}
	all, _ := store.Lodgings().SelectAll(ctx)
	if len(all) != 1 || all[0].Name != "Harbor View Renovated" {
		t.Fatalf("replace-by-ref left %+v", lodgingNames(all))
	}
	if len(cache.dels) != 1 || cache.dels[0] != fmt.Sprintf("lodging:%d", first.ID) {
		t.Fatalf("evicted %v, want the replaced lodging", cache.dels)
	}
}

func TestImportLodging_MissIsNotAnError(t *testing.T) {
	for _, missErr := range []error{domain.ErrNotFound, domain.ErrForbidden} {
		t.Run(missErr.Error(), func(t *testing.T) {
			store := memory.New()
			feed := &fakeFeed{lodgingErr: fmt.Errorf("feed: %w", missErr)}
			imp := app.NewImportService(feed, store, nil)

			if err := imp.ImportLodging(context.Background(), "gone", 5); err != nil {
				t.Fatalf("miss should not fail the import: %v", err)
			}
			all, _ := store.Lodgings().SelectAll(context.Background())
			if len(all) != 0 {
				t.Fatalf("nothing should be stored: %+v", all)
			}
		})
	}
}

func TestImportLodging_ReviewMissStillImports(t *testing.T) {
	store := memory.New()
	feed := &fakeFeed{
		lodgings:  map[string]map[string]any{"h-2": harborPayload("Quiet Inn")},
		reviewErr: domain.ErrForbidden,
	}
	imp := app.NewImportService(feed, store, nil)

	if err := imp.ImportLodging(context.Background(), "h-2", 5); err != nil {
		t.Fatalf("import: %v", err)
	}
	l, err := store.Lodgings().SelectByExternalRef(context.Background(), "h-2")
	if err != nil || len(l.Reviews) != 0 {
		t.Fatalf("got %+v, %v", l, err)
	}
}

func TestImportLodging_FeedFailureBubblesUp(t *testing.T) {
	boom := errors.New("upstream 502")
	imp := app.NewImportService(&fakeFeed{lodgingErr: boom}, memory.New(), nil)

	if err := imp.ImportLodging(context.Background(), "h-3", 5); !errors.Is(err, boom) {
		t.Fatalf("want upstream error, got %v", err)
	}
}

func TestImportLodging_StoreFailure(t *testing.T) {
	store := memory.New()
	boom := errors.New("db down")
	store.FailWith(boom)
	feed := &fakeFeed{lodgings: map[string]map[string]any{"h-4": harborPayload("Down")}}
	imp := app.NewImportService(feed, store, nil)

	if err := imp.ImportLodging(context.Background(), "h-4", 5); !errors.Is(err, boom) {
		t.Fatalf("want store error, got %v", err)
	}
}
