package app_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"lodging/internal/app"
	"lodging/internal/domain"
	"lodging/internal/storage/memory"
)

// ---- fixtures ----

func at(city, state, country string) *domain.Location {
	return &domain.Location{Address: &domain.Address{City: city, StateProvince: state, Country: country}}
}

func rental(status string, capacity int) domain.Rental {
	return domain.Rental{Status: status, Unit: domain.RentalUnit{Capacity: capacity}}
}

func seedStore(t *testing.T, ls ...domain.Lodging) *memory.Store {
	t.Helper()
	store := memory.New()
	cmd := app.NewCommandService(store, nil)
	for i := range ls {
		if err := cmd.CreateLodging(context.Background(), &ls[i]); err != nil {
			t.Fatalf("seed %s: %v", ls[i].Name, err)
		}
	}
	return store
}

// scenario: A and B in Boston, C in Chicago
func abcStore(t *testing.T) *memory.Store {
	return seedStore(t,
		domain.Lodging{Name: "A", Location: at("Boston", "MA", "US"), Rentals: []domain.Rental{rental("available", 4)}},
		domain.Lodging{Name: "B", Location: at("Boston", "MA", "US"), Rentals: []domain.Rental{rental("booked", 6)}},
		domain.Lodging{Name: "C", Location: at("Chicago", "IL", "US"), Rentals: []domain.Rental{rental("available", 4)}},
	)
}

func lodgingNames(ls []domain.Lodging) []string {
	out := []string{}
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return out
}

func find(t *testing.T, svc *app.AvailabilityService, occupancy int, location ...string) []string {
	t.Helper()
	got, err := svc.FindAvailable(context.Background(), occupancy, location...)
	if err != nil {
		t.Fatalf("FindAvailable(%d, %q): %v", occupancy, location, err)
	}
	if got == nil {
		t.Fatalf("FindAvailable(%d, %q) returned nil slice", occupancy, location)
	}
	return lodgingNames(got)
}

type fakeFinder struct {
	lodgings []domain.Lodging
	err      error
	filters  []domain.LocationFilter
}

func (f *fakeFinder) FetchLodgingsMatchingLocation(_ context.Context, lf domain.LocationFilter) ([]domain.Lodging, error) {
	f.filters = append(f.filters, lf)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Lodging
	for _, l := range f.lodgings {
		if lf.Matches(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// ---- tests ----

func TestFindAvailable_Scenario(t *testing.T) {
	svc := app.NewAvailabilityService(abcStore(t).Lodgings())

	cases := []struct {
		name      string
		occupancy int
		location  []string
		want      []string
	}{
		{"boston city only", 4, []string{"Boston", "", ""}, []string{"A"}},
		{"no location", 4, []string{"", "", ""}, []string{"A", "C"}},
		{"nobody fits five", 5, []string{"", "", ""}, []string{}},
		{"nil location list", 4, nil, []string{"A", "C"}},
		{"whitespace is unconstrained", 4, []string{"  ", "\t", " "}, []string{"A", "C"}},
		{"zero occupancy", 0, nil, []string{"A", "C"}},
		{"negative occupancy", -3, nil, []string{"A", "C"}},
		{"unknown city", 1, []string{"Denver"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := find(t, svc, tc.occupancy, tc.location...)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFindAvailable_CaseInsensitiveLocation(t *testing.T) {
	svc := app.NewAvailabilityService(abcStore(t).Lodgings())

	lower := find(t, svc, 1, "boston", "ma", "us")
	upper := find(t, svc, 1, "BOSTON", "MA", "US")
	mixed := find(t, svc, 1, "BoStOn", "Ma", "uS")
	if !reflect.DeepEqual(lower, upper) || !reflect.DeepEqual(lower, mixed) {
		t.Fatalf("case changed the result: %v / %v / %v", lower, upper, mixed)
	}
	if !reflect.DeepEqual(lower, []string{"A"}) {
		t.Fatalf("got %v, want [A]", lower)
	}
}

func TestFindAvailable_AccentsAreSignificant(t *testing.T) {
	store := seedStore(t,
		domain.Lodging{Name: "Z", Location: at("Zürich", "ZH", "CH"), Rentals: []domain.Rental{rental("available", 2)}},
		domain.Lodging{Name: "M", Location: at("Montréal", "QC", "CA"), Rentals: []domain.Rental{rental("available", 2)}},
	)
	svc := app.NewAvailabilityService(store.Lodgings())

	if got := find(t, svc, 1, "zurich"); len(got) != 0 {
		t.Fatalf("zurich: got %v, want none", got)
	}
	if got := find(t, svc, 1, "montreal"); len(got) != 0 {
		t.Fatalf("montreal: got %v, want none", got)
	}
	if got := find(t, svc, 1, "ZÜRICH"); !reflect.DeepEqual(got, []string{"Z"}) {
		t.Fatalf("ZÜRICH: got %v, want [Z]", got)
	}
}

func TestFindAvailable_FiltersArePositional(t *testing.T) {
	svc := app.NewAvailabilityService(abcStore(t).Lodgings())

	if got := find(t, svc, 1, "", "IL", ""); !reflect.DeepEqual(got, []string{"C"}) {
		t.Fatalf("state only: got %v, want [C]", got)
	}
	// "IL" in the city slot constrains city, not state
	if got := find(t, svc, 1, "IL"); len(got) != 0 {
		t.Fatalf("IL as city: got %v, want none", got)
	}
	if got := find(t, svc, 1, "", "", "us"); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("country only: got %v", got)
	}
}

func TestFindAvailable_IgnoresFiltersPastThird(t *testing.T) {
	svc := app.NewAvailabilityService(abcStore(t).Lodgings())

	want := find(t, svc, 1, "Boston", "MA", "US")
	got := find(t, svc, 1, "Boston", "MA", "US", "Atlantis", "nowhere")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("extra filters changed the result: %v vs %v", got, want)
	}
}

func TestFindAvailable_StatusIsCaseSensitive(t *testing.T) {
	store := seedStore(t,
		domain.Lodging{Name: "Cap", Location: at("Boston", "MA", "US"), Rentals: []domain.Rental{rental("Available", 4)}},
		domain.Lodging{Name: "Upper", Location: at("Boston", "MA", "US"), Rentals: []domain.Rental{rental("AVAILABLE", 4)}},
		domain.Lodging{Name: "Exact", Location: at("Boston", "MA", "US"), Rentals: []domain.Rental{rental("available", 4)}},
	)
	svc := app.NewAvailabilityService(store.Lodgings())

	if got := find(t, svc, 1, "boston"); !reflect.DeepEqual(got, []string{"Exact"}) {
		t.Fatalf("got %v, want [Exact]", got)
	}
}

func TestFindAvailable_LodgingWithManyRentalsOnce(t *testing.T) {
	store := seedStore(t,
		domain.Lodging{Name: "D", Location: at("Austin", "TX", "US"), Rentals: []domain.Rental{
			rental("booked", 10),
			rental("available", 2),
			rental("available", 3),
		}},
	)
	svc := app.NewAvailabilityService(store.Lodgings())

	if got := find(t, svc, 2); !reflect.DeepEqual(got, []string{"D"}) {
		t.Fatalf("got %v, want [D] exactly once", got)
	}
	if got := find(t, svc, 4); len(got) != 0 {
		t.Fatalf("booked capacity must not count: got %v", got)
	}
}

func TestFindAvailable_MissingAddress(t *testing.T) {
	store := seedStore(t,
		domain.Lodging{Name: "NoLocation", Rentals: []domain.Rental{rental("available", 2)}},
		domain.Lodging{Name: "NoAddress", Location: &domain.Location{Latitude: "1", Longitude: "2"}, Rentals: []domain.Rental{rental("available", 2)}},
		domain.Lodging{Name: "Boston", Location: at("Boston", "MA", "US"), Rentals: []domain.Rental{rental("available", 2)}},
	)
	svc := app.NewAvailabilityService(store.Lodgings())

	if got := find(t, svc, 1); !reflect.DeepEqual(got, []string{"NoLocation", "NoAddress", "Boston"}) {
		t.Fatalf("no filter: got %v", got)
	}
	if got := find(t, svc, 1, "boston"); !reflect.DeepEqual(got, []string{"Boston"}) {
		t.Fatalf("city filter: got %v", got)
	}
}

func TestFindAvailable_Idempotent(t *testing.T) {
	svc := app.NewAvailabilityService(abcStore(t).Lodgings())

	first := find(t, svc, 1, "", "", "US")
	second := find(t, svc, 1, "", "", "US")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ: %v vs %v", first, second)
	}
}

func TestFindAvailable_PreservesStoreOrderAndDedupes(t *testing.T) {
	z := domain.Lodging{ID: 9, Name: "Z", Rentals: []domain.Rental{rental("available", 2)}}
	a := domain.Lodging{ID: 1, Name: "A", Rentals: []domain.Rental{rental("available", 2)}}
	// a store joining rentals row by row may hand back the same lodging twice
	f := &fakeFinder{lodgings: []domain.Lodging{z, a, z}}
	svc := app.NewAvailabilityService(f)

	if got := find(t, svc, 1); !reflect.DeepEqual(got, []string{"Z", "A"}) {
		t.Fatalf("got %v, want [Z A]", got)
	}
}

func TestFindAvailable_PassesFilterToStore(t *testing.T) {
	f := &fakeFinder{}
	svc := app.NewAvailabilityService(f)

	_ = find(t, svc, 1, "", "Ma", "")
	if len(f.filters) != 1 {
		t.Fatalf("store called %d times", len(f.filters))
	}
	crit := f.filters[0].Criteria()
	if len(crit) != 1 || crit[0].Field != domain.FieldStateProvince || crit[0].Value != "ma" {
		t.Fatalf("unexpected criteria: %+v", crit)
	}
}

func TestFindAvailable_PropagatesStoreError(t *testing.T) {
	boom := errors.New("store unavailable")
	svc := app.NewAvailabilityService(&fakeFinder{err: boom})

	got, err := svc.FindAvailable(context.Background(), 1, "Boston")
	if err != boom {
		t.Fatalf("err = %v, want the store error unchanged", err)
	}
	if got != nil {
		t.Fatalf("got %v on error", got)
	}
}
