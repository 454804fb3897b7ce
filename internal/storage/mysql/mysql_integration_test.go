//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"lodging/internal/app"
	"lodging/internal/domain"
	mysqlrepo "lodging/internal/storage/mysql"
)

// ---------- small helpers ----------

// migrationsDir honors MIGRATIONS_DIR and falls back to the repo's migrations/.
func migrationsDir(t *testing.T) string {
	t.Helper()
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=lodging",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/lodging?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func lodging(name, city, state, country string, rentals ...domain.Rental) domain.Lodging {
	return domain.Lodging{
		Name:      name,
		Bathrooms: 1,
		Location: &domain.Location{
			Latitude: "0", Longitude: "0",
			Address: &domain.Address{Street: "1 Main St", City: city, StateProvince: state, Country: country, PostalCode: "00000"},
		},
		Rentals: rentals,
	}
}

func rental(status string, capacity int) domain.Rental {
	return domain.Rental{LotNumber: "1", Status: status, Price: 100, DiscountedPrice: 90, Unit: domain.RentalUnit{Name: "suite", Capacity: capacity}}
}

func insert(t *testing.T, repo *mysqlrepo.Repo, l *domain.Lodging) {
	t.Helper()
	ctx := context.Background()
	uow, err := repo.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := uow.Lodgings().Insert(ctx, l); err != nil {
		_ = uow.Rollback()
		t.Fatalf("insert %s: %v", l.Name, err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func names(ls []domain.Lodging) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Name
	}
	return out
}

// ---------- the tests ----------

func TestRepo_MySQL_AvailabilitySearch(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	a := lodging("A", "Boston", "MA", "US", rental("available", 4))
	b := lodging("B", "Boston", "MA", "US", rental("booked", 6))
	c := lodging("C", "Chicago", "IL", "US", rental("available", 4))
	orphan := domain.Lodging{Name: "Orphan", Bathrooms: 1, Rentals: []domain.Rental{rental("available", 8)}}
	for _, l := range []*domain.Lodging{&a, &b, &c, &orphan} {
		insert(t, repo, l)
	}

	svc := app.NewAvailabilityService(repo.Lodgings())

	got, err := svc.FindAvailable(ctx, 4, "boston", "", "")
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if fmt.Sprint(names(got)) != "[A]" {
		t.Fatalf("boston: got %v", names(got))
	}
	if got[0].Address() == nil || got[0].Address().City != "Boston" || len(got[0].Rentals) != 1 {
		t.Fatalf("nested graph not loaded: %+v", got[0])
	}

	got, err = svc.FindAvailable(ctx, 4)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if fmt.Sprint(names(got)) != "[A C Orphan]" {
		t.Fatalf("no filter: got %v", names(got))
	}

	got, _ = svc.FindAvailable(ctx, 4, "", "il", "US")
	if fmt.Sprint(names(got)) != "[C]" {
		t.Fatalf("state+country: got %v", names(got))
	}

	got, _ = svc.FindAvailable(ctx, 9)
	if len(got) != 0 {
		t.Fatalf("capacity 9: got %v", names(got))
	}

	// accents and trailing spaces stay significant; only case is folded
	z := lodging("Z", "Zürich", "ZH", "CH", rental("available", 4))
	insert(t, repo, &z)
	for _, city := range []string{"zurich", "Zurich", "boston "} {
		got, err = svc.FindAvailable(ctx, 1, city)
		if err != nil {
			t.Fatalf("FindAvailable(%q): %v", city, err)
		}
		if len(got) != 0 {
			t.Fatalf("%q: got %v, want none", city, names(got))
		}
	}
	got, _ = svc.FindAvailable(ctx, 1, "ZÜRICH", "zh")
	if fmt.Sprint(names(got)) != "[Z]" {
		t.Fatalf("ZÜRICH: got %v", names(got))
	}
}

func TestRepo_MySQL_CRUD(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	cmd := app.NewCommandService(repo, nil)

	l := lodging("Harbor View", "Boston", "MA", "US", rental("available", 2))
	l.Images = []domain.Image{{ImageURI: "https://img.example/1.jpg"}}
	if err := cmd.CreateLodging(ctx, &l); err != nil {
		t.Fatalf("CreateLodging: %v", err)
	}
	if l.ID == 0 || l.Rentals[0].ID == 0 || l.Rentals[0].Unit.ID == 0 || l.Images[0].ID == 0 {
		t.Fatalf("ids not assigned: %+v", l)
	}

	rv := domain.Review{LodgingID: l.ID, AccountID: 9, Comment: "lovely", Rating: 9}
	if err := cmd.CreateReview(ctx, &rv); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}

	got, err := repo.Lodgings().SelectByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("SelectByID: %v", err)
	}
	if len(got.Reviews) != 1 || got.Reviews[0].Comment != "lovely" || got.Reviews[0].DateCreated.IsZero() {
		t.Fatalf("unexpected reviews: %+v", got.Reviews)
	}

	// update the rental: status and capacity
	rt := got.Rentals[0]
	rt.Status = "booked"
	rt.Unit.Capacity = 5
	if err := cmd.UpdateRental(ctx, rt); err != nil {
		t.Fatalf("UpdateRental: %v", err)
	}
	rt2, err := repo.Rentals().SelectByID(ctx, rt.ID)
	if err != nil || rt2.Status != "booked" || rt2.Unit.Capacity != 5 {
		t.Fatalf("rental after update: %+v err=%v", rt2, err)
	}

	// unchanged update must not look like a missing row
	if err := cmd.UpdateRental(ctx, rt2); err != nil {
		t.Fatalf("idempotent UpdateRental: %v", err)
	}

	got.Name = "Harbor View II"
	got.Location.Address.City = "Cambridge"
	if err := cmd.UpdateLodging(ctx, got); err != nil {
		t.Fatalf("UpdateLodging: %v", err)
	}
	got, _ = repo.Lodgings().SelectByID(ctx, l.ID)
	if got.Name != "Harbor View II" || got.Address().City != "Cambridge" {
		t.Fatalf("lodging after update: %+v", got)
	}

	if err := cmd.CreateReview(ctx, &domain.Review{LodgingID: 999999, Comment: "x", Rating: 1}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("review for missing lodging: want ErrConflict, got %v", err)
	}

	if err := cmd.DeleteLodging(ctx, l.ID); err != nil {
		t.Fatalf("DeleteLodging: %v", err)
	}
	if _, err := repo.Lodgings().SelectByID(ctx, l.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("after delete: want ErrNotFound, got %v", err)
	}
	if _, err := repo.Rentals().SelectByID(ctx, rt.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("rental should cascade, got %v", err)
	}
	if err := cmd.DeleteLodging(ctx, l.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestRepo_MySQL_ExternalRefIsUnique(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	ref := "feed-1"
	l1 := lodging("One", "Boston", "MA", "US")
	l1.ExternalRef = &ref
	insert(t, repo, &l1)

	got, err := repo.Lodgings().SelectByExternalRef(ctx, ref)
	if err != nil || got.ID != l1.ID {
		t.Fatalf("SelectByExternalRef: %+v err=%v", got, err)
	}

	uow, _ := repo.Begin(ctx)
	defer uow.Rollback()
	l2 := lodging("Two", "Boston", "MA", "US")
	l2.ExternalRef = &ref
	if err := uow.Lodgings().Insert(ctx, &l2); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate ref: want ErrConflict, got %v", err)
	}
}
