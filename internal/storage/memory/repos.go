package memory

import (
	"context"

	"lodging/internal/domain"
)

// ---- lodgings ----

type lodgingRepo struct{ repos }

func (r lodgingRepo) SelectAll(ctx context.Context) ([]domain.Lodging, error) {
	return r.FetchLodgingsMatchingLocation(ctx, domain.LocationFilter{})
}

func (r lodgingRepo) FetchLodgingsMatchingLocation(_ context.Context, f domain.LocationFilter) ([]domain.Lodging, error) {
	out := []domain.Lodging{}
	err := r.with(func(st *state) error {
		for _, id := range sortedKeys(st.lodgings) {
			l := st.assemble(st.lodgings[id])
			if f.Matches(l) {
				out = append(out, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r lodgingRepo) SelectByID(_ context.Context, id int64) (domain.Lodging, error) {
	var out domain.Lodging
	err := r.with(func(st *state) error {
		l, ok := st.lodgings[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = st.assemble(l)
		return nil
	})
	return out, err
}

func (r lodgingRepo) SelectByExternalRef(_ context.Context, ref string) (domain.Lodging, error) {
	var out domain.Lodging
	err := r.with(func(st *state) error {
		for _, id := range sortedKeys(st.lodgings) {
			l := st.lodgings[id]
			if l.ExternalRef != nil && *l.ExternalRef == ref {
				out = st.assemble(l)
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r lodgingRepo) Insert(_ context.Context, l *domain.Lodging) error {
	return r.with(func(st *state) error {
		if l.ExternalRef != nil {
			for _, cur := range st.lodgings {
				if cur.ExternalRef != nil && *cur.ExternalRef == *l.ExternalRef {
					return domain.ErrConflict
				}
			}
		}
		l.ID = st.id()
		if l.Location != nil {
			l.Location.ID = st.id()
			if l.Location.Address != nil {
				l.Location.Address.ID = st.id()
			}
		}
		for i := range l.Rentals {
			l.Rentals[i].LodgingID = l.ID
			l.Rentals[i].ID = st.id()
			l.Rentals[i].Unit.ID = st.id()
			st.rentals[l.Rentals[i].ID] = l.Rentals[i]
		}
		for i := range l.Reviews {
			l.Reviews[i].LodgingID = l.ID
			l.Reviews[i].ID = st.id()
			st.reviews[l.Reviews[i].ID] = l.Reviews[i]
		}
		for i := range l.Images {
			l.Images[i].LodgingID = l.ID
			l.Images[i].ID = st.id()
			st.images[l.Images[i].ID] = l.Images[i]
		}
		st.lodgings[l.ID] = stripped(*l)
		return nil
	})
}

func (r lodgingRepo) Update(_ context.Context, l domain.Lodging) error {
	return r.with(func(st *state) error {
		cur, ok := st.lodgings[l.ID]
		if !ok {
			return domain.ErrNotFound
		}
		l.ExternalRef = cur.ExternalRef
		st.lodgings[l.ID] = stripped(l)
		return nil
	})
}

func (r lodgingRepo) Delete(_ context.Context, id int64) error {
	return r.with(func(st *state) error {
		if _, ok := st.lodgings[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.lodgings, id)
		for k, v := range st.rentals {
			if v.LodgingID == id {
				delete(st.rentals, k)
			}
		}
		for k, v := range st.reviews {
			if v.LodgingID == id {
				delete(st.reviews, k)
			}
		}
		for k, v := range st.images {
			if v.LodgingID == id {
				delete(st.images, k)
			}
		}
		return nil
	})
}

func stripped(l domain.Lodging) domain.Lodging {
	l.Rentals, l.Reviews, l.Images = nil, nil, nil
	if l.Location != nil {
		loc := *l.Location
		if loc.Address != nil {
			a := *loc.Address
			loc.Address = &a
		}
		l.Location = &loc
	}
	return l
}

// ---- children ----

// Generic helpers shared by the child tables.
func selectAll[T any](r repos, table func(*state) map[int64]T) ([]T, error) {
	out := []T{}
	err := r.with(func(st *state) error {
		m := table(st)
		for _, id := range sortedKeys(m) {
			out = append(out, m[id])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func selectByID[T any](r repos, table func(*state) map[int64]T, id int64) (T, error) {
	var out T
	err := r.with(func(st *state) error {
		v, ok := table(st)[id]
		if !ok {
			return domain.ErrNotFound
		}
		out = v
		return nil
	})
	return out, err
}

func deleteByID[T any](r repos, table func(*state) map[int64]T, id int64) error {
	return r.with(func(st *state) error {
		m := table(st)
		if _, ok := m[id]; !ok {
			return domain.ErrNotFound
		}
		delete(m, id)
		return nil
	})
}

// checkLodging mirrors the foreign key every child row carries.
func checkLodging(st *state, id int64) error {
	if _, ok := st.lodgings[id]; !ok {
		return domain.ErrConflict
	}
	return nil
}

func rentalsOf(st *state) map[int64]domain.Rental { return st.rentals }
func reviewsOf(st *state) map[int64]domain.Review { return st.reviews }
func imagesOf(st *state) map[int64]domain.Image   { return st.images }

type rentalRepo struct{ repos }

func (r rentalRepo) SelectAll(context.Context) ([]domain.Rental, error) {
	return selectAll(r.repos, rentalsOf)
}
func (r rentalRepo) SelectByID(_ context.Context, id int64) (domain.Rental, error) {
	return selectByID(r.repos, rentalsOf, id)
}
func (r rentalRepo) Delete(_ context.Context, id int64) error {
	return deleteByID(r.repos, rentalsOf, id)
}

func (r rentalRepo) Insert(_ context.Context, v *domain.Rental) error {
	return r.with(func(st *state) error {
		if err := checkLodging(st, v.LodgingID); err != nil {
			return err
		}
		v.ID = st.id()
		v.Unit.ID = st.id()
		st.rentals[v.ID] = *v
		return nil
	})
}

func (r rentalRepo) Update(_ context.Context, v domain.Rental) error {
	return r.with(func(st *state) error {
		cur, ok := st.rentals[v.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if err := checkLodging(st, v.LodgingID); err != nil {
			return err
		}
		v.Unit.ID = cur.Unit.ID
		st.rentals[v.ID] = v
		return nil
	})
}

type reviewRepo struct{ repos }

func (r reviewRepo) SelectAll(context.Context) ([]domain.Review, error) {
	return selectAll(r.repos, reviewsOf)
}
func (r reviewRepo) SelectByID(_ context.Context, id int64) (domain.Review, error) {
	return selectByID(r.repos, reviewsOf, id)
}
func (r reviewRepo) Delete(_ context.Context, id int64) error {
	return deleteByID(r.repos, reviewsOf, id)
}

func (r reviewRepo) Insert(_ context.Context, v *domain.Review) error {
	return r.with(func(st *state) error {
		if err := checkLodging(st, v.LodgingID); err != nil {
			return err
		}
		v.ID = st.id()
		st.reviews[v.ID] = *v
		return nil
	})
}

func (r reviewRepo) Update(_ context.Context, v domain.Review) error {
	return r.with(func(st *state) error {
		if _, ok := st.reviews[v.ID]; !ok {
			return domain.ErrNotFound
		}
		if err := checkLodging(st, v.LodgingID); err != nil {
			return err
		}
		st.reviews[v.ID] = v
		return nil
	})
}

type imageRepo struct{ repos }

func (r imageRepo) SelectAll(context.Context) ([]domain.Image, error) {
	return selectAll(r.repos, imagesOf)
}
func (r imageRepo) SelectByID(_ context.Context, id int64) (domain.Image, error) {
	return selectByID(r.repos, imagesOf, id)
}
func (r imageRepo) Delete(_ context.Context, id int64) error {
	return deleteByID(r.repos, imagesOf, id)
}

func (r imageRepo) SelectByLodging(_ context.Context, lodgingID int64) ([]domain.Image, error) {
	out := []domain.Image{}
	err := r.with(func(st *state) error {
		for _, id := range sortedKeys(st.images) {
			if img := st.images[id]; img.LodgingID == lodgingID {
				out = append(out, img)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r imageRepo) Insert(_ context.Context, v *domain.Image) error {
	return r.with(func(st *state) error {
		if err := checkLodging(st, v.LodgingID); err != nil {
			return err
		}
		v.ID = st.id()
		st.images[v.ID] = *v
		return nil
	})
}

func (r imageRepo) Update(_ context.Context, v domain.Image) error {
	return r.with(func(st *state) error {
		if _, ok := st.images[v.ID]; !ok {
			return domain.ErrNotFound
		}
		st.images[v.ID] = v
		return nil
	})
}
