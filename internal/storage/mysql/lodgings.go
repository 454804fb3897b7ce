package mysql

import (
	"context"
	"database/sql"

	"lodging/internal/domain"
)

type lodgingRepo struct{ q querier }

func (r lodgingRepo) SelectAll(ctx context.Context) ([]domain.Lodging, error) {
	return r.FetchLodgingsMatchingLocation(ctx, domain.LocationFilter{})
}

func (r lodgingRepo) SelectByID(ctx context.Context, id int64) (domain.Lodging, error) {
	qb := &queryBuilder{}
	qb.addCondition("l.id = ?", id)
	return r.selectOne(ctx, qb)
}

func (r lodgingRepo) SelectByExternalRef(ctx context.Context, ref string) (domain.Lodging, error) {
	qb := &queryBuilder{}
	qb.addCondition("l.external_ref = ?", ref)
	return r.selectOne(ctx, qb)
}

func (r lodgingRepo) FetchLodgingsMatchingLocation(ctx context.Context, f domain.LocationFilter) ([]domain.Lodging, error) {
	qb := &queryBuilder{}
	applyLocationFilter(qb, f)
	return r.selectGraph(ctx, qb)
}

func (r lodgingRepo) selectOne(ctx context.Context, qb *queryBuilder) (domain.Lodging, error) {
	out, err := r.selectGraph(ctx, qb)
	if err != nil {
		return domain.Lodging{}, err
	}
	if len(out) == 0 {
		return domain.Lodging{}, domain.ErrNotFound
	}
	return out[0], nil
}

// selectGraph loads the matching lodgings, then their rentals, reviews and
// images in one batched query each.
func (r lodgingRepo) selectGraph(ctx context.Context, qb *queryBuilder) ([]domain.Lodging, error) {
	where, args := qb.build()
	rows, err := r.q.QueryContext(ctx, selectLodgingsSQL+where+"\nORDER BY l.id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Lodging{}
	for rows.Next() {
		l, err := scanLodging(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	idx := make(map[int64]int, len(out))
	ids := make([]int64, len(out))
	for i, l := range out {
		idx[l.ID] = i
		ids[i] = l.ID
	}
	in, inArgs := inClause(ids)

	rentals, err := selectRentals(ctx, r.q, "WHERE r.lodging_id "+in, inArgs...)
	if err != nil {
		return nil, err
	}
	for _, rt := range rentals {
		i := idx[rt.LodgingID]
		out[i].Rentals = append(out[i].Rentals, rt)
	}

	reviews, err := selectReviews(ctx, r.q, "WHERE lodging_id "+in, inArgs...)
	if err != nil {
		return nil, err
	}
	for _, rv := range reviews {
		i := idx[rv.LodgingID]
		out[i].Reviews = append(out[i].Reviews, rv)
	}

	images, err := selectImages(ctx, r.q, "WHERE lodging_id "+in, inArgs...)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		i := idx[img.LodgingID]
		out[i].Images = append(out[i].Images, img)
	}
	return out, nil
}

func scanLodging(rows *sql.Rows) (domain.Lodging, error) {
	l := domain.Lodging{
		Rentals: []domain.Rental{},
		Reviews: []domain.Review{},
		Images:  []domain.Image{},
	}
	var (
		ref                          sql.NullString
		locID, addrID                sql.NullInt64
		lat, lon                     sql.NullString
		street, city, state, country sql.NullString
		postal                       sql.NullString
	)
	if err := rows.Scan(
		&l.ID, &ref, &l.Name, &l.Bathrooms,
		&locID, &lat, &lon,
		&addrID, &street, &city, &state, &country, &postal,
	); err != nil {
		return domain.Lodging{}, err
	}
	if ref.Valid {
		s := ref.String
		l.ExternalRef = &s
	}
	if locID.Valid {
		l.Location = &domain.Location{ID: locID.Int64, Latitude: lat.String, Longitude: lon.String}
		if addrID.Valid {
			l.Location.Address = &domain.Address{
				ID:            addrID.Int64,
				Street:        street.String,
				City:          city.String,
				StateProvince: state.String,
				Country:       country.String,
				PostalCode:    postal.String,
			}
		}
	}
	return l, nil
}

// Insert writes address, location, lodging and then every nested rental,
// review and image, filling in the generated ids.
func (r lodgingRepo) Insert(ctx context.Context, l *domain.Lodging) error {
	locID, err := r.writeLocation(ctx, l.Location)
	if err != nil {
		return err
	}
	id, err := lastID(r.q.ExecContext(ctx, insertLodgingSQL, valStr(l.ExternalRef), valInt64(locID), l.Name, l.Bathrooms))
	if err != nil {
		return err
	}
	l.ID = id

	rentals := rentalRepo{q: r.q}
	for i := range l.Rentals {
		l.Rentals[i].LodgingID = id
		if err := rentals.Insert(ctx, &l.Rentals[i]); err != nil {
			return err
		}
	}
	reviews := reviewRepo{q: r.q}
	for i := range l.Reviews {
		l.Reviews[i].LodgingID = id
		if err := reviews.Insert(ctx, &l.Reviews[i]); err != nil {
			return err
		}
	}
	images := imageRepo{q: r.q}
	for i := range l.Images {
		l.Images[i].LodgingID = id
		if err := images.Insert(ctx, &l.Images[i]); err != nil {
			return err
		}
	}
	return nil
}

// Update rewrites the lodging row and its location/address. Rentals, reviews
// and images are managed through their own repositories.
func (r lodgingRepo) Update(ctx context.Context, l domain.Lodging) error {
	var curLoc, curAddr sql.NullInt64
	if err := r.q.QueryRowContext(ctx, selectLodgingRefsSQL, l.ID).Scan(&curLoc, &curAddr); err != nil {
		return mapErr(err)
	}

	var locID int64
	switch {
	case l.Location == nil:
		// location detached; the old rows are dropped below
	case curLoc.Valid:
		locID = curLoc.Int64
		addrID, err := r.writeAddress(ctx, curAddr, l.Location.Address)
		if err != nil {
			return err
		}
		if _, err := r.q.ExecContext(ctx, updateLocationSQL, valInt64(addrID), l.Location.Latitude, l.Location.Longitude, locID); err != nil {
			return mapErr(err)
		}
	default:
		var err error
		if locID, err = r.writeLocation(ctx, l.Location); err != nil {
			return err
		}
	}

	if _, err := r.q.ExecContext(ctx, updateLodgingSQL, valInt64(locID), l.Name, l.Bathrooms, l.ID); err != nil {
		return mapErr(err)
	}
	if l.Location == nil && curLoc.Valid {
		return r.dropLocation(ctx, curLoc, curAddr)
	}
	if l.Location != nil && l.Location.Address == nil && curAddr.Valid {
		_, err := r.q.ExecContext(ctx, "DELETE FROM addresses WHERE id = ?", curAddr.Int64)
		return mapErr(err)
	}
	return nil
}

func (r lodgingRepo) Delete(ctx context.Context, id int64) error {
	var locID, addrID sql.NullInt64
	if err := r.q.QueryRowContext(ctx, selectLodgingRefsSQL, id).Scan(&locID, &addrID); err != nil {
		return mapErr(err)
	}

	unitIDs, err := r.unitIDs(ctx, id)
	if err != nil {
		return err
	}
	// rentals, reviews and images go with the lodging (ON DELETE CASCADE)
	if err := deleteByID(ctx, r.q, "lodgings", id); err != nil {
		return err
	}
	if len(unitIDs) > 0 {
		in, args := inClause(unitIDs)
		if _, err := r.q.ExecContext(ctx, "DELETE FROM rental_units WHERE id "+in, args...); err != nil {
			return mapErr(err)
		}
	}
	return r.dropLocation(ctx, locID, addrID)
}

func (r lodgingRepo) unitIDs(ctx context.Context, lodgingID int64) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT rental_unit_id FROM rentals WHERE lodging_id = ?", lodgingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r lodgingRepo) writeLocation(ctx context.Context, loc *domain.Location) (int64, error) {
	if loc == nil {
		return 0, nil
	}
	addrID, err := r.writeAddress(ctx, sql.NullInt64{}, loc.Address)
	if err != nil {
		return 0, err
	}
	id, err := lastID(r.q.ExecContext(ctx, insertLocationSQL, valInt64(addrID), loc.Latitude, loc.Longitude))
	if err != nil {
		return 0, err
	}
	loc.ID = id
	return id, nil
}

// writeAddress updates the current address row in place or inserts a new one.
func (r lodgingRepo) writeAddress(ctx context.Context, cur sql.NullInt64, a *domain.Address) (int64, error) {
	if a == nil {
		return 0, nil
	}
	if cur.Valid {
		if _, err := r.q.ExecContext(ctx, updateAddressSQL, a.Street, a.City, a.StateProvince, a.Country, a.PostalCode, cur.Int64); err != nil {
			return 0, mapErr(err)
		}
		a.ID = cur.Int64
		return cur.Int64, nil
	}
	id, err := lastID(r.q.ExecContext(ctx, insertAddressSQL, a.Street, a.City, a.StateProvince, a.Country, a.PostalCode))
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}

func (r lodgingRepo) dropLocation(ctx context.Context, locID, addrID sql.NullInt64) error {
	if locID.Valid {
		if _, err := r.q.ExecContext(ctx, "DELETE FROM locations WHERE id = ?", locID.Int64); err != nil {
			return mapErr(err)
		}
	}
	if addrID.Valid {
		if _, err := r.q.ExecContext(ctx, "DELETE FROM addresses WHERE id = ?", addrID.Int64); err != nil {
			return mapErr(err)
		}
	}
	return nil
}
