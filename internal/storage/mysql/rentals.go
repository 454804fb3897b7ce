package mysql

import (
	"context"

	"lodging/internal/domain"
)

type rentalRepo struct{ q querier }

func selectRentals(ctx context.Context, q querier, where string, args ...any) ([]domain.Rental, error) {
	rows, err := q.QueryContext(ctx, selectRentalsSQL+where+"\nORDER BY r.id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Rental{}
	for rows.Next() {
		var rt domain.Rental
		if err := rows.Scan(
			&rt.ID, &rt.LodgingID, &rt.LotNumber, &rt.Status, &rt.Price, &rt.DiscountedPrice,
			&rt.Unit.ID, &rt.Unit.Name, &rt.Unit.Capacity,
		); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r rentalRepo) SelectAll(ctx context.Context) ([]domain.Rental, error) {
	return selectRentals(ctx, r.q, "")
}

func (r rentalRepo) SelectByID(ctx context.Context, id int64) (domain.Rental, error) {
	out, err := selectRentals(ctx, r.q, "WHERE r.id = ?", id)
	if err != nil {
		return domain.Rental{}, err
	}
	if len(out) == 0 {
		return domain.Rental{}, domain.ErrNotFound
	}
	return out[0], nil
}

// Insert creates the rental unit first; every rental owns exactly one.
func (r rentalRepo) Insert(ctx context.Context, rt *domain.Rental) error {
	unitID, err := lastID(r.q.ExecContext(ctx, insertRentalUnitSQL, rt.Unit.Name, rt.Unit.Capacity))
	if err != nil {
		return err
	}
	rt.Unit.ID = unitID
	id, err := lastID(r.q.ExecContext(ctx, insertRentalSQL,
		rt.LodgingID, unitID, rt.LotNumber, rt.Status, rt.Price, rt.DiscountedPrice))
	if err != nil {
		return err
	}
	rt.ID = id
	return nil
}

func (r rentalRepo) Update(ctx context.Context, rt domain.Rental) error {
	var unitID int64
	if err := r.q.QueryRowContext(ctx, "SELECT rental_unit_id FROM rentals WHERE id = ?", rt.ID).Scan(&unitID); err != nil {
		return mapErr(err)
	}
	if _, err := r.q.ExecContext(ctx, updateRentalSQL,
		rt.LodgingID, rt.LotNumber, rt.Status, rt.Price, rt.DiscountedPrice, rt.ID); err != nil {
		return mapErr(err)
	}
	_, err := r.q.ExecContext(ctx, updateRentalUnitSQL, rt.Unit.Name, rt.Unit.Capacity, unitID)
	return mapErr(err)
}

func (r rentalRepo) Delete(ctx context.Context, id int64) error {
	var unitID int64
	if err := r.q.QueryRowContext(ctx, "SELECT rental_unit_id FROM rentals WHERE id = ?", id).Scan(&unitID); err != nil {
		return mapErr(err)
	}
	if err := deleteByID(ctx, r.q, "rentals", id); err != nil {
		return err
	}
	return deleteByID(ctx, r.q, "rental_units", unitID)
}
