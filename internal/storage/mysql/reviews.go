package mysql

import (
	"context"
	"database/sql"

	"lodging/internal/domain"
)

type reviewRepo struct{ q querier }

func selectReviews(ctx context.Context, q querier, where string, args ...any) ([]domain.Review, error) {
	rows, err := q.QueryContext(ctx, selectReviewsSQL+where+"\nORDER BY date_created DESC, id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		var created sql.NullTime
		if err := rows.Scan(&rv.ID, &rv.LodgingID, &rv.AccountID, &rv.Comment, &rv.Rating, &created); err != nil {
			return nil, err
		}
		if created.Valid {
			rv.DateCreated = created.Time.UTC()
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r reviewRepo) SelectAll(ctx context.Context) ([]domain.Review, error) {
	return selectReviews(ctx, r.q, "")
}

func (r reviewRepo) SelectByID(ctx context.Context, id int64) (domain.Review, error) {
	out, err := selectReviews(ctx, r.q, "WHERE id = ?", id)
	if err != nil {
		return domain.Review{}, err
	}
	if len(out) == 0 {
		return domain.Review{}, domain.ErrNotFound
	}
	return out[0], nil
}

// Insert leaves date_created to the database when the review carries none.
func (r reviewRepo) Insert(ctx context.Context, rv *domain.Review) error {
	var created any
	if !rv.DateCreated.IsZero() {
		created = rv.DateCreated.UTC()
	}
	id, err := lastID(r.q.ExecContext(ctx, insertReviewSQL, rv.LodgingID, rv.AccountID, rv.Comment, rv.Rating, created))
	if err != nil {
		return err
	}
	rv.ID = id
	return nil
}

func (r reviewRepo) Update(ctx context.Context, rv domain.Review) error {
	if err := exists(ctx, r.q, "reviews", rv.ID); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, updateReviewSQL, rv.LodgingID, rv.AccountID, rv.Comment, rv.Rating, rv.ID)
	return mapErr(err)
}

func (r reviewRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.q, "reviews", id)
}
