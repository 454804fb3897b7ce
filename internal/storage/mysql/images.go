package mysql

import (
	"context"

	"lodging/internal/domain"
)

type imageRepo struct{ q querier }

func selectImages(ctx context.Context, q querier, where string, args ...any) ([]domain.Image, error) {
	rows, err := q.QueryContext(ctx, selectImagesSQL+where+"\nORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Image{}
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.LodgingID, &img.ImageURI); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (r imageRepo) SelectAll(ctx context.Context) ([]domain.Image, error) {
	return selectImages(ctx, r.q, "")
}

func (r imageRepo) SelectByLodging(ctx context.Context, lodgingID int64) ([]domain.Image, error) {
	return selectImages(ctx, r.q, "WHERE lodging_id = ?", lodgingID)
}

func (r imageRepo) SelectByID(ctx context.Context, id int64) (domain.Image, error) {
	out, err := selectImages(ctx, r.q, "WHERE id = ?", id)
	if err != nil {
		return domain.Image{}, err
	}
	if len(out) == 0 {
		return domain.Image{}, domain.ErrNotFound
	}
	return out[0], nil
}

func (r imageRepo) Insert(ctx context.Context, img *domain.Image) error {
	id, err := lastID(r.q.ExecContext(ctx, insertImageSQL, img.LodgingID, img.ImageURI))
	if err != nil {
		return err
	}
	img.ID = id
	return nil
}

func (r imageRepo) Update(ctx context.Context, img domain.Image) error {
	if err := exists(ctx, r.q, "images", img.ID); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, "UPDATE images SET lodging_id = ?, image_uri = ? WHERE id = ?", img.LodgingID, img.ImageURI, img.ID)
	return mapErr(err)
}

func (r imageRepo) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.q, "images", id)
}
