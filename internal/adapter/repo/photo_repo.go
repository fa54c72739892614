package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fotnik/internal/domain"
)

// PhotoRepositoryPG implements domain.PhotoRepository using PostgreSQL.
type PhotoRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewPhotoRepository constructs a new photo repository instance.
func NewPhotoRepository(pool *pgxpool.Pool) *PhotoRepositoryPG {
	return &PhotoRepositoryPG{pool: pool}
}

// Insert persists one generated photo record and returns it with its id.
func (r *PhotoRepositoryPG) Insert(ctx context.Context, photo *domain.Photo) (*domain.Photo, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO product_photos (product_id, image_url, source_image_url, no_bg_image_url, background_description, positive_prompt, negative_prompt)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at;
`, photo.ProductID, photo.ImageURL, photo.SourceImageURL, photo.NoBgImageURL, photo.BackgroundDescription, photo.PositivePrompt, photo.NegativePrompt)

	saved := *photo
	if err := row.Scan(&saved.ID, &saved.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	return &saved, nil
}

// GetByID returns one photo record.
func (r *PhotoRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, product_id, image_url, source_image_url, no_bg_image_url, background_description, positive_prompt, negative_prompt, user_rating, caption, created_at
FROM product_photos
WHERE id = $1;
`, id)

	var photo domain.Photo
	err := row.Scan(&photo.ID, &photo.ProductID, &photo.ImageURL, &photo.SourceImageURL, &photo.NoBgImageURL, &photo.BackgroundDescription, &photo.PositivePrompt, &photo.NegativePrompt, &photo.UserRating, &photo.Caption, &photo.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// ListByProduct returns the product's generated photos, newest first.
func (r *PhotoRepositoryPG) ListByProduct(ctx context.Context, productID string) ([]domain.Photo, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, product_id, image_url, source_image_url, no_bg_image_url, background_description, positive_prompt, negative_prompt, user_rating, caption, created_at
FROM product_photos
WHERE product_id = $1
ORDER BY created_at DESC;
`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []domain.Photo
	for rows.Next() {
		var photo domain.Photo
		if err := rows.Scan(&photo.ID, &photo.ProductID, &photo.ImageURL, &photo.SourceImageURL, &photo.NoBgImageURL, &photo.BackgroundDescription, &photo.PositivePrompt, &photo.NegativePrompt, &photo.UserRating, &photo.Caption, &photo.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return photos, nil
}

// UpdateRating sets the user rating on one photo.
func (r *PhotoRepositoryPG) UpdateRating(ctx context.Context, id string, rating int) error {
	tag, err := r.pool.Exec(ctx, `UPDATE product_photos SET user_rating = $2 WHERE id = $1;`, id, rating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateCaption sets the caption on one photo.
func (r *PhotoRepositoryPG) UpdateCaption(ctx context.Context, id string, caption string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE product_photos SET caption = $2 WHERE id = $1;`, id, caption)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.PhotoRepository = (*PhotoRepositoryPG)(nil)

// SourcePhotoRepositoryPG implements domain.SourcePhotoRepository.
type SourcePhotoRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSourcePhotoRepository constructs a new source photo repository instance.
func NewSourcePhotoRepository(pool *pgxpool.Pool) *SourcePhotoRepositoryPG {
	return &SourcePhotoRepositoryPG{pool: pool}
}

// Insert persists one source photo record and returns it with its id.
func (r *SourcePhotoRepositoryPG) Insert(ctx context.Context, photo *domain.SourcePhoto) (*domain.SourcePhoto, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO source_photos (product_id, original_photo_url, edited_photo_url)
VALUES ($1, $2, $3)
RETURNING id, created_at;
`, photo.ProductID, photo.OriginalPhotoURL, photo.EditedPhotoURL)

	saved := *photo
	if err := row.Scan(&saved.ID, &saved.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert source photo: %w", err)
	}
	return &saved, nil
}

var _ domain.SourcePhotoRepository = (*SourcePhotoRepositoryPG)(nil)
