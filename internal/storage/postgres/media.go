package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"post_importer/internal/domain"
)

type MediaStore struct {
	db *sqlx.DB
}

func NewMediaStore(db *sqlx.DB) *MediaStore {
	return &MediaStore{db: db}
}

func (s *MediaStore) Insert(ctx context.Context, asset *domain.MediaAsset) (int64, error) {
	query := `
		INSERT INTO media_assets (
			item_id, title, source_url, storage_key, public_url, content_type, size_bytes
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		asset.ItemID,
		asset.Title,
		asset.SourceURL,
		asset.StorageKey,
		asset.PublicURL,
		asset.ContentType,
		asset.SizeBytes,
	).Scan(&asset.ID, &asset.CreatedAt)
	if err != nil {
		return 0, err
	}
	return asset.ID, nil
}
