package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"post_importer/internal/domain"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	var category domain.Category
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &category,
		"SELECT id, name FROM categories WHERE name = $1",
		name,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts the category or returns the one that already has this
// name. The no-op update makes RETURNING yield the existing row.
func (s *CategoryStore) Create(ctx context.Context, name string) (*domain.Category, error) {
	query := `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`

	var category domain.Category
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &category, query, name); err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CategoryStore) LinkToItem(ctx context.Context, itemID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO content_item_categories (item_id, category_id) VALUES ")
	valueArgs := make([]any, 0, len(categoryIDs)+1)
	valueArgs = append(valueArgs, itemID)

	for i, categoryID := range categoryIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, $")
		sb.WriteString(strconv.Itoa(i + 2))
		sb.WriteString(")")
		valueArgs = append(valueArgs, categoryID)
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), valueArgs...)
	return err
}

func (s *CategoryStore) GetByItemID(ctx context.Context, itemID int64) ([]domain.Category, error) {
	query := `
		SELECT c.id, c.name
		FROM categories c
		INNER JOIN content_item_categories ic ON ic.category_id = c.id
		WHERE ic.item_id = $1
		ORDER BY c.name`

	var categories []domain.Category
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &categories, query, itemID)
	return categories, err
}
