package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"post_importer/internal/domain"
)

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

type itemRow struct {
	ID               int64         `db:"id"`
	Title            string        `db:"title"`
	Body             string        `db:"body"`
	Status           string        `db:"status"`
	AuthorID         int64         `db:"author_id"`
	PublishedAt      time.Time     `db:"published_at"`
	ThumbnailMediaID sql.NullInt64 `db:"thumbnail_media_id"`
	ThumbnailURL     string        `db:"thumbnail_url"`
	CreatedAt        time.Time     `db:"created_at"`
}

func (r itemRow) toDomain() domain.ContentItem {
	item := domain.ContentItem{
		ID:           r.ID,
		Title:        r.Title,
		Body:         r.Body,
		Status:       domain.ContentStatus(r.Status),
		AuthorID:     r.AuthorID,
		PublishedAt:  r.PublishedAt,
		ThumbnailURL: r.ThumbnailURL,
		CreatedAt:    r.CreatedAt,
		Meta:         map[string]string{},
	}
	if r.ThumbnailMediaID.Valid {
		id := r.ThumbnailMediaID.Int64
		item.ThumbnailMediaID = &id
	}
	return item
}

const itemColumns = `
	i.id, i.title, i.body, i.status, i.author_id, i.published_at,
	i.thumbnail_media_id, COALESCE(m.public_url, '') AS thumbnail_url, i.created_at`

// FindByExactTitle returns the oldest item whose title equals title
// byte for byte, or nil when there is none.
func (s *ContentStore) FindByExactTitle(ctx context.Context, title string) (*domain.ContentItem, error) {
	query := `SELECT` + itemColumns + `
		FROM content_items i
		LEFT JOIN media_assets m ON m.id = i.thumbnail_media_id
		WHERE i.title = $1
		ORDER BY i.id
		LIMIT 1`

	var row itemRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item := row.toDomain()
	return &item, nil
}

func (s *ContentStore) Create(ctx context.Context, draft *domain.ContentDraft) (int64, error) {
	query := `
		INSERT INTO content_items (title, body, status, author_id, published_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		draft.Title,
		draft.Body,
		string(draft.Status),
		draft.AuthorID,
		draft.PublishedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// SetMeta writes every key of meta for the item, replacing earlier values.
func (s *ContentStore) SetMeta(ctx context.Context, itemID int64, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("INSERT INTO content_item_meta (item_id, meta_key, meta_value) VALUES ")
	args := make([]any, 0, len(keys)*2+1)
	args = append(args, itemID)

	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, $")
		sb.WriteString(strconv.Itoa(i*2 + 2))
		sb.WriteString(", $")
		sb.WriteString(strconv.Itoa(i*2 + 3))
		sb.WriteString(")")
		args = append(args, k, meta[k])
	}
	sb.WriteString(" ON CONFLICT (item_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value")

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, sb.String(), args...)
	return err
}

// SetThumbnail points the item at a media asset.
func (s *ContentStore) SetThumbnail(ctx context.Context, itemID, mediaID int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE content_items SET thumbnail_media_id = $2 WHERE id = $1",
		itemID, mediaID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

// Query returns items matching q with their metadata and categories loaded.
func (s *ContentStore) Query(ctx context.Context, q domain.ContentQuery) ([]domain.ContentItem, error) {
	query, args := buildListQuery(q)

	var rows []itemRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	items := make([]domain.ContentItem, len(rows))
	ids := make([]int64, len(rows))
	index := make(map[int64]int, len(rows))
	for i, r := range rows {
		items[i] = r.toDomain()
		ids[i] = r.ID
		index[r.ID] = i
	}

	meta, err := s.metaFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range meta {
		items[index[m.ItemID]].Meta[m.Key] = m.Value
	}

	categories, err := s.categoriesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		i := index[c.ItemID]
		items[i].Categories = append(items[i].Categories, domain.Category{ID: c.ID, Name: c.Name})
	}

	return items, nil
}

type metaRow struct {
	ItemID int64  `db:"item_id"`
	Key    string `db:"meta_key"`
	Value  string `db:"meta_value"`
}

func (s *ContentStore) metaFor(ctx context.Context, ids []int64) ([]metaRow, error) {
	var rows []metaRow
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows,
		`SELECT item_id, meta_key, meta_value FROM content_item_meta WHERE item_id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("select meta: %w", err)
	}
	return rows, nil
}

type itemCategoryRow struct {
	ItemID int64  `db:"item_id"`
	ID     int64  `db:"id"`
	Name   string `db:"name"`
}

func (s *ContentStore) categoriesFor(ctx context.Context, ids []int64) ([]itemCategoryRow, error) {
	var rows []itemCategoryRow
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, `
		SELECT ic.item_id, c.id, c.name
		FROM content_item_categories ic
		INNER JOIN categories c ON c.id = ic.category_id
		WHERE ic.item_id = ANY($1)
		ORDER BY c.name, c.id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	return rows, nil
}

// ratingExpr orders by the leading number of the rating value; values
// without one sort as zero.
const ratingExpr = `COALESCE(CAST(substring(r.meta_value from '^\s*(-?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][-+]?[0-9]+)?)') AS NUMERIC), 0)`

func buildListQuery(q domain.ContentQuery) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	sb.WriteString("SELECT")
	sb.WriteString(itemColumns)
	sb.WriteString("\nFROM content_items i\nLEFT JOIN media_assets m ON m.id = i.thumbnail_media_id")
	if q.Sort == domain.SortRating {
		sb.WriteString("\nLEFT JOIN content_item_meta r ON r.item_id = i.id AND r.meta_key = ")
		sb.WriteString(arg(domain.MetaCustomRating))
	}

	sb.WriteString("\nWHERE i.status = ")
	sb.WriteString(arg(string(q.Status)))

	if q.RequireMeta != "" {
		sb.WriteString("\nAND EXISTS (SELECT 1 FROM content_item_meta rm WHERE rm.item_id = i.id AND rm.meta_key = ")
		sb.WriteString(arg(q.RequireMeta))
		sb.WriteString(")")
	}

	if len(q.IDs) > 0 {
		sb.WriteString("\nAND i.id = ANY(")
		sb.WriteString(arg(pq.Array(q.IDs)))
		sb.WriteString(")")
	}

	direction := "DESC"
	if q.Order == domain.OrderAsc {
		direction = "ASC"
	}

	sb.WriteString("\nORDER BY ")
	switch q.Sort {
	case domain.SortTitle:
		sb.WriteString("i.title")
	case domain.SortRating:
		sb.WriteString(ratingExpr)
	default:
		sb.WriteString("i.published_at")
	}
	sb.WriteString(" ")
	sb.WriteString(direction)
	sb.WriteString(", i.id ASC")

	if q.Limit > 0 {
		sb.WriteString("\nLIMIT ")
		sb.WriteString(arg(q.Limit))
	}

	return sb.String(), args
}
