package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"post_importer/internal/domain"
)

type ImportRunStore struct {
	db *sqlx.DB
}

func NewImportRunStore(db *sqlx.DB) *ImportRunStore {
	return &ImportRunStore{db: db}
}

func (s *ImportRunStore) Record(ctx context.Context, report *domain.ImportReport) error {
	outcomes, err := json.Marshal(report.Outcomes)
	if err != nil {
		return fmt.Errorf("marshal outcomes: %w", err)
	}

	query := `
		INSERT INTO import_runs (
			feed, started_at, finished_at, fetched, created, skipped, failed, feed_error, outcomes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.ExecContext(ctx, query,
		report.Feed,
		report.StartedAt,
		report.FinishedAt,
		report.Fetched,
		report.Created(),
		report.Skipped(),
		report.Failed(),
		report.FeedError,
		string(outcomes),
	)
	return err
}

// Latest returns the most recent run for the feed, or nil before the first run.
func (s *ImportRunStore) Latest(ctx context.Context, feed string) (*domain.ImportRun, error) {
	var run domain.ImportRun
	query := `
		SELECT id, feed, started_at, finished_at, fetched, created, skipped, failed, feed_error
		FROM import_runs
		WHERE feed = $1
		ORDER BY started_at DESC, id DESC
		LIMIT 1`

	err := s.db.GetContext(ctx, &run, query, feed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
