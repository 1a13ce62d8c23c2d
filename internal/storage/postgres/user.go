package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"post_importer/internal/domain"
)

const RoleAdministrator = "administrator"

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// FirstAdministrator returns the lowest id holding the administrator role.
func (s *UserStore) FirstAdministrator(ctx context.Context) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &id,
		"SELECT id FROM users WHERE role = $1 ORDER BY id LIMIT 1",
		RoleAdministrator,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNoAdministrator
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
