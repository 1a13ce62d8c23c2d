//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"post_importer/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
	adminID   int64
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_content.up.sql"),
			filepath.Join(migrationsPath, "002_create_media.up.sql"),
			filepath.Join(migrationsPath, "003_create_import_runs.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_item_categories")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_item_meta")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM content_items")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM categories")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM media_assets")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM import_runs")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM users")

	err := s.db.GetContext(s.ctx, &s.adminID,
		"INSERT INTO users (login, role) VALUES ('admin', 'administrator') RETURNING id")
	s.Require().NoError(err)
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) createItem(title, rating string, publishedAt time.Time) int64 {
	store := NewContentStore(s.db)
	id, err := store.Create(s.ctx, &domain.ContentDraft{
		Title:       title,
		Body:        "<p>" + title + "</p>",
		PublishedAt: publishedAt,
		AuthorID:    s.adminID,
		Status:      domain.StatusPublished,
	})
	s.Require().NoError(err)

	if rating != "-" {
		err = store.SetMeta(s.ctx, id, map[string]string{
			domain.MetaCustomRating: rating,
			domain.MetaCustomLink:   "https://example.com/" + title,
		})
		s.Require().NoError(err)
	}
	return id
}

func (s *PostgresIntegrationSuite) listQuery() domain.ContentQuery {
	return domain.ContentQuery{
		Status:      domain.StatusPublished,
		RequireMeta: domain.MetaCustomRating,
		Sort:        domain.SortDate,
		Order:       domain.OrderDesc,
		Limit:       domain.Unbounded,
	}
}

func titles(items []domain.ContentItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}
	return out
}

func (s *PostgresIntegrationSuite) TestContentStore_FindByExactTitle() {
	store := NewContentStore(s.db)
	id := s.createItem("Go 1.25 released", "5", time.Now())

	item, err := store.FindByExactTitle(s.ctx, "Go 1.25 released")
	s.NoError(err)
	s.Require().NotNil(item)
	s.Equal(id, item.ID)

	item, err = store.FindByExactTitle(s.ctx, "go 1.25 released")
	s.NoError(err)
	s.Nil(item)
}

func (s *PostgresIntegrationSuite) TestContentStore_SetMetaReplacesValues() {
	store := NewContentStore(s.db)
	id := s.createItem("A", "4", time.Now())

	err := store.SetMeta(s.ctx, id, map[string]string{domain.MetaCustomRating: "9"})
	s.NoError(err)

	var value string
	err = s.db.GetContext(s.ctx, &value,
		"SELECT meta_value FROM content_item_meta WHERE item_id = $1 AND meta_key = $2",
		id, domain.MetaCustomRating)
	s.NoError(err)
	s.Equal("9", value)
}

func (s *PostgresIntegrationSuite) TestContentStore_QueryRequiresRatingMeta() {
	store := NewContentStore(s.db)
	now := time.Now()
	s.createItem("rated", "3", now)
	s.createItem("unrated", "-", now)

	items, err := store.Query(s.ctx, s.listQuery())
	s.NoError(err)
	s.Equal([]string{"rated"}, titles(items))
	s.Equal("3", items[0].Meta[domain.MetaCustomRating])
	s.Equal("https://example.com/rated", items[0].Meta[domain.MetaCustomLink])
}

func (s *PostgresIntegrationSuite) TestContentStore_QueryExcludesDrafts() {
	store := NewContentStore(s.db)
	s.createItem("published", "3", time.Now())

	id, err := store.Create(s.ctx, &domain.ContentDraft{
		Title:       "draft",
		PublishedAt: time.Now(),
		AuthorID:    s.adminID,
		Status:      domain.StatusDraft,
	})
	s.NoError(err)
	s.NoError(store.SetMeta(s.ctx, id, map[string]string{domain.MetaCustomRating: "5"}))

	items, err := store.Query(s.ctx, s.listQuery())
	s.NoError(err)
	s.Equal([]string{"published"}, titles(items))
}

func (s *PostgresIntegrationSuite) TestContentStore_QuerySortsByNumericRating() {
	store := NewContentStore(s.db)
	now := time.Now()
	s.createItem("ten", "10", now)
	s.createItem("two", "2", now)
	s.createItem("nine-half", "9.5", now)
	s.createItem("text", "great", now)

	q := s.listQuery()
	q.Sort = domain.SortRating
	q.Order = domain.OrderAsc

	items, err := store.Query(s.ctx, q)
	s.NoError(err)
	s.Equal([]string{"text", "two", "nine-half", "ten"}, titles(items))

	q.Order = domain.OrderDesc
	items, err = store.Query(s.ctx, q)
	s.NoError(err)
	s.Equal([]string{"ten", "nine-half", "two", "text"}, titles(items))
}

func (s *PostgresIntegrationSuite) TestContentStore_QueryTiesKeepInsertionOrder() {
	store := NewContentStore(s.db)
	now := time.Now()
	s.createItem("first", "5", now)
	s.createItem("second", "5", now)
	s.createItem("low", "1", now)

	q := s.listQuery()
	q.Sort = domain.SortRating
	q.Order = domain.OrderAsc

	items, err := store.Query(s.ctx, q)
	s.NoError(err)
	s.Equal([]string{"low", "first", "second"}, titles(items))
}

func (s *PostgresIntegrationSuite) TestContentStore_QueryRatingNumberForms() {
	store := NewContentStore(s.db)
	now := time.Now()
	s.createItem("exponent", "1e1", now)
	s.createItem("leading-dot", ".5", now)
	s.createItem("three", "3", now)
	s.createItem("text", "n/a", now)

	q := s.listQuery()
	q.Sort = domain.SortRating
	q.Order = domain.OrderAsc

	items, err := store.Query(s.ctx, q)
	s.NoError(err)
	s.Equal([]string{"text", "leading-dot", "three", "exponent"}, titles(items))
}

func (s *PostgresIntegrationSuite) TestContentStore_QuerySortsByDateAndTitle() {
	store := NewContentStore(s.db)
	now := time.Now()
	s.createItem("b", "1", now.Add(-2*time.Hour))
	s.createItem("c", "1", now.Add(-1*time.Hour))
	s.createItem("a", "1", now.Add(-3*time.Hour))

	items, err := store.Query(s.ctx, s.listQuery())
	s.NoError(err)
	s.Equal([]string{"c", "b", "a"}, titles(items))

	q := s.listQuery()
	q.Sort = domain.SortTitle
	q.Order = domain.OrderAsc
	items, err = store.Query(s.ctx, q)
	s.NoError(err)
	s.Equal([]string{"a", "b", "c"}, titles(items))
}

func (s *PostgresIntegrationSuite) TestContentStore_QueryLimitAndIDs() {
	store := NewContentStore(s.db)
	now := time.Now()
	var ids []int64
	for i, title := range []string{"one", "two", "three", "four", "five"} {
		ids = append(ids, s.createItem(title, "1", now.Add(time.Duration(i)*time.Minute)))
	}

	q := s.listQuery()
	q.Limit = 2
	items, err := store.Query(s.ctx, q)
	s.NoError(err)
	s.Len(items, 2)

	q = s.listQuery()
	q.IDs = []int64{ids[1], ids[3]}
	items, err = store.Query(s.ctx, q)
	s.NoError(err)
	s.Equal([]string{"four", "two"}, titles(items))
}

func (s *PostgresIntegrationSuite) TestContentStore_QueryLoadsCategoriesAndThumbnail() {
	contentStore := NewContentStore(s.db)
	categoryStore := NewCategoryStore(s.db)
	mediaStore := NewMediaStore(s.db)

	id := s.createItem("A", "4", time.Now())

	tech, err := categoryStore.Create(s.ctx, "Tech")
	s.NoError(err)
	s.NoError(categoryStore.LinkToItem(s.ctx, id, []int64{tech.ID}))

	mediaID, err := mediaStore.Insert(s.ctx, &domain.MediaAsset{
		ItemID:      id,
		Title:       "Image for - A",
		SourceURL:   "https://img.example.com/a.png",
		StorageKey:  "media/a.png",
		PublicURL:   "https://cdn.example.com/media/a.png",
		ContentType: "image/png",
		SizeBytes:   42,
	})
	s.NoError(err)
	s.NoError(contentStore.SetThumbnail(s.ctx, id, mediaID))

	items, err := contentStore.Query(s.ctx, s.listQuery())
	s.NoError(err)
	s.Require().Len(items, 1)
	s.Equal([]domain.Category{{ID: tech.ID, Name: "Tech"}}, items[0].Categories)
	s.Require().NotNil(items[0].ThumbnailMediaID)
	s.Equal(mediaID, *items[0].ThumbnailMediaID)
	s.Equal("https://cdn.example.com/media/a.png", items[0].ThumbnailURL)
}

func (s *PostgresIntegrationSuite) TestContentStore_SetThumbnailMissingItem() {
	err := NewContentStore(s.db).SetThumbnail(s.ctx, 999999, 1)
	s.True(errors.Is(err, domain.ErrNotFound))
}

func (s *PostgresIntegrationSuite) TestCategoryStore_CreateIsGetOrCreate() {
	store := NewCategoryStore(s.db)

	first, err := store.Create(s.ctx, "Tech")
	s.NoError(err)
	second, err := store.Create(s.ctx, "Tech")
	s.NoError(err)
	s.Equal(first.ID, second.ID)

	found, err := store.FindByName(s.ctx, "Tech")
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal(first.ID, found.ID)

	missing, err := store.FindByName(s.ctx, "tech")
	s.NoError(err)
	s.Nil(missing)
}

func (s *PostgresIntegrationSuite) TestCategoryStore_LinkToItem() {
	categoryStore := NewCategoryStore(s.db)
	id := s.createItem("A", "1", time.Now())

	tech, err := categoryStore.Create(s.ctx, "Tech")
	s.NoError(err)
	science, err := categoryStore.Create(s.ctx, "Science")
	s.NoError(err)

	s.NoError(categoryStore.LinkToItem(s.ctx, id, []int64{tech.ID, science.ID}))
	s.NoError(categoryStore.LinkToItem(s.ctx, id, []int64{tech.ID}))

	linked, err := categoryStore.GetByItemID(s.ctx, id)
	s.NoError(err)
	s.Len(linked, 2)
	s.Equal("Science", linked[0].Name)
}

func (s *PostgresIntegrationSuite) TestUserStore_FirstAdministrator() {
	store := NewUserStore(s.db)

	_, err := s.db.ExecContext(s.ctx, "INSERT INTO users (login, role) VALUES ('second', 'administrator'), ('ed', 'editor')")
	s.NoError(err)

	id, err := store.FirstAdministrator(s.ctx)
	s.NoError(err)
	s.Equal(s.adminID, id)
}

func (s *PostgresIntegrationSuite) TestUserStore_NoAdministrator() {
	_, err := s.db.ExecContext(s.ctx, "UPDATE users SET role = 'editor'")
	s.NoError(err)

	_, err = NewUserStore(s.db).FirstAdministrator(s.ctx)
	s.True(errors.Is(err, domain.ErrNoAdministrator))
}

func (s *PostgresIntegrationSuite) TestImportRunStore_RecordAndLatest() {
	store := NewImportRunStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	latest, err := store.Latest(s.ctx, "feed")
	s.NoError(err)
	s.Nil(latest)

	report := &domain.ImportReport{Feed: "feed", StartedAt: now.Add(-time.Minute), FinishedAt: now, Fetched: 2}
	report.RecordCreated(0, "A", 1)
	report.RecordSkipped(1, "B", 2)
	s.NoError(store.Record(s.ctx, report))

	latest, err = store.Latest(s.ctx, "feed")
	s.NoError(err)
	s.Require().NotNil(latest)
	s.Equal(2, latest.Fetched)
	s.Equal(1, latest.Created)
	s.Equal(1, latest.Skipped)
	s.WithinDuration(now, latest.FinishedAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewContentStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		id, err := store.Create(ctx, &domain.ContentDraft{
			Title:       "Transaction Item",
			PublishedAt: time.Now(),
			AuthorID:    s.adminID,
			Status:      domain.StatusPublished,
		})
		if err != nil {
			return err
		}
		return store.SetMeta(ctx, id, map[string]string{domain.MetaCustomRating: "1"})
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM content_items WHERE title = $1", "Transaction Item")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	store := NewContentStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := store.Create(ctx, &domain.ContentDraft{
			Title:       "Should Rollback",
			PublishedAt: time.Now(),
			AuthorID:    s.adminID,
			Status:      domain.StatusPublished,
		})
		if err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM content_items WHERE title = $1", "Should Rollback")
	s.NoError(err)
	s.Equal(0, count)
}
