package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"post_importer/internal/domain"
)

type ImportService struct {
	feed      Feed
	items     ContentStore
	resolver  *CategoryResolver
	users     UserStore
	media     MediaAttacher
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger

	now        func() time.Time
	randInt64N func(n int64) int64
}

func NewImportService(
	feed Feed,
	items ContentStore,
	categories CategoryStore,
	users UserStore,
	media MediaAttacher,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *ImportService {
	logger = logger.With("component", "import")
	return &ImportService{
		feed:       feed,
		items:      items,
		resolver:   NewCategoryResolver(categories, logger),
		users:      users,
		media:      media,
		txManager:  txManager,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
		randInt64N: rand.Int63n,
	}
}

// Run performs one import: fetch the feed, then create an item for every
// article whose title is not yet in the store, strictly in feed order.
// A feed failure aborts the run before anything is created; a failing
// article is recorded and the run moves on.
func (s *ImportService) Run(ctx context.Context) (*domain.ImportReport, error) {
	report := &domain.ImportReport{
		Feed:      s.feed.Name(),
		StartedAt: s.now(),
	}
	s.logger.Info("starting import", "feed", report.Feed)

	articles, err := s.feed.FetchArticles(ctx)
	if err != nil {
		fetchErr := &domain.FeedFetchError{URL: report.Feed, Err: err}
		report.FeedError = fetchErr.Error()
		report.FinishedAt = s.now()
		s.logger.Error("import aborted", "error", fetchErr)
		return report, fetchErr
	}

	report.Fetched = len(articles)
	s.logger.Info("fetched articles from feed", "count", len(articles))

	for i := range articles {
		s.importArticle(ctx, i, &articles[i], report)
	}

	report.FinishedAt = s.now()

	s.logger.Info("import completed",
		"fetched", report.Fetched,
		"created", report.Created(),
		"skipped", report.Skipped(),
		"failed", report.Failed(),
		"image_failures", report.Count(domain.OutcomeImageFailed),
		"duration", report.Duration(),
	)

	return report, nil
}

func (s *ImportService) importArticle(ctx context.Context, pos int, article *domain.RemoteArticle, report *domain.ImportReport) {
	logger := s.logger.With("title", article.Title, "position", pos)

	existing, err := s.items.FindByExactTitle(ctx, article.Title)
	if err != nil {
		createErr := &domain.ItemCreateError{Title: article.Title, Err: fmt.Errorf("lookup title: %w", err)}
		logger.Warn("article failed", "error", createErr)
		report.RecordFailed(pos, article.Title, createErr)
		return
	}
	if existing != nil {
		logger.Debug("skipping duplicate", "existing_id", existing.ID)
		report.RecordSkipped(pos, article.Title, existing.ID)
		return
	}

	item, err := s.createItem(ctx, article)
	if err != nil {
		createErr := &domain.ItemCreateError{Title: article.Title, Err: err}
		logger.Warn("article failed", "error", createErr)
		report.RecordFailed(pos, article.Title, createErr)
		return
	}

	report.RecordCreated(pos, article.Title, item.ID)
	logger.Info("created item", "item_id", item.ID, "published_at", item.PublishedAt)

	if image := strings.TrimSpace(article.Image); image != "" {
		asset, err := s.media.AttachThumbnail(ctx, item.ID, thumbnailTitle(article.Title), image)
		if err != nil {
			attachErr := &domain.ImageAttachError{ItemID: item.ID, URL: image, Err: err}
			logger.Warn("thumbnail skipped", "error", attachErr)
			report.RecordImageFailed(pos, article.Title, item.ID, attachErr)
		} else {
			item.ThumbnailMediaID = &asset.ID
			item.ThumbnailURL = asset.PublicURL
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, item); err != nil {
			logger.Warn("failed to publish created item", "item_id", item.ID, "error", err)
		}
	}
}

func (s *ImportService) createItem(ctx context.Context, article *domain.RemoteArticle) (*domain.ContentItem, error) {
	var categories []domain.Category
	if label := strings.TrimSpace(article.Category); label != "" {
		id, err := s.resolver.Resolve(ctx, article.Category)
		if err != nil {
			return nil, fmt.Errorf("resolve category: %w", err)
		}
		categories = append(categories, domain.Category{ID: id, Name: article.Category})
	}

	authorID, err := s.users.FirstAdministrator(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve author: %w", err)
	}

	item := &domain.ContentItem{
		Title:       article.Title,
		Body:        article.Content,
		PublishedAt: s.randomPublishTime(),
		AuthorID:    authorID,
		Status:      domain.StatusPublished,
		Categories:  categories,
		Meta: map[string]string{
			domain.MetaCustomLink:   article.SiteLink,
			domain.MetaCustomRating: article.Rating,
		},
	}

	draft := &domain.ContentDraft{
		Title:       item.Title,
		Body:        item.Body,
		PublishedAt: item.PublishedAt,
		AuthorID:    item.AuthorID,
		Status:      item.Status,
		CategoryIDs: item.CategoryIDs(),
		Meta:        item.Meta,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		id, err := s.items.Create(txCtx, draft)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		item.ID = id

		if err := s.items.SetMeta(txCtx, id, draft.Meta); err != nil {
			return fmt.Errorf("set meta: %w", err)
		}

		if len(draft.CategoryIDs) > 0 {
			if err := s.categories().LinkToItem(txCtx, id, draft.CategoryIDs); err != nil {
				return fmt.Errorf("link categories: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (s *ImportService) categories() CategoryStore {
	return s.resolver.categories
}

// randomPublishTime picks a time uniformly in [now - 1 month, now].
func (s *ImportService) randomPublishTime() time.Time {
	now := s.now()
	from := now.AddDate(0, -1, 0)
	span := int64(now.Sub(from))
	return from.Add(time.Duration(s.randInt64N(span + 1)))
}

func thumbnailTitle(title string) string {
	return "Image for - " + title
}
