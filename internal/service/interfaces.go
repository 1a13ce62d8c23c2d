package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"post_importer/internal/domain"
)

type Feed interface {
	Name() string
	FetchArticles(ctx context.Context) ([]domain.RemoteArticle, error)
}

type ContentStore interface {
	FindByExactTitle(ctx context.Context, title string) (*domain.ContentItem, error)
	Create(ctx context.Context, draft *domain.ContentDraft) (int64, error)
	SetMeta(ctx context.Context, itemID int64, meta map[string]string) error
}

type CategoryStore interface {
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	Create(ctx context.Context, name string) (*domain.Category, error)
	LinkToItem(ctx context.Context, itemID int64, categoryIDs []int64) error
}

type UserStore interface {
	FirstAdministrator(ctx context.Context) (int64, error)
}

type MediaAttacher interface {
	AttachThumbnail(ctx context.Context, itemID int64, title, imageURL string) (*domain.MediaAsset, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, item *domain.ContentItem) error
}
