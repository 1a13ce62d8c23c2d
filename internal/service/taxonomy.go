package service

import (
	"context"
	"fmt"
	"log/slog"
)

// CategoryResolver maps a category label to a category identifier,
// creating the category on first use.
type CategoryResolver struct {
	categories CategoryStore
	logger     *slog.Logger
}

func NewCategoryResolver(categories CategoryStore, logger *slog.Logger) *CategoryResolver {
	return &CategoryResolver{
		categories: categories,
		logger:     logger,
	}
}

// Resolve looks the label up by exact name and creates it when absent.
// CategoryStore.Create is a get-or-create, so two callers racing on the
// same label converge to one category.
func (r *CategoryResolver) Resolve(ctx context.Context, label string) (int64, error) {
	category, err := r.categories.FindByName(ctx, label)
	if err != nil {
		return 0, fmt.Errorf("find category: %w", err)
	}
	if category != nil {
		return category.ID, nil
	}

	category, err = r.categories.Create(ctx, label)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}

	r.logger.Info("created category", "name", category.Name, "id", category.ID)

	return category.ID, nil
}
