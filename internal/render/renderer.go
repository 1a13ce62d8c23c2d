package render

//go:generate mockgen -source=renderer.go -destination=mocks/mocks.go -package=mocks

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"post_importer/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	MessageEmpty       = "No articles found."
	MessageUnavailable = "Articles are unavailable right now."
)

// Outcomes reported to a RenderObserver.
const (
	OutcomeItems       = "items"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
)

type Store interface {
	Query(ctx context.Context, q domain.ContentQuery) ([]domain.ContentItem, error)
}

type RenderObserver interface {
	ObserveRender(outcome string, d time.Duration)
}

// Links builds public URLs for items and categories.
type Links struct {
	BaseURL string
}

func (l Links) Item(id int64) string {
	return l.base() + "/articles/" + strconv.FormatInt(id, 10)
}

func (l Links) Category(id int64) string {
	return l.base() + "/categories/" + strconv.FormatInt(id, 10)
}

func (l Links) base() string {
	return strings.TrimRight(l.BaseURL, "/")
}

type CategoryLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type RenderedItem struct {
	ID           int64          `json:"id"`
	Title        string         `json:"title"`
	Permalink    string         `json:"permalink"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty"`
	Categories   []CategoryLink `json:"categories"`
	Rating       string         `json:"rating,omitempty"`
	CustomLink   string         `json:"custom_link,omitempty"`
	PublishedAt  time.Time      `json:"published_at"`
}

// RenderedList is the structured result of rendering one list. Either
// Items is non-empty or Message explains why there is nothing to show.
type RenderedList struct {
	Title       string         `json:"title,omitempty"`
	Items       []RenderedItem `json:"items"`
	Message     string         `json:"message,omitempty"`
	Unavailable bool           `json:"unavailable,omitempty"`
}

func (l *RenderedList) Empty() bool {
	return len(l.Items) == 0
}

type Renderer struct {
	store    Store
	links    Links
	observer RenderObserver
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewRenderer parses the embedded templates. observer may be nil.
func NewRenderer(store Store, links Links, observer RenderObserver, logger *slog.Logger) (*Renderer, error) {
	tmpl, err := template.New("list.html").ParseFS(templateFS, "templates/list.html")
	if err != nil {
		return nil, fmt.Errorf("parsing list template: %w", err)
	}

	return &Renderer{
		store:    store,
		links:    links,
		observer: observer,
		tmpl:     tmpl,
		logger:   logger.With("component", "render"),
	}, nil
}

// Render selects the items described by p. It never fails: a store error
// yields an unavailable list with an explanatory message.
func (r *Renderer) Render(ctx context.Context, p Params) *RenderedList {
	start := time.Now()
	list := r.render(ctx, p)

	if r.observer != nil {
		outcome := OutcomeItems
		switch {
		case list.Unavailable:
			outcome = OutcomeUnavailable
		case list.Empty():
			outcome = OutcomeEmpty
		}
		r.observer.ObserveRender(outcome, time.Since(start))
	}

	return list
}

func (r *Renderer) render(ctx context.Context, p Params) *RenderedList {
	q, ok := p.Query()
	if !ok {
		return &RenderedList{Message: MessageEmpty}
	}

	items, err := r.store.Query(ctx, q)
	if err != nil {
		r.logger.Error("failed to query articles", "error", err, "sort", q.Sort, "order", q.Order)
		return &RenderedList{Message: MessageUnavailable, Unavailable: true}
	}
	if len(items) == 0 {
		return &RenderedList{Message: MessageEmpty}
	}

	list := &RenderedList{
		Title: p.Title,
		Items: make([]RenderedItem, 0, len(items)),
	}
	for i := range items {
		list.Items = append(list.Items, r.renderItem(&items[i]))
	}
	return list
}

func (r *Renderer) renderItem(item *domain.ContentItem) RenderedItem {
	categories := make([]CategoryLink, 0, len(item.Categories))
	for _, c := range item.Categories {
		categories = append(categories, CategoryLink{Name: c.Name, URL: r.links.Category(c.ID)})
	}

	rating, _ := item.MetaValue(domain.MetaCustomRating)
	link, _ := item.MetaValue(domain.MetaCustomLink)

	return RenderedItem{
		ID:           item.ID,
		Title:        item.Title,
		Permalink:    r.links.Item(item.ID),
		ThumbnailURL: item.ThumbnailURL,
		Categories:   categories,
		Rating:       strings.TrimSpace(rating),
		CustomLink:   strings.TrimSpace(link),
		PublishedAt:  item.PublishedAt,
	}
}

// WriteHTML writes list as an HTML fragment.
func (r *Renderer) WriteHTML(w io.Writer, list *RenderedList) error {
	if err := r.tmpl.Execute(w, list); err != nil {
		return fmt.Errorf("execute list template: %w", err)
	}
	return nil
}

// HTML renders p straight to a fragment.
func (r *Renderer) HTML(ctx context.Context, p Params) (string, *RenderedList, error) {
	list := r.Render(ctx, p)

	var buf bytes.Buffer
	if err := r.WriteHTML(&buf, list); err != nil {
		return "", list, err
	}
	return buf.String(), list, nil
}
