package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"post_importer/internal/domain"
	"post_importer/internal/render"
	"post_importer/internal/scheduler"
)

type ListRenderer interface {
	Render(ctx context.Context, p render.Params) *render.RenderedList
	WriteHTML(w io.Writer, list *render.RenderedList) error
}

type FragmentCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type ImportTrigger interface {
	RunNow(ctx context.Context) (*domain.ImportReport, error)
}

type RunHistory interface {
	Latest(ctx context.Context, feed string) (*domain.ImportRun, error)
}

type Handler struct {
	renderer ListRenderer
	cache    FragmentCache
	imports  ImportTrigger
	history  RunHistory
	feed     string
	logger   *slog.Logger
}

// NewHandler wires the HTTP surface. cache and history may be nil.
func NewHandler(
	renderer ListRenderer,
	cache FragmentCache,
	imports ImportTrigger,
	history RunHistory,
	feed string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		renderer: renderer,
		cache:    cache,
		imports:  imports,
		history:  history,
		feed:     feed,
		logger:   logger.With("component", "http"),
	}
}

func NewRouter(h *Handler, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/healthz", h.Health)
	r.GET("/articles", h.ListHTML)
	r.GET("/articles.json", h.ListJSON)
	r.POST("/imports", h.RunImport)
	r.GET("/imports/latest", h.LatestImport)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// paramsFrom reads list options from the query string. A directive
// parameter, if present, takes precedence over individual attributes; one
// that does not parse renders the default list.
func (h *Handler) paramsFrom(c *gin.Context) render.Params {
	if directive := c.Query("directive"); directive != "" {
		attrs, err := render.ParseDirective(directive)
		if err != nil {
			h.logger.Warn("invalid directive, using defaults", "directive", directive, "error", err)
			return render.DefaultParams()
		}
		return render.ParseParams(attrs)
	}

	attrs := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			attrs[k] = v[0]
		}
	}
	return render.ParseParams(attrs)
}

func (h *Handler) ListHTML(c *gin.Context) {
	p := h.paramsFrom(c)
	ctx := c.Request.Context()
	key := p.Key()

	if h.cache != nil {
		if fragment, ok, err := h.cache.Get(ctx, key); err != nil {
			h.logger.Warn("fragment cache read failed", "error", err)
		} else if ok {
			c.Header("X-Cache", "hit")
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
			return
		}
	}

	list := h.renderer.Render(ctx, p)

	var buf bytes.Buffer
	if err := h.renderer.WriteHTML(&buf, list); err != nil {
		h.logger.Error("failed to write fragment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}

	if h.cache != nil && !list.Unavailable {
		if err := h.cache.Set(ctx, key, buf.String()); err != nil {
			h.logger.Warn("fragment cache write failed", "error", err)
		}
	}

	c.Header("X-Cache", "miss")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handler) ListJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.renderer.Render(c.Request.Context(), h.paramsFrom(c)))
}

func (h *Handler) RunImport(c *gin.Context) {
	// The run continues if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())

	report, err := h.imports.RunNow(ctx)
	if err != nil {
		var fetchErr *domain.FeedFetchError
		switch {
		case errors.Is(err, scheduler.ErrRunInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &fetchErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		default:
			h.logger.Error("on-demand import failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":  report,
		"created": report.Created(),
		"skipped": report.Skipped(),
		"failed":  report.Failed(),
	})
}

func (h *Handler) LatestImport(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "import history disabled"})
		return
	}

	run, err := h.history.Latest(c.Request.Context(), h.feed)
	if err != nil {
		h.logger.Error("failed to load latest import", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load latest import"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no imports yet"})
		return
	}

	c.JSON(http.StatusOK, run)
}
