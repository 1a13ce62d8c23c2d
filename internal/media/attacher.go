package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"post_importer/internal/domain"
)

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type AssetStore interface {
	Insert(ctx context.Context, asset *domain.MediaAsset) (int64, error)
}

type ThumbnailSetter interface {
	SetThumbnail(ctx context.Context, itemID, mediaID int64) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Config struct {
	DownloadTimeout time.Duration
	MaxBytes        int64
	KeyPrefix       string
}

// Attacher downloads remote images into the blob store and makes them
// the thumbnail of a content item.
type Attacher struct {
	client    *http.Client
	blobs     BlobStore
	assets    AssetStore
	items     ThumbnailSetter
	txManager TransactionManager
	maxBytes  int64
	keyPrefix string
	logger    *slog.Logger
}

func NewAttacher(
	cfg Config,
	blobs BlobStore,
	assets AssetStore,
	items ThumbnailSetter,
	txManager TransactionManager,
	logger *slog.Logger,
) *Attacher {
	return &Attacher{
		client: &http.Client{
			Timeout: cfg.DownloadTimeout,
		},
		blobs:     blobs,
		assets:    assets,
		items:     items,
		txManager: txManager,
		maxBytes:  cfg.MaxBytes,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		logger:    logger.With("component", "media"),
	}
}

func (a *Attacher) AttachThumbnail(ctx context.Context, itemID int64, title, imageURL string) (*domain.MediaAsset, error) {
	src, err := parseImageURL(imageURL)
	if err != nil {
		return nil, err
	}

	data, contentType, err := a.download(ctx, src.String())
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}

	key := a.objectKey(itemID, src, contentType)
	if err := a.blobs.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	asset := &domain.MediaAsset{
		ItemID:      itemID,
		Title:       title,
		SourceURL:   imageURL,
		StorageKey:  key,
		PublicURL:   a.blobs.URL(key),
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}

	err = a.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := a.assets.Insert(txCtx, asset); err != nil {
			return fmt.Errorf("save media: %w", err)
		}
		if err := a.items.SetThumbnail(txCtx, itemID, asset.ID); err != nil {
			return fmt.Errorf("set thumbnail: %w", err)
		}
		return nil
	})
	if err != nil {
		if delErr := a.blobs.Delete(ctx, key); delErr != nil {
			a.logger.Warn("failed to remove orphaned object", "key", key, "error", delErr)
		}
		return nil, err
	}

	a.logger.Debug("attached thumbnail",
		"item_id", itemID,
		"media_id", asset.ID,
		"key", key,
		"bytes", asset.SizeBytes,
	)

	return asset, nil
}

func parseImageURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse image url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported image url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("image url has no host")
	}
	return u, nil
}

func (a *Attacher) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "PostImporter/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if a.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, a.maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty body")
	}
	if a.maxBytes > 0 && int64(len(data)) > a.maxBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", a.maxBytes)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("unsupported content type %q", contentType)
	}

	return data, contentType, nil
}

// objectKey builds <prefix>/<item id>/<file name>. The file name comes
// from the source path; the extension follows the detected type.
func (a *Attacher) objectKey(itemID int64, src *url.URL, contentType string) string {
	name := path.Base(src.Path)
	if name == "." || name == "/" {
		name = "image"
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	name = sanitize(name)
	if name == "" {
		name = "image"
	}

	name += extensionFor(contentType)

	key := strconv.FormatInt(itemID, 10) + "/" + name
	if a.keyPrefix != "" {
		key = a.keyPrefix + "/" + key
	}
	return key
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ' || r == '.':
			sb.WriteRune('-')
		}
	}
	return sb.String()
}

var ErrStorageDisabled = errors.New("media storage not configured")

// DisabledAttacher rejects every image. It stands in when no bucket is
// configured, so images are reported as failed while items still import.
type DisabledAttacher struct{}

func (DisabledAttacher) AttachThumbnail(context.Context, int64, string, string) (*domain.MediaAsset, error) {
	return nil, ErrStorageDisabled
}
