package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"post_importer/internal/cache"
	"post_importer/internal/config"
	"post_importer/internal/media"
	"post_importer/internal/publisher"
	"post_importer/internal/render"
	"post_importer/internal/scheduler"
	"post_importer/internal/service"
	"post_importer/internal/source/feed"
	"post_importer/internal/storage/postgres"
	"post_importer/internal/storage/s3"
)

// app holds the collaborators of the import pipeline.
type app struct {
	db        *sqlx.DB
	feed      *feed.Source
	runs      *postgres.ImportRunStore
	cache     *cache.FragmentCache
	scheduler *scheduler.Scheduler
	closers   []func() error
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, observers ...scheduler.ReportObserver) (*app, error) {
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	a := &app{db: db}
	a.closers = append(a.closers, db.Close)

	contentStore := postgres.NewContentStore(db)
	categoryStore := postgres.NewCategoryStore(db)
	userStore := postgres.NewUserStore(db)
	mediaStore := postgres.NewMediaStore(db)
	txManager := postgres.NewTransactionManager(db)
	a.runs = postgres.NewImportRunStore(db)

	a.feed = feed.New(feed.Config{
		URL:     cfg.Feed.URL,
		APIKey:  cfg.Feed.APIKey,
		Timeout: cfg.Feed.Timeout,
	}, logger)

	var attacher service.MediaAttacher = media.DisabledAttacher{}
	if cfg.Media.S3.Bucket != "" {
		blobs, err := s3.New(ctx, s3.Config{
			Bucket:        cfg.Media.S3.Bucket,
			Region:        cfg.Media.S3.Region,
			Profile:       cfg.Media.S3.Profile,
			Endpoint:      cfg.Media.S3.Endpoint,
			UsePathStyle:  cfg.Media.S3.UsePathStyle,
			PublicBaseURL: cfg.Media.S3.PublicBaseURL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		attacher = media.NewAttacher(media.Config{
			DownloadTimeout: cfg.Media.DownloadTimeout,
			MaxBytes:        cfg.Media.MaxBytes,
			KeyPrefix:       cfg.Media.S3.KeyPrefix,
		}, blobs, mediaStore, contentStore, txManager, logger)
	} else {
		logger.Warn("media.s3.bucket not set, images will not be attached")
	}

	// A nil *RabbitMQ must not end up inside the interface.
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		pub = rabbitMQ
		a.closers = append(a.closers, rabbitMQ.Close)
	}

	observers = append(observers, scheduler.ObserverFunc(a.runs.Record))

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.cache = cache.NewFragmentCache(client, cache.Config{
			TTL:    cfg.Redis.TTL,
			Prefix: cfg.Redis.Prefix,
		}, logger)
		observers = append(observers, a.cache)
	}

	importService := service.NewImportService(
		a.feed,
		contentStore,
		categoryStore,
		userStore,
		attacher,
		txManager,
		pub,
		logger,
	)

	a.scheduler = scheduler.NewScheduler(importService, scheduler.Config{
		Interval:   cfg.Import.Interval,
		RunTimeout: cfg.Import.RunTimeout,
		RunOnStart: cfg.Import.ShouldRunOnStart(),
	}, logger, observers...)

	return a, nil
}

func newRenderer(db *sqlx.DB, cfg *config.Config, observer render.RenderObserver, logger *slog.Logger) (*render.Renderer, error) {
	return render.NewRenderer(
		postgres.NewContentStore(db),
		render.Links{BaseURL: cfg.HTTP.BaseURL},
		observer,
		logger,
	)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
