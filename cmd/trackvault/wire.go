package main

import (
	"context"
	"fmt"
	"net/http"

	"trackvault/internal/app/search"
	"trackvault/internal/app/tracks"
	"trackvault/internal/app/users"
	"trackvault/internal/auth"
	"trackvault/internal/blob"
	"trackvault/internal/config"
	"trackvault/internal/httpapi"
	"trackvault/internal/logging"
	"trackvault/internal/metadata"
	"trackvault/internal/store"
	"trackvault/internal/streaming"
)

// backends are the storage handles the services are built on.
type backends struct {
	meta  store.MetadataStore
	blobs blob.Store
	users store.UserRepository
	cache search.Cache
}

// application owns everything that must be released on shutdown.
type application struct {
	handler http.Handler
	queue   *tracks.Queue
	closers []func()
}

func (a *application) Close() {
	a.queue.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, logger *logging.Logger) (backends, []func(), error) {
	var (
		b       backends
		closers []func()
	)
	fail := func(err error) (backends, []func(), error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return backends{}, nil, err
	}
	log := logger.Component("bootstrap")

	var mem *store.Memory
	switch cfg.MetadataBackend {
	case config.BackendMongo:
		db, disconnect, err := openMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, disconnect)

		mongoStore := store.NewMongo(db)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return fail(fmt.Errorf("ensure indexes: %w", err))
		}
		gridfs, err := blob.NewGridFS(db, cfg.Blob.Bucket, cfg.Blob.ChunkSize)
		if err != nil {
			return fail(fmt.Errorf("open blob bucket: %w", err))
		}
		b.meta, b.blobs = mongoStore, gridfs
		if cfg.Users.Store == config.BackendMongo {
			b.users = mongoStore
		}
		log.Info().Str("database", cfg.Mongo.Database).Str("bucket", cfg.Blob.Bucket).Msg("connected to mongo")
	default:
		mem = store.NewMemory()
		b.meta, b.blobs = mem, blob.NewMemory(int(cfg.Blob.ChunkSize))
		log.Warn().Msg("using in-memory catalog; uploads are lost on restart")
	}

	switch cfg.Users.Store {
	case config.BackendPostgres:
		db, err := openDatabase(ctx, cfg.Users.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
		b.users = store.NewPostgresUsers(db)
	case config.BackendMemory:
		if mem == nil {
			mem = store.NewMemory()
		}
		b.users = mem
	}
	if b.users == nil {
		return fail(fmt.Errorf("user store %q requires the mongo metadata backend", cfg.Users.Store))
	}

	if cfg.Search.RedisURL != "" {
		client, closeRedis, err := search.NewRedisClient(ctx, cfg.Search.RedisURL, logger.Component("redis"))
		if err != nil {
			return fail(err)
		}
		closers = append(closers, closeRedis)
		b.cache = search.NewRedisCache(client, cfg.Search.CacheTTL)
	}

	return b, closers, nil
}

func buildApplication(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*application, error) {
	b, closers, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	jwt, err := auth.NewJWT(cfg.Security.JWTSecret)
	if err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, fmt.Errorf("configure jwt: %w", err)
	}

	reader := metadata.NewID3Reader()
	queue := tracks.NewQueue()

	searchSvc := search.New(b.meta, b.cache, logger.Component("search"))
	hierarchy := tracks.NewHierarchyUpdater(b.meta, queue, logger.Component("hierarchy"))
	uploader := tracks.NewBlobUploader(b.blobs, b.meta, queue, logger.Component("uploader"))
	pipeline := tracks.NewPipeline(
		reader,
		hierarchy,
		uploader,
		tracks.NewPresenceValidator(b.meta),
		searchSvc,
		logger.Component("pipeline"),
	)
	remover := tracks.NewRemover(b.meta, b.blobs, queue, searchSvc, logger.Component("remover"))
	covers := tracks.NewCoverFinder(b.meta, b.blobs, reader)

	srv := httpapi.New(
		tracks.New(pipeline, remover, covers),
		streaming.NewStreamer(b.meta, b.blobs, logger.Component("streaming")),
		searchSvc,
		users.New(jwt, b.users, logger.Component("users")),
		logger.Component("http"),
		cfg.Server.MaxUploadBytes,
	)

	return &application{
		handler: srv.Handler(cfg.CORS.AllowedOrigins),
		queue:   queue,
		closers: closers,
	}, nil
}
