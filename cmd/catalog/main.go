package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"bodega/internal/auth"
	"bodega/internal/catalog"
	"bodega/internal/config"
	"bodega/internal/upload"
	"bodega/pkg/kit"
)

const service = "catalog"

func main() {
	cfg, err := config.Load()
	if err != nil {
		kit.NewLogger(service, "info").Fatal("load config", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))

	pw, err := auth.NewPasswordVerifier(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		log.Fatal("admin password", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	uploads := &upload.Server{Log: log, Results: upload.NewResultsCounter(reg)}
	if cfg.UploadsEnabled() {
		u, err := upload.NewCloudinaryUploader(cfg.CloudName, cfg.CloudKey, cfg.CloudSecret, cfg.UploadFolder)
		if err != nil {
			log.Fatal("media host", zap.Error(err))
		}
		uploads.Uploader = u
	} else {
		log.Warn("CLOUD_NAME/CLOUD_KEY/CLOUD_SECRET not set, uploads will fail")
	}

	authSrv := &auth.Server{
		Log:      log,
		Sessions: auth.NewSessions(),
		Password: pw,
	}
	if cfg.LoginLimitPerMin > 0 {
		authSrv.LoginLimiter = kit.NewIPRateLimiter(cfg.LoginLimitPerMin, time.Minute)
		authSrv.LoginLimiter.TrustForwardedFor = cfg.TrustProxy
	}

	h := catalog.NewHandler(
		catalog.Deps{
			Catalog: &catalog.Server{Store: store, Log: log},
			Auth:    authSrv,
			Uploads: uploads,
		},
		catalog.HTTPDeps{
			Log:            log,
			Service:        service,
			Registry:       reg,
			MetricsEnabled: true,
			MetricsToken:   cfg.MetricsToken,
			CORSOrigins:    cfg.CORSOrigins,
		},
	)

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
}

// openStore builds the persistence backend picked by STORE_DRIVER. The
// returned func releases its connections.
func openStore(ctx context.Context, cfg config.Config) (catalog.Store, func(), error) {
	noop := func() {}

	switch cfg.StoreDriver {
	case config.DriverFile:
		return catalog.NewFileStore(cfg.DataFile), noop, nil

	case config.DriverMemory:
		return catalog.NewMemStore(), noop, nil

	case config.DriverMongo:
		client, err := catalog.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		coll := client.Database(cfg.MongoDB).Collection(cfg.MongoCollection)
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		return catalog.NewMongoStore(coll), closeFn, nil

	case config.DriverPostgres:
		db, err := catalog.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := catalog.NewPostgresStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return s, func() { _ = db.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
