package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fotnik/internal/adapter/repo"
	"fotnik/internal/assets"
	"fotnik/internal/http/handlers"
	"fotnik/internal/http/httpapi"
	"fotnik/internal/infra"
	"fotnik/internal/infra/supabase"
	"fotnik/internal/pipeline"
	"fotnik/internal/providers/prompt"
	"fotnik/internal/providers/replicate"
	"fotnik/internal/storage"
	"fotnik/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	var store assets.ObjectStore
	var staticDir string
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" && cfg.S3Bucket != "" {
		store, err = storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			UseSSL:        cfg.S3UseSSL,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	} else {
		staticDir = filepath.Join(cfg.DataDir, "objects")
		store, err = storage.NewFileStore(staticDir, "http://localhost:"+cfg.Port+"/static")
		logger.Warn().Str("dir", staticDir).Msg("object storage credentials missing, mirroring to the local file store")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure object storage")
	}

	mirror, err := assets.NewMirror(assets.Options{
		Store:     store,
		BasePath:  cfg.DataDir,
		Logger:    logger,
		KeepLocal: !cfg.IsProduction(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure asset mirror")
	}

	identity, err := supabase.NewClient(supabase.Options{
		BaseURL:    cfg.SupabaseURL,
		ServiceKey: cfg.SupabaseServiceKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure identity client")
	}

	modelClient, err := replicate.NewClient(replicate.Options{
		APIToken:     cfg.ReplicateAPIToken,
		BaseURL:      cfg.ReplicateBaseURL,
		Logger:       &logger,
		PollInterval: cfg.ReplicatePollInterval,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure model gateway")
	}

	promptBuilder, err := prompt.NewOpenAIBuilder(prompt.OpenAIOptions{
		APIKey:       cfg.OpenAIAPIKey,
		VisionModel:  cfg.OpenAIVisionModel,
		ExtractModel: cfg.OpenAIExtractModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure prompt builder")
	}

	products := repo.NewProductRepository(pool)
	photos := repo.NewPhotoRepository(pool)
	sourcePhotos := repo.NewSourcePhotoRepository(pool)
	tokens := repo.NewTokenRepository(pool)

	service, err := pipeline.NewService(pipeline.Options{
		Auth:         identity,
		Gateway:      modelClient,
		Prompts:      promptBuilder,
		Mirror:       mirror,
		Products:     products,
		Photos:       photos,
		SourcePhotos: sourcePhotos,
		Tokens:       tokens,
		Logger:       logger,
		StageTimeout: cfg.StageTimeout,
		VariantCount: cfg.VariantCount,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure pipeline")
	}

	// The registry lives for the process: created here, torn down with it.
	registry := ws.NewRegistry(logger)
	wsHandler := ws.NewHandler(registry, service, logger)

	app := handlers.NewApp(products, photos, tokens, logger)
	router := httpapi.NewRouter(httpapi.Options{
		App:         app,
		WS:          wsHandler,
		Verifier:    identity,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimitPerMinute,
		StaticDir:   staticDir,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
