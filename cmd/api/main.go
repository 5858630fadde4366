package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ldco/Kroma-sub000/internal/http/handlers"
	httpapi "github.com/ldco/Kroma-sub000/internal/http/httpapi"
	"github.com/ldco/Kroma-sub000/internal/infra"
	"github.com/ldco/Kroma-sub000/internal/infra/credentials"
	"github.com/ldco/Kroma-sub000/internal/infra/geoip"
	"github.com/ldco/Kroma-sub000/internal/ingest"
	"github.com/ldco/Kroma-sub000/internal/pipeline"
	"github.com/ldco/Kroma-sub000/internal/settings"
	"github.com/ldco/Kroma-sub000/internal/storage"
	"github.com/ldco/Kroma-sub000/internal/tooling"
	"github.com/ldco/Kroma-sub000/internal/tooling/hosted"
	"github.com/ldco/Kroma-sub000/internal/tooling/local"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	credStore := credentials.NewStore(runner)
	fillCredentials(ctx, cfg, credStore, logger)

	country, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, audit lines carry no country")
	}

	tools, adapterName := buildToolchain(cfg, logger)

	deps := pipeline.Deps{
		Logger:      logger,
		Resolver:    settings.Resolver{ConfigRoot: cfg.ConfigRoot, DataRoot: cfg.DataRoot},
		ConfigRoot:  cfg.ConfigRoot,
		BatchLimit:  cfg.SafeBatchLimit,
		Tools:       tools,
		AdapterName: adapterName,
		Ingestor:    ingest.NewStore(ingest.PoolDB{Pool: dbpool}, logger),
		Syncer: storage.MirrorSyncer{
			Target: filepath.Join(cfg.DataRoot, "sync"),
			Logger: logger,
		},
	}
	svc := &pipeline.Service{Chain: pipeline.NewChain(deps), Logger: logger}

	app := handlers.NewApp(cfg, logger, svc, deps)
	router := httpapi.NewRouter(app, country)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// fillCredentials backfills adapter API keys from the integration-token
// store when the environment does not provide them.
func fillCredentials(ctx context.Context, cfg *infra.Config, store *credentials.Store, logger infra.Logger) {
	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	fill := func(current *string, provider string) {
		if strings.TrimSpace(*current) != "" {
			return
		}
		key, err := store.Token(lookupCtx, provider)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("failed to load api key from store")
			return
		}
		*current = key
	}
	fill(&cfg.OpenAIAPIKey, credentials.ProviderOpenAI)
	fill(&cfg.PhotoroomAPIKey, credentials.ProviderPhotoroom)
	fill(&cfg.RemoveBgAPIKey, credentials.ProviderRemoveBg)
}

// buildToolchain assembles the adapter set. The local toolchain backs every
// contract; hosted clients take over the backends their API keys unlock.
func buildToolchain(cfg *infra.Config, logger infra.Logger) (tooling.Toolchain, string) {
	lc := local.New(logger)
	tools := tooling.Toolchain{
		Generator: lc,
		Upscaler: tooling.NewMuxUpscaler(map[string]tooling.Upscaler{
			"ncnn":   lc,
			"python": lc,
		}),
		Color:    lc,
		Quality:  lc,
		Archiver: lc,
	}
	adapterName := "local"

	var refiner *hosted.OpenAIRefiner
	if cfg.OpenAIAPIKey != "" {
		gen, err := hosted.NewOpenAIImageClient(hosted.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure openai image client")
		}
		tools.Generator = gen
		adapterName = "openai"

		refiner, err = hosted.NewOpenAIRefiner(hosted.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure openai refiner")
		}
	} else {
		logger.Warn().Msg("openai api key missing, using synthetic local generation")
	}

	bgBackends := map[string]tooling.BackgroundRemover{"rembg": lc}
	if cfg.PhotoroomAPIKey != "" {
		client, err := hosted.NewPhotoroomClient(hosted.BgRemovalOptions{
			APIKey:  cfg.PhotoroomAPIKey,
			BaseURL: cfg.PhotoroomBaseURL,
			Refiner: refiner,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure photoroom client")
		}
		bgBackends["photoroom"] = client
	}
	if cfg.RemoveBgAPIKey != "" {
		client, err := hosted.NewRemoveBgClient(hosted.BgRemovalOptions{
			APIKey:  cfg.RemoveBgAPIKey,
			BaseURL: cfg.RemoveBgBaseURL,
			Refiner: refiner,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure remove.bg client")
		}
		bgBackends["removebg"] = client
	}
	tools.BgRemover = tooling.NewMuxBgRemover(bgBackends)

	return tools, adapterName
}
