package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/cache"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/database"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/events"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/history"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/providers/geolocation"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/search"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/api/handlers"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/api/routes"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/application/services"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/providers"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/clients/postgres"
	redisclient "github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/clients/redis"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/observability"
	"github.com/Charliemcfish/MyThirdPlace-sub002/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Server.LogLevel)

	ctx := context.Background()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized")

	var redis *redisclient.Client
	if cfg.Redis.Enabled {
		redis, err = redisclient.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Redis client, continuing without it")
			redis = nil
		} else {
			defer redis.Close()
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	// Content and index
	contentRepo := database.NewContentAdapter(pgClient)
	relationshipRepo := database.NewRelationshipAdapter(pgClient)
	popularity := services.NewPopularityLoader(relationshipRepo, cfg.Search.PopularityTimeout)
	indexRepo := search.NewMemoryIndexAdapter()
	indexBuilder := services.NewIndexBuilderService(contentRepo, indexRepo, popularity, cfg.Search.IndexPoolSize, cfg.Search.IndexPageSize)

	// Analytics
	historyRepo, closeHistory, err := openHistory(cfg, pgClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open search history store")
	}
	defer closeHistory()

	var publisher providers.SearchEventPublisher
	if redis != nil && cfg.Analytics.PublishEvents {
		publisher = events.NewRedisSearchPublisher(redis, providers.EventChannelSearches)
		log.Info().Str("channel", providers.EventChannelSearches).Msg("search events will be published")
	}

	analytics := services.NewSearchAnalyticsService(historyRepo, publisher, services.AnalyticsOptions{
		SampleRate:    cfg.Analytics.SampleRate,
		HistoryWindow: cfg.Analytics.HistoryWindow,
		HistoryMaxAge: cfg.Analytics.HistoryMaxAge,
		QueueSize:     cfg.Analytics.QueueSize,
	})

	// Search
	var cacheOpts []services.CacheOption
	var remoteCache providers.CacheProvider
	if redis != nil {
		remoteCache = cache.NewRedisAdapter(redis, cache.DefaultKeyPrefix)
		cacheOpts = append(cacheOpts, services.WithRemoteCache(remoteCache))
	}
	searchCache := services.NewSearchCacheService(cfg.Search.CacheTTL, cfg.Search.CacheMaxEntries, cacheOpts...)

	matcher := services.NewQueryMatcher(services.ScoringWeights{
		VenueName:  cfg.Search.VenueNameWeight,
		VenueTerm:  cfg.Search.VenueTermWeight,
		VenueCity:  cfg.Search.VenueCityWeight,
		BlogTitle:  cfg.Search.BlogTitleWeight,
		BlogTerm:   cfg.Search.BlogTermWeight,
		BlogAuthor: cfg.Search.BlogAuthorWeight,
		BlogVenue:  cfg.Search.BlogVenueWeight,
	})

	searchService := services.NewSearchService(indexRepo, matcher, searchCache, analytics, services.SearchOptions{
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
		BranchTimeout: cfg.Search.BranchTimeout,
	})
	suggestionService := services.NewSuggestionService(indexRepo, analytics, cfg.Search.SuggestionSampleSize)

	var geocoder providers.GeolocationProvider
	switch cfg.Geolocation.Provider {
	case "google":
		if cfg.Geolocation.APIKey == "" {
			log.Warn().Msg("GEOLOCATION_API_KEY is not set; falling back to the static geocoder")
			geocoder = geolocation.NewStaticProvider(nil, nil)
		} else {
			geocoder = geolocation.NewGoogleGeocoder(cfg.Geolocation.APIKey, cfg.Geolocation.Region, remoteCache)
		}
	default:
		geocoder = geolocation.NewStaticProvider(nil, nil)
	}
	locations := services.NewLocationResolver(geocoder, cfg.Search.BranchTimeout)

	onRebuild := func(ctx context.Context, stats *services.RebuildStats) {
		observability.RecordRebuild(ctx, metrics, stats.Venues, stats.Blogs, stats.Failed, stats.Duration)
	}

	rebuild := func(ctx context.Context) {
		stats, err := indexBuilder.RebuildAll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("index rebuild failed")
			return
		}
		searchCache.Clear()
		onRebuild(ctx, stats)
	}
	rebuild(ctx)

	// Handlers
	searchHandler := handlers.NewSearchHandler(searchService, suggestionService, locations, analytics)
	analyticsHandler := handlers.NewAnalyticsHandler(analytics)
	indexHandler := handlers.NewIndexHandler(indexBuilder, searchCache, onRebuild)

	healthChecks := map[string]routes.HealthCheck{
		"postgres": pgClient.Ping,
	}
	if redis != nil {
		healthChecks["redis"] = redis.Ping
	}

	router := routes.NewRouter(searchHandler, analyticsHandler, indexHandler, healthChecks, cfg.Server.AllowedOrigins, metrics)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if cfg.Search.RebuildInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Search.RebuildInterval)
			defer ticker.Stop()
			for {
				select {
				case <-bgCtx.Done():
					return
				case <-ticker.C:
					rebuild(bgCtx)
				}
			}
		}()
		log.Info().Dur("interval", cfg.Search.RebuildInterval).Msg("periodic index rebuild enabled")
	}
	if cfg.Analytics.PurgeInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Analytics.PurgeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-bgCtx.Done():
					return
				case <-ticker.C:
					if _, err := analytics.PurgeHistory(bgCtx, 0); err != nil {
						log.Error().Err(err).Msg("scheduled history purge failed")
					}
				}
			}
		}()
		log.Info().Dur("interval", cfg.Analytics.PurgeInterval).Msg("scheduled history purge enabled")
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	stopBackground()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	analytics.Close()
	searchCache.Shutdown()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("error closing search event publisher")
		}
	}

	log.Info().Msg("server stopped")
}

// openHistory selects the search history store named by ANALYTICS_STORE
func openHistory(cfg *config.Config, pgClient *postgres.Client) (repositories.SearchHistoryRepository, func(), error) {
	switch cfg.Analytics.Store {
	case "postgres":
		return database.NewSearchHistoryAdapter(pgClient), func() {}, nil
	case "badger":
		store, err := history.OpenBadgerHistoryAdapter(cfg.Analytics.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("error closing search history")
			}
		}, nil
	default:
		return history.NewBoundedMemoryHistoryAdapter(cfg.Analytics.MaxEvents), func() {}, nil
	}
}
