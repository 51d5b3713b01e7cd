package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/database"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/history"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/adapters/search"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/application/services"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/repositories"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/clients/postgres"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/infrastructure/observability"
	"github.com/Charliemcfish/MyThirdPlace-sub002/pkg/config"
)

const rebuildPath = "/api/admin/index/rebuild"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("indexer failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "indexer",
		Usage: "Maintain the venue and blog search index and its history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "rebuild",
				Usage:  "Rebuild the search index, locally or on a running API",
				Action: rebuildCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "trigger",
						Usage: "Base URL of a running API whose index should be rebuilt",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Repeat the rebuild at this interval until interrupted",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Timeout for a single rebuild",
						Value: 5 * time.Minute,
					},
				},
			},
			{
				Name:   "purge-history",
				Usage:  "Remove search history older than the retention period",
				Action: purgeHistoryCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "max-age",
						Usage: "Retention period (defaults to ANALYTICS_HISTORY_MAX_AGE)",
					},
					&cli.StringFlag{
						Name:  "store",
						Usage: "History store to purge (postgres or badger, defaults to ANALYTICS_STORE)",
					},
				},
			},
			{
				Name:   "analytics",
				Usage:  "Print the search analytics report as JSON",
				Action: analyticsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "timeframe",
						Aliases: []string{"t"},
						Usage:   "Reporting window (day, week, month, year)",
						Value:   string(entities.TimeframeWeek),
					},
					&cli.StringFlag{
						Name:  "store",
						Usage: "History store to read (postgres or badger, defaults to ANALYTICS_STORE)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Build the index locally and run one search against it",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Content type (all, venues, blogs)",
						Value: string(entities.ContentTypeAll),
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Results per content type",
						Value: 10,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level := c.String("log-level")
	if _, err := zerolog.ParseLevel(strings.ToLower(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	observability.InitLogger("mythirdplace-indexer", os.Getenv("APP_ENV"), level)
	return nil
}

func rebuildCommand(c *cli.Context) error {
	interval := c.Duration("interval")
	if interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var once func(ctx context.Context) error
	if target := strings.TrimSpace(c.String("trigger")); target != "" {
		once = func(ctx context.Context) error {
			return triggerRebuild(ctx, http.DefaultClient, target, c.App.Writer)
		}
	} else {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pgClient.Close()

		once = func(ctx context.Context) error {
			builder, _ := newLocalIndex(cfg, pgClient)
			stats, err := builder.RebuildAll(ctx)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, stats)
		}
	}

	for {
		runCtx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
		err := once(runCtx)
		cancel()
		if err != nil {
			if interval == 0 {
				return err
			}
			log.Error().Err(err).Msg("index rebuild failed")
		}

		if interval == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("indexer stopped")
			return nil
		case <-time.After(interval):
		}
	}
}

// triggerRebuild asks a running API to rebuild its in-process index
func triggerRebuild(ctx context.Context, client *http.Client, baseURL string, out io.Writer) error {
	url := strings.TrimRight(baseURL, "/") + rebuildPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build rebuild request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read rebuild response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rebuild request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	_, err = fmt.Fprintln(out, strings.TrimSpace(string(body)))
	return err
}

func purgeHistoryCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	maxAge := c.Duration("max-age")
	if maxAge < 0 {
		return fmt.Errorf("max-age must be positive")
	}
	if maxAge == 0 {
		maxAge = cfg.Analytics.HistoryMaxAge
	}

	repo, closeRepo, err := openHistory(c.Context, cfg, c.String("store"))
	if err != nil {
		return err
	}
	defer closeRepo()

	removed, err := repo.PurgeOlderThan(c.Context, time.Now().Add(-maxAge))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]int{"removed": removed})
}

func analyticsCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repo, closeRepo, err := openHistory(c.Context, cfg, c.String("store"))
	if err != nil {
		return err
	}
	defer closeRepo()

	analytics := services.NewSearchAnalyticsService(repo, nil, services.AnalyticsOptions{
		HistoryMaxAge: cfg.Analytics.HistoryMaxAge,
	})
	defer analytics.Close()

	report, err := analytics.GetAnalytics(c.Context, entities.ParseTimeframe(c.String("timeframe")))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, report)
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pgClient, err := postgres.NewClient(c.Context, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pgClient.Close()

	builder, index := newLocalIndex(cfg, pgClient)
	if _, err := builder.RebuildAll(c.Context); err != nil {
		return err
	}

	searchService := services.NewSearchService(index, nil, nil, nil, services.SearchOptions{
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
		BranchTimeout: cfg.Search.BranchTimeout,
	})
	resp, err := searchService.Search(c.Context, entities.SearchRequest{
		Query:   query,
		Filters: entities.SearchFilters{ContentType: entities.ParseContentType(c.String("type"))},
		Limit:   c.Int("limit"),
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, resp)
}

func newLocalIndex(cfg *config.Config, pgClient *postgres.Client) (*services.IndexBuilderService, repositories.SearchIndexRepository) {
	index := search.NewMemoryIndexAdapter()
	popularity := services.NewPopularityLoader(database.NewRelationshipAdapter(pgClient), cfg.Search.PopularityTimeout)
	builder := services.NewIndexBuilderService(
		database.NewContentAdapter(pgClient),
		index,
		popularity,
		cfg.Search.IndexPoolSize,
		cfg.Search.IndexPageSize,
	)
	return builder, index
}

// openHistory opens a persistent history store. The memory store lives inside
// the API process and cannot be reached from here.
func openHistory(ctx context.Context, cfg *config.Config, override string) (repositories.SearchHistoryRepository, func(), error) {
	store := cfg.Analytics.Store
	if override != "" {
		store = override
	}

	switch store {
	case "postgres":
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return database.NewSearchHistoryAdapter(pgClient), func() { _ = pgClient.Close() }, nil
	case "badger":
		repo, err := history.OpenBadgerHistoryAdapter(cfg.Analytics.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("history store %q is not reachable from the indexer", store)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
