package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/soundsearch/internal/config"
	"github.com/kailas-cloud/soundsearch/internal/db/breaker"
	"github.com/kailas-cloud/soundsearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/soundsearch/internal/db/redis"
	"github.com/kailas-cloud/soundsearch/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/soundsearch/internal/logger"
	"github.com/kailas-cloud/soundsearch/internal/metrics"
	clusteringrepo "github.com/kailas-cloud/soundsearch/internal/repository/clustering"
	forumrepo "github.com/kailas-cloud/soundsearch/internal/repository/forum"
	"github.com/kailas-cloud/soundsearch/internal/repository/index"
	searchrepo "github.com/kailas-cloud/soundsearch/internal/repository/search"
	soundrepo "github.com/kailas-cloud/soundsearch/internal/repository/sound"
	chiTransport "github.com/kailas-cloud/soundsearch/internal/transport/chi"
	clusteringuc "github.com/kailas-cloud/soundsearch/internal/usecase/clustering"
	forumuc "github.com/kailas-cloud/soundsearch/internal/usecase/forum"
	healthuc "github.com/kailas-cloud/soundsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/soundsearch/internal/usecase/search"
	"github.com/kailas-cloud/soundsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting soundsearch server",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("search_addrs", cfg.Search.Addrs),
		zap.String("db_host", cfg.Database.Host),
		zap.Bool("clustering", cfg.Clustering.Enabled),
	)

	// Collectors are registered explicitly (no init())
	metrics.Register()

	ctx := context.Background()

	// Search index
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Search.Addrs,
		Username: cfg.Search.Username,
		Password: cfg.Search.Password,
		DB:       cfg.Search.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create search store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Search.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Search index not ready", zap.Error(err))
	}
	logger.Info("Connected to search index")

	soundsIdx := index.Sounds(cfg.Search.KeyPrefix, cfg.Search.SoundsIndex)
	forumIdx := index.Forum(cfg.Search.KeyPrefix, cfg.Search.ForumIndex)
	if cfg.Search.EnsureIndexes {
		created, err := index.Ensure(ctx, store, soundsIdx, forumIdx)
		if err != nil {
			logger.Fatal("Failed to ensure indexes", zap.Error(err))
		}
		logger.Info("Indexes ready", zap.Strings("created", created))
	}

	// Record store
	pg, err := postgres.New(ctx, postgres.Config{
		Host:     cfg.Database.Host,
		Port:     strconv.Itoa(cfg.Database.Port),
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Fatal("Failed to create record store", zap.Error(err))
	}
	defer pg.Close()

	// Search calls fail fast while the index is down
	searchBreaker := breaker.New(breaker.Config{
		Name:                "search_index",
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		HalfOpenRequests:    cfg.Breaker.MaxRequests,
		Interval:            time.Duration(cfg.Breaker.IntervalSec) * time.Second,
		OpenTimeout:         time.Duration(cfg.Breaker.TimeoutSec) * time.Second,
	}, logger, metrics.Recorder{}.BreakerStateChange)
	searcher := breaker.NewSearcher(store, searchBreaker)

	soundIndex := searchuc.NewInstrumentedIndex(searchrepo.New(searcher, soundsIdx), "sounds")
	forumIndex := searchuc.NewInstrumentedIndex(searchrepo.New(searcher, forumIdx), "forum")

	sounds := soundrepo.New(pg.Querier())
	forums := forumrepo.New(pg.Querier())

	// Pass nil interfaces (not typed nil pointers) when clustering is disabled.
	var (
		restrictions searchuc.Clusters
		clusterer    chiTransport.Clusterer
	)
	if cfg.Clustering.Enabled {
		cache := clusteringrepo.New(store, cfg.Search.KeyPrefix, cfg.Clustering.Stream, cfg.Clustering.PendingTTL())
		clusterSvc := clusteringuc.New(cache, sounds,
			clusteringuc.WithFeatures(cfg.Clustering.Features),
			clusteringuc.WithBaseURL(cfg.Site.BaseURL),
			clusteringuc.WithObserver(metrics.Recorder{}),
		)
		restrictions = clusterSvc
		clusterer = clusterSvc
	}

	searchSvc := searchuc.New(soundIndex, sounds, restrictions, query.Limits{
		DefaultPageSize: cfg.Pagination.SoundsPerAPIResponse,
		MaxPageSize:     cfg.Pagination.MaxSoundsPerAPIResponse,
	}).
		WithWebPageSize(cfg.Pagination.SoundsPerPage).
		WithObserver(metrics.Recorder{})
	forumSvc := forumuc.New(forumIndex, forums, cfg.Pagination.ForumResultsPerPage)
	healthSvc := healthuc.New(
		healthuc.Component{Name: "search_index", Pinger: store},
		healthuc.Component{Name: "database", Pinger: pg},
	)

	opts := []chiTransport.Option{chiTransport.WithBaseURL(cfg.Site.BaseURL)}
	if clusterer != nil {
		opts = append(opts, chiTransport.WithClustering(clusterer))
	}
	server := chiTransport.NewServer(searchSvc, forumSvc, healthSvc, opts...)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Mount(r, chiTransport.TokenAuthMiddleware(cfg.Auth.APIKeys))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ctx := logpkg.ContextWithLogger(r.Context(), logger)
			ctx = logpkg.With(ctx, zap.String("request_id", requestID))

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			logpkg.FromContext(ctx).Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
