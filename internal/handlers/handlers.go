package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the statistics database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	// Root is the publish location of the exporter.
	Root           string
	Store          Pinger
	AllowedOrigins []string
	Logger         *zap.Logger
}

type Handler struct {
	root      string
	store     Pinger
	origins   []string
	logger    *zap.SugaredLogger
	validator *validator.Validate
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Handler{
		root:      filepath.Clean(cfg.Root),
		store:     cfg.Store,
		origins:   cfg.AllowedOrigins,
		logger:    cfg.Logger.Sugar(),
		validator: validator.New(),
	}
}

// Routes returns the read-only HTTP surface over the published statistics.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "If-None-Match", "If-Modified-Since"},
		ExposedHeaders: []string{"ETag", "Last-Modified"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/stats", func(r chi.Router) {
		r.Get("/manifest", h.GetManifest)
		r.Get("/matchup/{mapId}", h.GetPairStats("matchup"))
		r.Get("/synergy/{mapId}", h.GetPairStats("synergy"))
		r.Get("/trio/{mapId}/{rankId}", h.GetTrioStats)
		r.Get("/3v3/{mapId}", h.GetThreeVsThreeStats)
		r.Get("/*", h.GetFile)
	})
	return r
}
