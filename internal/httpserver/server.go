// Package httpserver exposes keepd's admin HTTP API: health/readiness,
// Prometheus metrics, housekeeper reload/purge triggers, and the
// PrincipalSet JSON boundary for directory records (§4.M of the expanded
// specification). It is modeled on the teacher's internal/httpserver
// package: chi routing, a small middleware stack, and a uniform JSON
// envelope for responses and errors.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"log/slog"

	"github.com/larkmail/keepd/internal/directory"
	"github.com/larkmail/keepd/internal/housekeeper"
)

// Server holds the admin HTTP API's dependencies.
type Server struct {
	Router chi.Router

	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     *redis.Client
	intake    chan<- housekeeper.HousekeeperEvent
	directory DirectoryStore
	targets   PurgeTargets
	startedAt time.Time
}

// DirectoryStore is the narrow contract the directory endpoints consume;
// satisfied by *storeadapter.PrincipalSetStore. It reads and writes at the
// PrincipalSet JSON boundary (§4.H), leaving the Principal<->PrincipalSet
// conversion to the adapter.
type DirectoryStore interface {
	Get(ctx context.Context, id uint32) (*directory.PrincipalSet, error)
	Save(ctx context.Context, id uint32, set *directory.PrincipalSet) error
}

// StoreHandle names one configured data/blob/lookup store for the purge
// endpoint: its stable index, its housekeeper-visible name, and the
// concrete backend(s) registered under that index.
type StoreHandle struct {
	Index uint32
	Name  string
	Data  housekeeper.DataStore
	Blob  housekeeper.BlobStore
	Mem   housekeeper.LookupStore
}

// PurgeTargets is the registry POST /admin/purge resolves store indexes
// against, plus the account service used for account purges.
type PurgeTargets struct {
	Stores   map[uint32]StoreHandle
	Accounts housekeeper.AccountService
}

// NewServer constructs the admin HTTP API. corsOrigins configures the
// allowed CORS origins; intake is the housekeeper's event channel reload
// and purge requests are enqueued onto.
func NewServer(
	logger *slog.Logger,
	db *pgxpool.Pool,
	rdb *redis.Client,
	metricsReg *prometheus.Registry,
	intake chan<- housekeeper.HousekeeperEvent,
	directory DirectoryStore,
	targets PurgeTargets,
	corsOrigins []string,
) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		logger:    logger,
		db:        db,
		redis:     rdb,
		intake:    intake,
		directory: directory,
		targets:   targets,
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Metrics)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	r.Route("/admin", func(ar chi.Router) {
		ar.Post("/reload", s.handleReload)
		ar.Post("/purge", s.handlePurge)
	})

	r.Route("/directory/principals/{id}", func(pr chi.Router) {
		pr.Get("/", s.handleGetPrincipal)
		pr.Put("/", s.handlePutPrincipal)
	})

	s.Router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("readiness check: database ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "database not ready")
		return
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		s.logger.Error("readiness check: redis ping failed", "error", err)
		RespondError(w, http.StatusServiceUnavailable, "unavailable", "redis not ready")
		return
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}
