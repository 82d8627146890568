package router

import (
	"fmt"
	"net/http"

	"github.com/citizenwallet/feed/internal/auth"
	"github.com/citizenwallet/feed/internal/transfers"
	"github.com/citizenwallet/feed/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Router struct {
	apiKey  string
	token   string
	store   transfers.Store
	syncer  transfers.Syncer
	clearer transfers.Clearer
	logger  *zap.Logger
}

func NewServer(apiKey, token string, st transfers.Store, syncer transfers.Syncer, clearer transfers.Clearer, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Router{
		apiKey,
		token,
		st,
		syncer,
		clearer,
		logger,
	}
}

// Handler configures the middleware and routes of the feed api
func (r *Router) Handler() http.Handler {
	cr := chi.NewRouter()

	a := auth.New(r.apiKey)

	// configure middleware
	cr.Use(middleware.RequestID)
	cr.Use(LoggerMiddleware(r.logger.Named("http")))

	// configure custom middleware
	cr.Use(OptionsMiddleware)
	cr.Use(HealthMiddleware)
	cr.Use(RequestSizeLimitMiddleware(1 << 20)) // Limit request bodies to 1MB
	cr.Use(middleware.Compress(9))

	// instantiate handlers
	tr := transfers.NewService(r.store, r.syncer, r.clearer, r.logger)
	v := version.NewService(r.token)

	// configure routes
	cr.Handle("/metrics", promhttp.Handler())
	cr.Get("/version", v.Current)

	cr.Route("/transfers", func(cr chi.Router) {
		cr.Get("/", tr.Get)
		cr.Get("/stream", tr.Stream)

		cr.Group(func(cr chi.Router) {
			cr.Use(a.AuthMiddleware)

			cr.Put("/account", tr.SetAccount)
			cr.Post("/backfill", tr.Backfill)
			cr.Delete("/", tr.Clear)
		})
	})

	return cr
}

// implement the Server interface
func (r *Router) Start(port int) error {
	// start the server
	return http.ListenAndServe(fmt.Sprintf(":%v", port), r.Handler())
}
