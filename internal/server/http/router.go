// Package http wires the geopunkt protocol onto net/http: key exchange,
// login/signup, row queries and upserts, photo storage and config
// administration.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kartenwerk/geopunkt/internal/server/blob"
	"github.com/kartenwerk/geopunkt/internal/server/service"
	"github.com/kartenwerk/geopunkt/internal/server/store"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
	"github.com/kartenwerk/geopunkt/pkg/httpx"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	adminUser    string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	registry *tables.Registry
	blobs    *blob.Store

	// ConfigDir is where accepted config uploads are persisted.
	ConfigDir string

	KeyExchangeService *service.KeyExchangeService
	AuthService        *service.AuthService
	TokenService       *service.TokenService
	RowService         *service.RowService
	UpsertService      *service.UpsertService
	MigrationService   *service.MigrationService
}

func NewRouter(
	adminUser, buildVersion string,
	st store.Store,
	registry *tables.Registry,
	blobs *blob.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		adminUser:    adminUser,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		registry:     registry,
		blobs:        blobs,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		httpx.RecoverMiddleware(),
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerRows()
	r.registerImages()
	r.registerConfigs()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /kex - moderate rate limit: cheap to serve, but each call does
	// a curve multiplication and allocates session state.
	kexHandler := &KexHandler{KeyExchangeService: r.KeyExchangeService}
	r.Mux.Handle("POST /v1/kex",
		httpx.Chain(kexHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/login and /auth/signup - strict rate limit by IP to slow
	// credential guessing.
	authHandler := &AuthHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(authHandler.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(authHandler.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerRows() {
	h := &RowsHandler{
		RowService:    r.RowService,
		UpsertService: r.UpsertService,
		Registry:      r.registry,
	}

	authn := httpx.AuthnMiddleware(r.TokenService)

	r.Mux.Handle("GET /v1/tables",
		httpx.Chain(http.HandlerFunc(h.HandleTables),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/table/{table}",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /v1/region/{table}",
		httpx.Chain(http.HandlerFunc(h.HandleRegion),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/table/{table}/rows",
		httpx.Chain(http.HandlerFunc(h.HandleAdd),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerImages() {
	h := &ImagesHandler{Blobs: r.blobs}

	authn := httpx.AuthnMiddleware(r.TokenService)

	r.Mux.Handle("PUT /v1/images/{base}/{filename}",
		httpx.Chain(http.HandlerFunc(h.HandlePut),
			authn,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/images/{base}/{filename}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerConfigs() {
	h := &ConfigsHandler{
		Registry:         r.registry,
		MigrationService: r.MigrationService,
		ConfigDir:        r.ConfigDir,
	}

	authn := httpx.AuthnMiddleware(r.TokenService)

	r.Mux.Handle("GET /v1/configs",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			authn,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// Config upload migrates live tables; only the admin account may do it.
	r.Mux.Handle("POST /v1/configs",
		httpx.Chain(http.HandlerFunc(h.HandleUpload),
			authn,
			httpx.RequireUser(r.adminUser),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
