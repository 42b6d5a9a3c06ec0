package http

import (
	"net/http"

	"github.com/go-batchform-api/internal/application/account"
	"github.com/go-batchform-api/internal/application/activation"
	"github.com/go-batchform-api/internal/application/batch"
	"github.com/go-batchform-api/internal/application/dispatch"
	"github.com/go-batchform-api/internal/config"
	"github.com/go-batchform-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-batchform-api/internal/infrastructure/jwt"
	s3infra "github.com/go-batchform-api/internal/infrastructure/s3"
	"github.com/go-batchform-api/internal/transport/http/handler"
	appmiddleware "github.com/go-batchform-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	TokenRepo        *dynamo.TokenRepo
	VerificationRepo *dynamo.VerificationRepo
	BlacklistRepo    *dynamo.BlacklistRepo
	BatchRepo        *dynamo.BatchRepo
	AvatarStore      *s3infra.AvatarStore
	Dispatcher       dispatch.Dispatcher
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider, deps.BlacklistRepo)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to register and login.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	activationSvc := activation.NewService(activation.ServiceDeps{
		TokenRepo:        deps.TokenRepo,
		VerificationRepo: deps.VerificationRepo,
		UserRepo:         deps.UserRepo,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo:          deps.UserRepo,
		Ledger:            deps.BlacklistRepo,
		Activation:        activationSvc,
		JWTProvider:       deps.JWTProvider,
		Avatars:           deps.AvatarStore,
		Dispatcher:        deps.Dispatcher,
		ActivationBaseURL: cfg.ActivationBaseURL,
	})
	batchSvc := batch.NewService(batch.ServiceDeps{
		BatchRepo: deps.BatchRepo,
		UserRepo:  deps.UserRepo,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc)
	activationH := handler.NewActivationHandler(activationSvc)
	batchH := handler.NewBatchHandler(batchSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/users/register", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/users/login", accountH.Login)
		r.Get("/account-active", activationH.Activate)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/users/logout", accountH.Logout)
			r.Get("/users/me", accountH.Me)
			r.Put("/users/me/password", accountH.UpdatePassword)
			r.Put("/users/me/profile", accountH.UpdateProfile)
			r.Put("/users/me/username", accountH.UpdateUsername)
			r.Put("/users/me/email", accountH.UpdateEmail)
			r.Put("/users/me/avatar", accountH.UpdateAvatar)

			r.Post("/batches", batchH.Create)
			r.Get("/batches", batchH.List)
			r.Get("/batches/{id}", batchH.Get)
			r.Put("/batches/{id}", batchH.Update)
			r.Delete("/batches/{id}", batchH.Delete)
		})
	})

	return r
}
