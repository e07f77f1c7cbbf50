// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	aboutfeature "github.com/dalemusser/stratasite/internal/app/features/about"
	aifeature "github.com/dalemusser/stratasite/internal/app/features/ai"
	auditlogfeature "github.com/dalemusser/stratasite/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/stratasite/internal/app/features/authgoogle"
	contactfeature "github.com/dalemusser/stratasite/internal/app/features/contact"
	dashboardfeature "github.com/dalemusser/stratasite/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/stratasite/internal/app/features/errors"
	exportfeature "github.com/dalemusser/stratasite/internal/app/features/export"
	healthfeature "github.com/dalemusser/stratasite/internal/app/features/health"
	loginfeature "github.com/dalemusser/stratasite/internal/app/features/login"
	logoutfeature "github.com/dalemusser/stratasite/internal/app/features/logout"
	mediafeature "github.com/dalemusser/stratasite/internal/app/features/media"
	models3dfeature "github.com/dalemusser/stratasite/internal/app/features/models3d"
	newsfeature "github.com/dalemusser/stratasite/internal/app/features/news"
	portfoliofeature "github.com/dalemusser/stratasite/internal/app/features/portfolio"
	productsfeature "github.com/dalemusser/stratasite/internal/app/features/products"
	profilefeature "github.com/dalemusser/stratasite/internal/app/features/profile"
	securityeventsfeature "github.com/dalemusser/stratasite/internal/app/features/securityevents"
	servicesfeature "github.com/dalemusser/stratasite/internal/app/features/services"
	settingsfeature "github.com/dalemusser/stratasite/internal/app/features/settings"
	slidersfeature "github.com/dalemusser/stratasite/internal/app/features/sliders"
	stockfeature "github.com/dalemusser/stratasite/internal/app/features/stock"
	themefeature "github.com/dalemusser/stratasite/internal/app/features/theme"
	usersfeature "github.com/dalemusser/stratasite/internal/app/features/users"
	"github.com/dalemusser/stratasite/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/stratasite/internal/app/store/users"
	"github.com/dalemusser/stratasite/internal/app/system/apicors"
	"github.com/dalemusser/stratasite/internal/app/system/auth"
	"github.com/dalemusser/stratasite/internal/app/system/jsonutil"
	"github.com/dalemusser/stratasite/internal/app/system/security"
	"github.com/dalemusser/stratasite/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// csrfExempt reports whether path skips CSRF checks. The public API carries
// no session authority (contact form, read endpoints) and the export API
// authenticates with a bearer key.
func csrfExempt(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// The router has four surfaces:
//   - /api/*        public JSON read API and contact form (CORS, rate limit, no CSRF)
//   - /api/export/* bearer-key export API
//   - /auth/*       session sign-in, sign-out and Google OAuth
//   - /admin/api/*  the CMS admin (session + CSRF + role checks)
//
// plus /theme.css, uploaded files, and health endpoints.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser fetches fresh user data on each request so role
	// changes and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger))

	db := deps.MongoDatabase
	errLog := errorsfeature.NewErrorLogger(logger)
	auditLogger := deps.Audit
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS for the admin origin; the public API adds its own below.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// CSRF protection. The cookie name is namespaced so other services on
	// the same domain do not collide with it.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratasite_csrf"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			jsonutil.Forbidden(w, "CSRF token invalid or missing")
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)
	r.Use(func(next http.Handler) http.Handler {
		protected := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if csrfExempt(req.URL.Path) {
				next.ServeHTTP(w, req)
				return
			}
			protected.ServeHTTP(w, req)
		})
	})

	// ─────────────────────────────────────────────────────────────────────────────
	// Content handlers (shared by the public and admin surfaces)
	// ─────────────────────────────────────────────────────────────────────────────

	cc := deps.Cache
	portfolioH := portfoliofeature.NewHandler(db, cc, errLog, auditLogger, logger)
	productsH := productsfeature.NewHandler(db, cc, errLog, auditLogger, logger)
	servicesH := servicesfeature.NewHandler(db, cc, errLog, auditLogger, logger)
	slidersH := slidersfeature.NewHandler(db, cc, errLog, auditLogger, logger)
	newsH := newsfeature.NewHandler(db, cc, errLog, auditLogger, logger)
	modelsH := models3dfeature.NewHandler(db, cc, errLog, auditLogger, logger)
	aboutH := aboutfeature.NewHandler(db, cc, errLog, auditLogger, logger)
	themeH := themefeature.NewHandler(db, cc, errLog, auditLogger, logger)
	settingsH := settingsfeature.NewHandler(db, deps.FileStorage, cc, errLog, auditLogger, logger)
	contactH := contactfeature.NewHandler(db, deps.Monitor, deps.Mailer, contactfeature.Config{
		Recipient: appCfg.ContactRecipient,
		AdminURL:  appCfg.AdminURL(),
	}, errLog, logger)
	exportH := exportfeature.NewHandler(db, errLog, logger)

	// ─────────────────────────────────────────────────────────────────────────────
	// Public surface
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	r.Get("/theme.css", themeH.ServeCSS)

	// Uploaded files (local storage only)
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(apicors.New(appCfg.PublicCORSOrigins))
		api.Use(security.RateLimit(security.RateLimitConfig{
			Name:   "api",
			Limit:  appCfg.APIRateLimit,
			Window: appCfg.APIRateWindow,
		}, deps.Counter, deps.Monitor, logger))
		api.Use(security.Middleware(deps.Monitor, logger))

		api.Mount("/sliders", slidersfeature.PublicRoutes(slidersH))
		api.Mount("/portfolio", portfoliofeature.PublicRoutes(portfolioH))
		api.Mount("/products", productsfeature.PublicRoutes(productsH))
		api.Mount("/services", servicesfeature.PublicRoutes(servicesH))
		api.Mount("/news", newsfeature.PublicRoutes(newsH))
		api.Mount("/models", models3dfeature.PublicRoutes(modelsH))
		api.Mount("/about", aboutfeature.PublicRoutes(aboutH))
		api.Mount("/theme", themefeature.PublicRoutes(themeH))
		api.Mount("/settings", settingsfeature.PublicRoutes(settingsH))

		api.With(security.RateLimit(security.RateLimitConfig{
			Name:   "contact",
			Limit:  appCfg.ContactRateLimit,
			Window: appCfg.ContactRateWindow,
		}, deps.Counter, deps.Monitor, logger)).Mount("/contact", contactfeature.PublicRoutes(contactH))

		// Export API: bearer key, usage recorded per collection.
		api.Mount("/export", exportfeature.Routes(exportH, deps.APIStats, appCfg.ExportAPIKey, logger))
	})

	// ─────────────────────────────────────────────────────────────────────────────
	// Authentication
	// ─────────────────────────────────────────────────────────────────────────────

	loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, auditLogger, loginLimiter(appCfg, deps), deps.Monitor, logger)
	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLogger, logger)

	// Credentials are not passed through the injection scanner; a password
	// may legitimately contain "--" or quotes.
	r.Route("/auth", func(ar chi.Router) {
		ar.Mount("/logout", logoutfeature.Routes(logoutHandler))

		// Google OAuth (only mount if configured)
		if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret != "" {
			googleHandler := authgooglefeature.NewHandler(
				db,
				sessionMgr,
				errLog,
				auditLogger,
				oauthstate.New(db),
				appCfg.GoogleClientID,
				appCfg.GoogleClientSecret,
				appCfg.BaseURL,
				logger,
			)
			ar.Mount("/google", authgooglefeature.Routes(googleHandler))
			logger.Info("Google OAuth enabled", zap.String("redirect_url", appCfg.BaseURL+"/auth/google/callback"))
		}

		ar.Mount("/", loginfeature.Routes(loginHandler))
	})

	// ─────────────────────────────────────────────────────────────────────────────
	// Admin API
	// ─────────────────────────────────────────────────────────────────────────────

	profileH := profilefeature.NewHandler(db, errLog, auditLogger, deps.Mailer, appCfg.SiteName, appCfg.LoginURL(), logger)
	mediaH := mediafeature.NewHandler(db, deps.FileStorage, deps.Monitor, errLog, auditLogger, logger)
	dashboardH := dashboardfeature.NewHandler(db, deps.Monitor, errLog, logger)
	aiH := aifeature.NewHandler(deps.Writer, errLog, logger)
	stockH := stockfeature.NewHandler(deps.Pexels, errLog, logger)
	usersH := usersfeature.NewHandler(db, deps.Mailer, appCfg.SiteName, appCfg.LoginURL(), errLog, auditLogger, logger)
	securityH := securityeventsfeature.NewHandler(deps.Monitor, logger)
	auditH := auditlogfeature.NewHandler(db, errLog, logger)

	r.Route("/admin/api", func(ar chi.Router) {
		ar.Use(sessionMgr.RequireSignedIn)

		// Reachable with a temporary password so it can be changed.
		ar.Mount("/profile", profilefeature.Routes(profileH, sessionMgr))

		ar.Group(func(ed chi.Router) {
			ed.Use(sessionMgr.RequirePasswordChanged)
			ed.Use(sessionMgr.RequireRole(models.RoleAdmin, models.RoleEditor))

			ed.Mount("/dashboard", dashboardfeature.Routes(dashboardH))
			ed.Mount("/portfolio", portfoliofeature.AdminRoutes(portfolioH))
			ed.Mount("/products", productsfeature.AdminRoutes(productsH))
			ed.Mount("/services", servicesfeature.AdminRoutes(servicesH))
			ed.Mount("/sliders", slidersfeature.AdminRoutes(slidersH))
			ed.Mount("/news", newsfeature.AdminRoutes(newsH))
			ed.Mount("/models", models3dfeature.AdminRoutes(modelsH))
			ed.Mount("/about", aboutfeature.AdminRoutes(aboutH))
			ed.Mount("/media", mediafeature.Routes(mediaH))
			ed.Mount("/theme", themefeature.AdminRoutes(themeH))
			ed.Mount("/settings", settingsfeature.AdminRoutes(settingsH))
			ed.Mount("/contact", contactfeature.AdminRoutes(contactH))
			ed.Mount("/ai", aifeature.Routes(aiH))
			ed.Mount("/stock", stockfeature.Routes(stockH))

			ed.Group(func(adm chi.Router) {
				adm.Use(sessionMgr.RequireRole(models.RoleAdmin))

				adm.Mount("/users", usersfeature.Routes(usersH))
				adm.Mount("/security", securityeventsfeature.Routes(securityH))
				adm.Mount("/audit", auditlogfeature.Routes(auditH))
				adm.Mount("/export", exportfeature.AdminRoutes(exportH))
			})
		})
	})

	return r, nil
}
