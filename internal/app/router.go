package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/observability"
	"github.com/societyhub/societyhub/internal/platform/httpx"
	"github.com/societyhub/societyhub/internal/rbac"
	"github.com/societyhub/societyhub/internal/roles"
	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/internal/view"
	"github.com/societyhub/societyhub/jobs"
	"github.com/societyhub/societyhub/web"
)

// RoleStats summarises a society's roles for the dashboard.
type RoleStats interface {
	Stats(ctx context.Context, societyID int64) (roles.Stats, error)
}

// SocietyLister lists the societies a user belongs to.
type SocietyLister interface {
	Societies(ctx context.Context, userID int64) ([]auth.Society, error)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Templates          *view.Engine
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	RoleStats          RoleStats
	Societies          SocietyLister
	// Checks are probed by /healthz, keyed by dependency name.
	Checks map[string]func(context.Context) error
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(params.Checks))

	r.Get("/", homeHandler(params))

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// healthHandler probes each dependency with a short deadline. Any failure
// turns the whole response into a 503.
func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				slog.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				results[name] = "down"
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httpx.JSON(w, code, map[string]any{"status": status, "checks": results})
	}
}

func homeHandler(params RouterParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		userID, ok := sess.UserID()
		if !ok {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}

		data := map[string]any{}
		if params.Societies != nil {
			societies, err := params.Societies.Societies(r.Context(), userID)
			if err != nil {
				params.Logger.Warn("list societies", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			data["Societies"] = societies
		}
		if societyID, ok := sess.Society(); ok {
			data["CurrentSociety"] = societyID
			if params.RoleStats != nil {
				stats, err := params.RoleStats.Stats(r.Context(), societyID)
				if err != nil {
					params.Logger.Warn("role stats", slog.Int64("society_id", societyID), slog.Any("error", err))
				} else {
					data["Stats"] = stats
				}
			}
		} else {
			data["CurrentSociety"] = int64(0)
		}

		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		viewData := view.TemplateData{
			Title:       "Dashboard",
			CSRFToken:   csrfToken,
			Flash:       sess.PopFlash(),
			CurrentPath: r.URL.Path,
			Data:        data,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := params.Templates.Render(w, "pages/home/index.html", viewData); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
