package httpapi

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gurkanbulca/streamline/internal/httpapi/apierrors"
	"github.com/gurkanbulca/streamline/internal/middleware"
	"github.com/gurkanbulca/streamline/pkg/auth"
)

// RouterConfig wires the pieces NewRouter mounts.
type RouterConfig struct {
	Tasks    *Handler
	Users    *UserHandler
	Health   *HealthHandler
	Verifier auth.Verifier
	Logger   *slog.Logger

	// UploadDir and UploadPrefix enable static serving of stored proofs
	// when both are set.
	UploadDir    string
	UploadPrefix string
}

// NewRouter builds the HTTP routing tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientInfo)
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RequestLogger(cfg.Logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Live)
		r.Get("/health/ready", cfg.Health.Ready)
		r.Get("/metrics", cfg.Health.Metrics)
	}

	if cfg.UploadDir != "" && cfg.UploadPrefix != "" {
		prefix := "/" + strings.Trim(cfg.UploadPrefix, "/")
		files := http.StripPrefix(prefix, http.FileServer(noListingFS{http.Dir(cfg.UploadDir)}))
		r.Get(prefix+"/*", files.ServeHTTP)
	}

	h := cfg.Tasks
	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(middleware.NewHTTPAuth(cfg.Verifier, cfg.Logger).Middleware())

		r.With(middleware.RequireRole(auth.RoleManager)).Post("/", h.CreateTask)
		r.Get("/assigned-to-me", h.ListAssignedToMe)
		r.With(middleware.RequireRole(auth.RoleManager)).Get("/assigned-by-me", h.ListAssignedByMe)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Get("/events", h.ListTaskEvents)
			r.With(middleware.RequireRole(auth.RoleTeamMember)).Post("/submit-proof", h.SubmitProof)
			r.With(middleware.RequireRole(auth.RoleManager)).Put("/review", h.ReviewTask)
		})
	})

	if u := cfg.Users; u != nil {
		r.Route("/api/users", func(r chi.Router) {
			r.Use(middleware.NewHTTPAuth(cfg.Verifier, cfg.Logger).Middleware())

			r.Get("/me", u.Me)
			r.Post("/profile", u.UpdateProfile)
			r.With(middleware.RequireRole(auth.RoleManager)).Get("/team-members", u.ListTeamMembers)
		})
	}

	return r
}

// noListingFS hides directory indexes from the static file server.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
