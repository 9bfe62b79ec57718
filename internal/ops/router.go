package ops

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"

	"github.com/ledgerlake/ledgerlake/internal/app"
	"github.com/ledgerlake/ledgerlake/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Config      *app.Config
	Handler     *Handler
	JobsHandler *jobs.Handler
}

// NewRouter assembles the operational API router with the shared middleware
// stack.
func NewRouter(params RouterParams) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        params.Config != nil && params.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(httprate.LimitByIP(120, time.Minute))

	if params.Handler != nil {
		params.Handler.MountRoutes(r)
	}
	if params.JobsHandler != nil {
		r.Route("/v1/jobs", func(jr chi.Router) {
			params.JobsHandler.MountRoutes(jr)
		})
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
