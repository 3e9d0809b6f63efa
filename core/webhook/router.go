package webhook

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions wires the HTTP surface.
type RouterOptions struct {
	Verifier     *Verifier
	Commands     Router
	MaxBodyBytes int64
}

// NewRouter builds the HTTP router: POST / for callbacks, GET /healthz for probes.
func NewRouter(opts RouterOptions) *chi.Mux {
	maxBytes := opts.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(Recover)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(opts.Verifier, maxBytes))
		r.Method(http.MethodPost, "/", NewHandler(opts.Commands))
	})
	return r
}
