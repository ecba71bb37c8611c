package controller

import (
	"net/http"

	"github.com/canopy-network/liquidityx/app/query/types"
	"github.com/canopy-network/liquidityx/pkg/metrics"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Controller struct {
	App     *types.App
	metrics *metrics.HTTP
}

func NewController(app *types.App) *Controller {
	if app.Registry == nil {
		app.Registry = prometheus.NewRegistry()
	}
	return &Controller{App: app, metrics: metrics.NewHTTP(app.Registry)}
}

// NewRouter wires every route. JSON routes are instrumented; /ws is not,
// since the instrumented writer cannot be hijacked.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()
	get := func(route string, h http.HandlerFunc) {
		r.Handle(route, c.metrics.Instrument(route, h)).Methods(http.MethodGet)
	}

	get("/health", c.HandleHealth)
	get("/pairs", c.ListPairs)
	get("/pairs/{key}", c.GetPair)
	get("/pairs/{key}/history", c.PairHistory)
	get("/progress", c.Progress)

	r.Handle("/metrics", promhttp.HandlerFor(c.App.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/ws", c.HandleWebSocket)
	return r, nil
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		c.App.Logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (c *Controller) writeError(w http.ResponseWriter, status int, msg string) {
	c.writeJSON(w, status, map[string]string{"error": msg})
}
