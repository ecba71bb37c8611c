package query

import (
	"net/http"
	"time"

	"github.com/canopy-network/liquidityx/app/query/controller"
	"github.com/canopy-network/liquidityx/app/query/types"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"go.uber.org/zap"
)

// NewServer builds the HTTP server on QUERY_ADDR (":8080" by default, or
// "<ip>:<port>" to bind a single interface). No write timeout is set since
// WebSocket connections are long lived.
func NewServer(app *types.App) error {
	router, err := controller.NewController(app).NewRouter()
	if err != nil {
		return err
	}
	app.Server = &http.Server{
		Addr:              utils.Env("QUERY_ADDR", ":8080"),
		Handler:           controller.WithCORS(router),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       utils.EnvDuration("QUERY_IDLE_TIMEOUT", 2*time.Minute),
	}
	app.Logger.Info("Query server configured", zap.String("addr", app.Server.Addr))
	return nil
}
