package rest

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/llm-d-incubation/video-cache-optimizer/internal/logger"
)

// Base REST server
type BaseServer struct {
	router *gin.Engine
}

func NewBaseServer() *BaseServer {
	return &BaseServer{
		router: gin.Default(),
	}
}

// Handler serving the registered routes
func (server *BaseServer) Handler() http.Handler {
	return server.router
}

// Address to listen on, from the environment or the defaults
func Address() string {
	var host, port string
	if host = os.Getenv(RestHostEnvName); host == "" {
		host = DefaultRestHost
	}
	if port = os.Getenv(RestPortEnvName); port == "" {
		port = DefaultRestPort
	}
	return host + ":" + port
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (server *BaseServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    Address(),
		Handler: server.router,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infow("REST server listening", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
