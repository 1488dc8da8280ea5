package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/akolanti/DocTalk/internal/adapter/utils"
	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/handlers"
	"github.com/akolanti/DocTalk/internal/middleware"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type Server struct {
	httpServer *http.Server
	logger     *logger_i.Logger
}

type Routes struct {
	Handler    *handlers.Handler
	Middleware *middleware.Middleware
	// MCP is mounted at /mcp when set
	MCP http.Handler
}

// NewRouter registers every route on a router that already serves swagger and /metrics.
func NewRouter(routes Routes) *chi.Mux {
	r := utils.NewRouter()
	h, m := routes.Handler, routes.Middleware

	r.Get("/health", m.WrapPublic(h.HealthHandler))

	r.Post("/upload", m.Wrap(h.UploadHandler))
	r.Post("/qna/{id}", m.Wrap(h.QnAHandler))
	r.Get("/uploaded_docs", m.Wrap(h.UploadedDocsHandler))
	r.Post("/analyze-image", m.Wrap(h.AnalyzeImageHandler))

	// preflight for the browser front-end
	for _, path := range []string{"/upload", "/qna/{id}", "/uploaded_docs", "/analyze-image"} {
		r.Options(path, m.WrapPublic(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	}

	if routes.MCP != nil {
		r.Handle("/mcp", m.WrapHandler(routes.MCP))
		r.Handle("/mcp/*", m.WrapHandler(routes.MCP))
	}
	return r
}

func CreateServer(listenAddr string, handler http.Handler) *Server {
	if listenAddr == "" {
		listenAddr = config.ServerListenAddr
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         listenAddr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("server"),
	}
}

// Listen blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Listen() error {
	s.logger.Info("Server is listening at", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err, "addr", s.httpServer.Addr)
		return err
	}
	return nil
}

// ShutDownHandler waits for a signal, drains in-flight requests and then runs
// closeServices. It gives up after ShutdownContextTimeout.
func (s *Server) ShutDownHandler(signals <-chan os.Signal, closeServices func()) error {
	state := <-signals
	s.logger.Info("Server is shutting down", "signal", state.String())
	return s.Shutdown(config.ShutdownContextTimeout, closeServices)
}

func (s *Server) Shutdown(timeout time.Duration, closeServices func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.httpServer.SetKeepAlivesEnabled(false)
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Could not shutdown gracefully", "error", err)
	} else {
		s.logger.Info("Gracefully shut down")
	}
	if closeServices != nil {
		closeServices()
	}
	return err
}
