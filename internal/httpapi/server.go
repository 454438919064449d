// Package httpapi exposes the portal's public HTTP surface: the
// application endpoints, the identity flows and the chat-platform
// interactions webhook.
package httpapi

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tysmp/whitelist_portal/internal/identity"
	"tysmp/whitelist_portal/internal/review"
	"tysmp/whitelist_portal/internal/service"
)

// Pinger reports persistence connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler bundles the portal's HTTP endpoints.
type Handler struct {
	svc       *service.Service
	protocol  *review.Protocol
	sessions  *identity.Sessions
	game      identity.GameVerifier
	chat      identity.ChatExchanger
	pinger    Pinger
	publicKey ed25519.PublicKey
	log       *zap.Logger
}

func NewHandler(
	svc *service.Service,
	protocol *review.Protocol,
	sessions *identity.Sessions,
	game identity.GameVerifier,
	chat identity.ChatExchanger,
	pinger Pinger,
	publicKey ed25519.PublicKey,
	log *zap.Logger,
) *Handler {
	return &Handler{
		svc:       svc,
		protocol:  protocol,
		sessions:  sessions,
		game:      game,
		chat:      chat,
		pinger:    pinger,
		publicKey: publicKey,
		log:       log.Named("http"),
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", h.healthz)
	r.Post("/interactions", h.interactions)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/callback", h.gameCallback)
		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Get("/me", h.me)
			r.Post("/discord/callback", h.linkDiscord)
			r.Delete("/discord", h.unlinkDiscord)
		})
	})

	r.Route("/api/applications", func(r chi.Router) {
		r.With(h.requireSession).Post("/", h.submit)
		r.Get("/status/{gameID}", h.status)
		r.Get("/history/{identifier}", h.history)
	})

	return r
}

// cors mirrors the permissive policy the web form frontend relies on.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Server wraps the HTTP listener with graceful shutdown.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             *zap.Logger
}

func NewServer(port int, handler http.Handler, shutdownTimeout time.Duration, log *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		log:             log.Named("server"),
	}
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
