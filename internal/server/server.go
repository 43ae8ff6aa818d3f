package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/postdesk/internal/actions"
	"github.com/jonathan/postdesk/internal/config"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/listing"
	"github.com/jonathan/postdesk/internal/server/middleware"
	"github.com/jonathan/postdesk/internal/server/ratelimit"
	"github.com/jonathan/postdesk/internal/webhook"
	"go.uber.org/zap"
)

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	handler        http.Handler
	db             *db.DB
	logger         *zap.Logger
	rateLimiter    *ratelimit.Limiter
	jwtService     *JWTService
	authHandler    *AuthHandler
	listing        *listing.Service
	actions        *actions.Service
	callbackSecret string
	health         func(context.Context) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Listing        *listing.Service
	Actions        *actions.Service
	Users          *UserService
	JWT            *JWTService
	RateLimiter    *ratelimit.Limiter
	CallbackSecret string
	// Health reports backend reachability; nil means always healthy.
	Health func(context.Context) error
	Logger *zap.Logger
}

// New connects to the database and builds a server for cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	hooks := webhook.New(webhook.Config{
		URLs: map[webhook.Endpoint]string{
			webhook.GenerateImage: cfg.Webhooks.GenerateImageURL,
			webhook.PublishPost:   cfg.Webhooks.PublishPostURL,
			webhook.SendEmail:     cfg.Webhooks.SendEmailURL,
			webhook.JobIntake:     cfg.Webhooks.JobIntakeURL,
		},
		Secret:  cfg.Webhooks.Secret,
		Timeout: cfg.Webhooks.Timeout,
	}, logger.Named("webhook"))

	for _, ep := range []webhook.Endpoint{webhook.GenerateImage, webhook.PublishPost, webhook.SendEmail, webhook.JobIntake} {
		if !hooks.Configured(ep) {
			logger.Warn("webhook endpoint not configured", zap.String("endpoint", string(ep)))
		}
	}
	if cfg.Webhooks.Secret == "" {
		logger.Warn("WEBHOOK_SECRET is empty; automation callbacks will be rejected")
	}

	s := newServer(Deps{
		Listing:        listing.NewService(database, database, logger.Named("listing")),
		Actions:        actions.NewService(database, database, hooks, logger.Named("actions")),
		Users:          NewUserService(database, &cfg.Password, logger.Named("auth")),
		JWT:            NewJWTService(&cfg.JWT),
		RateLimiter:    ratelimit.NewLimiter(ratelimit.LoadConfig()),
		CallbackSecret: cfg.Webhooks.Secret,
		Health:         database.Ping,
		Logger:         logger,
	})
	s.db = database

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second, // covers one webhook round trip
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// newServer wires routes and middleware around deps.
func newServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}

	s := &Server{
		logger:         logger,
		rateLimiter:    limiter,
		jwtService:     deps.JWT,
		authHandler:    NewAuthHandler(deps.Users, deps.JWT, logger.Named("auth")),
		listing:        deps.Listing,
		actions:        deps.Actions,
		callbackSecret: deps.CallbackSecret,
		health:         deps.Health,
	}
	s.handler = s.withRateLimit(s.withLogging(s.withCORS(s.routes())))
	return s
}

func (s *Server) routes() http.Handler {
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	callback := middleware.SharedSecret(s.callbackSecret)
	private := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth
	mux.HandleFunc("POST /api/auth/signup", s.authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", s.authHandler.Login)
	mux.HandleFunc("GET /api/auth/confirm", s.authHandler.Confirm)
	mux.Handle("POST /api/auth/logout", private(s.authHandler.Logout))
	mux.Handle("GET /api/auth/me", private(s.authHandler.Me))

	// Posts
	mux.Handle("GET /api/posts", private(s.handleListPosts))
	mux.Handle("GET /api/posts/{id}", private(s.handleGetPost))
	mux.Handle("PATCH /api/posts/{id}", private(s.handleUpdatePost))
	mux.Handle("POST /api/posts/{id}/approve", private(s.handleApprovePost))
	mux.Handle("POST /api/posts/{id}/reject", private(s.handleRejectPost))
	mux.Handle("POST /api/posts/{id}/generate-image", private(s.handleGenerateImage))
	mux.Handle("POST /api/posts/{id}/publish", private(s.handlePublishPost))

	// Jobs
	mux.Handle("GET /api/jobs", private(s.handleListJobs))
	mux.Handle("GET /api/jobs/filter-options", private(s.handleJobFilterOptions))
	mux.Handle("GET /api/jobs/{id}", private(s.handleGetJob))
	mux.Handle("POST /api/jobs/{id}/send-email", private(s.handleSendJobEmail))
	mux.Handle("POST /api/jobs/{id}/follow-up", private(s.handleScheduleFollowUp))
	mux.Handle("POST /api/jobs/intake", private(s.handleJobIntake))

	// Automation callbacks
	mux.Handle("POST /api/callbacks/posts/{id}/status", callback(http.HandlerFunc(s.handlePostStatusCallback)))
	mux.Handle("POST /api/callbacks/jobs/{id}/sent", callback(http.HandlerFunc(s.handleJobSentCallback)))

	return mux
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests and blocks until ctx is canceled or
// the process receives SIGINT or SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.Close()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	s.logger.Info("server stopped")
	return nil
}

// Close releases the rate limiter and the database pool.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields...)
			return
		}
		s.logger.Debug("request", fields...)
	})
}

// extractClientID extracts the client identifier from the request.
// X-Forwarded-For is ignored because no trusted proxy is configured.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.logger.Info("rate limit exceeded",
		zap.String("client", extractClientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit),
	)

	jsonResponse(w, http.StatusTooManyRequests, response)
}
