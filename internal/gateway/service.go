package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Config is the gateway's immutable configuration, built once at startup.
type Config struct {
	Addr       string
	BackendURL string
	APISecret  string
	RateLimit  float64 // requests per second on /api; 0 disables throttling
}

// Service is the HTTP gateway between the search client and the backend.
type Service struct {
	conf    Config
	fwd     *Forwarder
	limiter *rate.Limiter

	router *gin.Engine
	server *http.Server
	addr   string
}

// NewService builds the router. Nothing listens until Start or ListenAndServe.
func NewService(conf Config) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("Failed to set trusted proxies")
	}

	router.Use(
		recoveryMiddleware(),
		requestIDMiddleware(),
		loggerMiddleware("/health"),
	)

	s := &Service{
		conf:   conf,
		fwd:    NewForwarder(conf.BackendURL, conf.APISecret, nil),
		router: router,
	}
	if conf.RateLimit > 0 {
		burst := int(conf.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), burst)
	}

	s.initRouter()
	return s
}

// Start binds the listener and serves in the background. Addr reports the
// bound address afterwards, which matters when Config.Addr uses port 0.
func (s *Service) Start() error {
	ln, err := net.Listen("tcp", s.conf.Addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("Gateway server stopped unexpectedly")
		}
	}()

	log.Info().Str("addr", s.addr).Str("backend", s.conf.BackendURL).Msg("Gateway listening")
	return nil
}

// ListenAndServe serves in the foreground until Stop is called.
func (s *Service) ListenAndServe() error {
	s.addr = s.conf.Addr
	s.server = &http.Server{
		Addr:              s.conf.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", s.addr).Str("backend", s.conf.BackendURL).Msg("Gateway listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, giving in-flight requests two seconds.
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shutdown gateway")
		return err
	}

	log.Info().Msg("Gateway stopped")
	return nil
}

// Addr is the address the gateway is bound to.
func (s *Service) Addr() string { return s.addr }

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler { return s.router }
