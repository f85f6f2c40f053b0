package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Service) initRouter() {
	s.router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := s.router.Group("/api", s.rateLimitMiddleware())
	{
		api.POST("/search", s.handleSearch)
		api.GET("/strategies", s.handleStrategies)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

func (s *Service) handleSearch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, err)
		return
	}

	log.Debug().
		Str("request_id", requestID(c)).
		Str("backend", s.conf.BackendURL).
		Msg("Forwarding search to backend")

	payload, err := s.fwd.Search(c.Request.Context(), body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Service) handleStrategies(c *gin.Context) {
	payload, err := s.fwd.Strategies(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// fail maps a forwarding error onto the gateway's error contract: 503 with a
// remediation hint when the backend cannot be reached, 500 with details for
// everything else.
func (s *Service) fail(c *gin.Context, err error) {
	evt := log.Error().Err(err).
		Str("request_id", requestID(c)).
		Str("backend", s.conf.BackendURL)

	var unreachable *BackendUnreachableError
	if errors.As(err, &unreachable) {
		evt.Msg("Backend unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": unavailableHint})
		return
	}

	var status *BackendStatusError
	if errors.As(err, &status) {
		evt.Int("backend_status", status.StatusCode).Msg("Backend returned an error status")
	} else {
		evt.Msg("Search API error")
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed", "details": err.Error()})
}
