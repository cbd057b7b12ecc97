package server

import (
	"context"
	"fmt"

	"github.com/kbukum/flowgraph/auth"
	"github.com/kbukum/flowgraph/observability"
	"github.com/kbukum/flowgraph/server/endpoint"
	"github.com/kbukum/flowgraph/server/middleware"
)

// APIPrefix is the path prefix of the versioned API.
const APIPrefix = "/api/v1"

// RegisterDefaultEndpoints registers /health, /alive and /info.
func (s *Server) RegisterDefaultEndpoints(serviceName, version string, checkers ...observability.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, version, checkers...))
	s.engine.GET("/alive", endpoint.Liveness(serviceName))
	s.engine.GET("/info", endpoint.Info(serviceName))
}

// RegisterAPI mounts api under APIPrefix. The group is guarded by bearer
// auth, rate limiting and a concurrency limit when the config enables them;
// the rate limiter's sweeper stops with ctx.
func (s *Server) RegisterAPI(ctx context.Context, api *API) error {
	group := s.engine.Group(APIPrefix)

	if s.config.Auth.Enabled {
		tokens, err := auth.NewTokenService(s.config.Auth)
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		group.Use(middleware.GinWrap(middleware.Auth(tokens, s.config.Auth.SkipPaths...)))
	}
	if s.config.RateLimit.Enabled {
		group.Use(middleware.RateLimit(ctx, s.config.RateLimit))
	}
	if s.config.Concurrency.Enabled {
		group.Use(middleware.ConcurrencyLimit(s.config.Concurrency, s.log))
	}

	api.Register(group)
	return nil
}
