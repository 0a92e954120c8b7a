// internal/server/middleware.go
package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"comms-portal/internal/common/auth"
	"comms-portal/internal/common/errors"
	"comms-portal/internal/common/logger"
	"comms-portal/internal/common/metrics"
	"comms-portal/internal/common/observability"
)

const principalKey = "principal"

// requestLogger logs each request with its route, status and duration,
// and records the request metrics.
func requestLogger(log logger.Logger, obs *observability.Observability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		route := c.Route().Path
		metrics.RequestDuration.WithLabelValues(route, c.Method()).Observe(duration.Seconds())
		if obs != nil {
			obs.RecordRequest(c.UserContext(), route, strconv.Itoa(c.Response().StatusCode()))
			obs.RecordRequestDuration(c.UserContext(), duration, route)
		}

		log.Info("request completed", map[string]interface{}{
			"method":     c.Method(),
			"route":      route,
			"status":     c.Response().StatusCode(),
			"durationMs": duration.Milliseconds(),
		})
		return err
	}
}

// tokenIntrospector validates bearer tokens and returns the caller identity.
type tokenIntrospector interface {
	IntrospectToken(ctx context.Context, token string) (*auth.Principal, error)
}

// requireAuth extracts the bearer token, introspects it against Keycloak
// and stores the resulting principal in request locals. The approver
// identity always comes from the verified token, never from the payload.
func requireAuth(kc tokenIntrospector, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return writeError(c, errors.NewAuthenticationError("missing Authorization header"))
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			return writeError(c, errors.NewAuthenticationError("Authorization header must use Bearer scheme"))
		}

		principal, err := kc.IntrospectToken(c.UserContext(), token)
		if err != nil {
			log.Warn("token introspection rejected", map[string]interface{}{
				"error": err.Error(),
			})
			return writeError(c, err)
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// principalFrom returns the verified caller stored by requireAuth.
func principalFrom(c *fiber.Ctx) *auth.Principal {
	p, _ := c.Locals(principalKey).(*auth.Principal)
	return p
}

// writeError renders any error through the shared taxonomy.
func writeError(c *fiber.Ctx, err error) error {
	return c.Status(errors.HTTPStatus(err)).JSON(errors.ToResponse(err))
}
