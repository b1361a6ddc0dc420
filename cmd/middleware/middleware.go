package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"tikozetu/internal/dto"
	"tikozetu/internal/monitoring"
	"tikozetu/internal/session"
)

func LoggingMiddleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()

		zlog.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func MetricsMiddleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		monitoring.ObserveRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// SessionMiddleware resolves the session cookie into an auth context and
// stores it on the request. It never rejects: public routes run with no
// auth, protected route groups add RequireAuth/RequireRole on top.
func SessionMiddleware(store session.Store, cookieName string) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		auth, err := store.Get(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				zlog.Logger.Warn().Err(err).Msg("failed to resolve session")
			}
			c.Next()
			return
		}

		c.Set(session.ContextKey, auth)
		c.Next()
	}
}

func RequireAuth() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		if _, ok := c.Get(session.ContextKey); !ok {
			dto.UnauthenticatedError(c, "Please login first")
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireRole(roles ...string) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		v, ok := c.Get(session.ContextKey)
		if !ok {
			dto.UnauthenticatedError(c, "Please login first")
			c.Abort()
			return
		}

		auth, ok := v.(*session.Auth)
		if !ok {
			dto.UnauthenticatedError(c, "Please login first")
			c.Abort()
			return
		}

		for _, role := range roles {
			if auth.Role == role {
				c.Next()
				return
			}
		}

		dto.ForbiddenError(c, "Insufficient role for this operation")
		c.Abort()
	}
}
