package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/server/sessions"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// resolveSession attaches the caller's identity to the context. It never
// rejects a request.
func (h *Handler) resolveSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := h.sessions.Resolve(c.Request.Context(), h.cookies.Session(c))
		c.Set(identityKey, id)

		kind := "anonymous"
		if id.Authenticated() {
			kind = "authenticated"
		}
		h.metrics.SessionsResolvedTotal.WithLabelValues(kind).Inc()

		c.Next()
	}
}

func currentIdentity(c *gin.Context) sessions.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(sessions.Identity); ok {
			return id
		}
	}
	return sessions.Anonymous
}

// requestLogger writes one line per request and feeds the HTTP metrics.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		h.metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		h.metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		h.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency.String(),
		)
	}
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, err any) {
		h.logger.Error(c.Request.Context(), "panic recovered", "error", err)
		h.renderError(c, http.StatusInternalServerError, "Error")
		c.Abort()
	})
}
