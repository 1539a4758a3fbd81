package httpserver

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// csrf rejects state-changing requests whose Origin (or, failing that,
// Referer) is not one of allowed. Requests carrying neither are rejected too.
func (h *Handler) csrf(allowed []string) gin.HandlerFunc {
	allowedSet := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		allowedSet[normalizeOrigin(origin)] = true
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			if referer := c.GetHeader("Referer"); referer != "" {
				origin = extractOrigin(referer)
			}
		}

		if origin == "" || !allowedSet[normalizeOrigin(origin)] {
			h.logger.Warn(c.Request.Context(), "csrf check failed", "path", c.Request.URL.Path, "origin", origin)
			h.renderError(c, http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}

		c.Next()
	}
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(origin), "/")
}

// extractOrigin reduces a URL to scheme://host[:port].
func extractOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
