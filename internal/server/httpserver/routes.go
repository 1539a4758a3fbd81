package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) routes(r *gin.Engine, allowedOrigins []string) {
	r.Use(h.recovery(), h.requestLogger())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	app := r.Group("/")
	app.Use(h.resolveSession())
	if len(allowedOrigins) > 0 {
		app.Use(h.csrf(allowedOrigins))
	}
	{
		app.GET("/", h.Home)
		app.GET("/login", h.LoginPage)
		app.GET("/register", h.RegisterPage)
		app.GET("/secrets", h.Secrets)
		app.GET("/submit", h.SubmitPage)
		app.GET("/logout", h.Logout)

		app.POST("/register", h.Register)
		app.POST("/login", h.Login)
		app.POST("/submit", h.Submit)

		app.GET("/auth/google", h.BeginOAuth)
		app.GET("/auth/google/secrets", h.OAuthCallback)
	}

	r.NoRoute(func(c *gin.Context) {
		c.Set(identityKey, h.sessions.Resolve(c.Request.Context(), h.cookies.Session(c)))
		h.renderError(c, http.StatusNotFound, "Not Found")
	})
}
