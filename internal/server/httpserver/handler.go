package httpserver

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/logging"
	"github.com/dmitrijs2005/usersecrets/internal/server/metrics"
	"github.com/dmitrijs2005/usersecrets/internal/server/models"
	"github.com/dmitrijs2005/usersecrets/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usersecrets/internal/server/services"
	"github.com/dmitrijs2005/usersecrets/internal/server/sessions"
	"github.com/gin-gonic/gin"
)

// Handler holds the injected application services used by the routes.
type Handler struct {
	users    *services.UserService
	secrets  *services.SecretService
	local    services.Strategy
	external services.Strategy
	sessions *sessions.Manager
	repos    repomanager.RepositoryManager
	cookies  *CookieHelper
	metrics  *metrics.Metrics
	logger   logging.Logger

	stateTTL time.Duration
}

// Deps lists what NewHandler needs. External may be nil when no OAuth
// provider is configured; the provider routes then fall back to /login.
type Deps struct {
	Users    *services.UserService
	Secrets  *services.SecretService
	Local    services.Strategy
	External services.Strategy
	Sessions *sessions.Manager
	Repos    repomanager.RepositoryManager
	Metrics  *metrics.Metrics
	Logger   logging.Logger

	CookieSecure  bool
	OAuthStateTTL time.Duration
}

func NewHandler(d Deps) *Handler {
	ttl := d.OAuthStateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Handler{
		users:    d.Users,
		secrets:  d.Secrets,
		local:    d.Local,
		external: d.External,
		sessions: d.Sessions,
		repos:    d.Repos,
		cookies:  NewCookieHelper(d.CookieSecure),
		metrics:  d.Metrics,
		logger:   d.Logger.With("module", "http"),
		stateTTL: ttl,
	}
}

func (h *Handler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, tmplHome, h.page(c, "Home"))
}

func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, tmplLogin, h.page(c, "Login"))
}

func (h *Handler) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, tmplRegister, h.page(c, "Register"))
}

// Secrets lists every stored secret without owners. The page is public.
func (h *Handler) Secrets(c *gin.Context) {
	list, err := h.secrets.List(c.Request.Context())
	if err != nil {
		h.logger.Error(c.Request.Context(), "list secrets failed", "error", err)
		h.renderError(c, http.StatusInternalServerError, "Error")
		return
	}

	data := h.page(c, "Secrets")
	data["Secrets"] = list
	c.HTML(http.StatusOK, tmplSecrets, data)
}

func (h *Handler) SubmitPage(c *gin.Context) {
	if !currentIdentity(c).Authenticated() {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.HTML(http.StatusOK, tmplSubmit, h.page(c, "Submit"))
}

func (h *Handler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	id := currentIdentity(c)
	if !id.Authenticated() {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := h.secrets.Submit(ctx, id.UserID, c.PostForm("secret")); err != nil {
		if !errors.Is(err, common.ErrValidation) {
			h.logger.Error(ctx, "submit secret failed", "user_id", id.UserID, "error", err)
		}
		c.Redirect(http.StatusFound, "/submit")
		return
	}

	h.metrics.SecretsSubmittedTotal.Inc()
	c.Redirect(http.StatusFound, "/secrets")
}

func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.users.Register(ctx, c.PostForm("username"), c.PostForm("password"))
	h.metrics.AuthAttempt(metrics.MethodRegister, err)
	if err != nil {
		h.logger.Info(ctx, "registration rejected", "reason", reason(err))
		c.Redirect(http.StatusFound, "/register")
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.logger.Error(ctx, "session create failed", "user_id", user.ID, "error", err)
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.Redirect(http.StatusFound, "/secrets")
}

func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.local.VerifyLocalCredential(ctx, c.PostForm("username"), c.PostForm("password"))
	h.metrics.AuthAttempt(metrics.MethodLogin, err)
	if err != nil {
		h.logger.Info(ctx, "login rejected", "reason", reason(err))
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.logger.Error(ctx, "session create failed", "user_id", user.ID, "error", err)
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.Redirect(http.StatusFound, "/secrets")
}

func (h *Handler) Logout(c *gin.Context) {
	if token := h.cookies.Session(c); token != "" {
		_ = h.sessions.Destroy(c.Request.Context(), token)
	}
	h.cookies.ClearSession(c)
	c.Redirect(http.StatusFound, "/")
}

// BeginOAuth sends the browser to the provider and binds the state to it
// with a short-lived cookie.
func (h *Handler) BeginOAuth(c *gin.Context) {
	if h.external == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	state, authURL, err := h.external.BeginExternalAuth(c.Request.Context())
	if err != nil {
		h.logger.Error(c.Request.Context(), "oauth begin failed", "error", err)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	h.cookies.SetOAuthState(c, state, h.stateTTL)
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) OAuthCallback(c *gin.Context) {
	ctx := c.Request.Context()

	if h.external == nil {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	state := c.Query("state")
	bound := h.cookies.OAuthState(c)
	h.cookies.ClearOAuthState(c)

	if bound == "" || subtle.ConstantTimeCompare([]byte(bound), []byte(state)) != 1 {
		h.metrics.AuthAttempt(metrics.MethodOAuth, common.ErrProviderAuth)
		h.logger.Warn(ctx, "oauth callback state mismatch")
		c.Redirect(http.StatusFound, "/login")
		return
	}

	user, err := h.external.CompleteExternalAuth(ctx, state, c.Query("code"), c.Query("error"))
	h.metrics.AuthAttempt(metrics.MethodOAuth, err)
	if err != nil {
		h.logger.Warn(ctx, "oauth login failed", "error", err)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := h.startSession(c, user); err != nil {
		h.logger.Error(ctx, "session create failed", "user_id", user.ID, "error", err)
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.Redirect(http.StatusFound, "/secrets")
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.repos.Ping(c.Request.Context()); err != nil {
		h.logger.Error(c.Request.Context(), "health check failed", "error", err)
		c.String(http.StatusServiceUnavailable, "unavailable")
		return
	}
	c.String(http.StatusOK, "ok")
}

// startSession drops whatever session the browser presented and issues a
// new one for user.
func (h *Handler) startSession(c *gin.Context, user *models.User) error {
	ctx := c.Request.Context()

	if old := h.cookies.Session(c); old != "" {
		_ = h.sessions.Destroy(ctx, old)
	}

	token, err := h.sessions.Create(ctx, sessions.Identity{UserID: user.ID, UserName: user.UserName})
	if err != nil {
		h.cookies.ClearSession(c)
		return err
	}

	h.cookies.SetSession(c, token, h.sessions.TTL())
	return nil
}

func (h *Handler) page(c *gin.Context, title string) gin.H {
	return gin.H{
		"Title":        title,
		"Identity":     currentIdentity(c),
		"OAuthEnabled": h.external != nil,
	}
}

func (h *Handler) renderError(c *gin.Context, status int, title string) {
	c.HTML(status, tmplError, h.page(c, title))
}

// reason maps an error to a short log label without leaking input.
func reason(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return "validation"
	case errors.Is(err, common.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal"
	}
}
